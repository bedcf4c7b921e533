package weather

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/golang/geo/s2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanlimjk/heatwatch/internal/types"
)

const earthRadiusKm = 6371.0

var readingUnits = map[string]string{
	"temperature":    "deg C",
	"humidity":       "%",
	"wind_speed":     "knots",
	"wind_direction": "deg",
	"rainfall":       "mm",
	"pm25":           "ug/m3",
	"psi":            "index",
}

var _ PerceptionService = (*PerceptionServiceImpl)(nil)

// PerceptionService assembles the environmental picture around a location.
type PerceptionService interface {
	EnvironmentalContext(ctx context.Context, lat, lng float64) (*types.EnvironmentalContext, error)
	IslandWideReadings(ctx context.Context, reading types.ReadingType) ([]types.StationReading, error)
}

type PerceptionServiceImpl struct {
	logger *slog.Logger
	client Client
}

func NewPerceptionService(client Client, logger *slog.Logger) *PerceptionServiceImpl {
	return &PerceptionServiceImpl{
		logger: logger,
		client: client,
	}
}

func (s *PerceptionServiceImpl) IslandWideReadings(ctx context.Context, reading types.ReadingType) ([]types.StationReading, error) {
	return s.client.IslandWideReadings(ctx, reading)
}

// EnvironmentalContext gathers, for every available metric, the reading from
// the station or region nearest to the given location.
func (s *PerceptionServiceImpl) EnvironmentalContext(ctx context.Context, lat, lng float64) (*types.EnvironmentalContext, error) {
	ctx, span := otel.Tracer("PerceptionService").Start(ctx, "EnvironmentalContext")
	defer span.End()
	span.SetAttributes(attribute.Float64("lat", lat), attribute.Float64("lng", lng))

	weatherSuite, err := s.client.GetWeatherSuite(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Weather suite unavailable", slog.Any("error", err))
		weatherSuite = nil
	}
	airSuite, err := s.client.GetAirQuality(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Air quality unavailable", slog.Any("error", err))
		airSuite = nil
	}
	if weatherSuite == nil && airSuite == nil {
		return nil, err
	}

	return &types.EnvironmentalContext{
		Timestamp:  time.Now(),
		Lat:        lat,
		Lng:        lng,
		Weather:    extractNearest(weatherSuite, lat, lng),
		AirQuality: extractNearest(airSuite, lat, lng),
	}, nil
}

func extractNearest(suite map[string]*ReadingPayload, lat, lng float64) map[string]types.EnvReading {
	out := make(map[string]types.EnvReading, len(suite))
	for key, payload := range suite {
		if payload == nil {
			continue
		}
		switch {
		case len(payload.Stations) > 0:
			if r, ok := nearestStationReading(payload, lat, lng); ok {
				r.Unit = unitFor(key)
				out[key] = r
			}
		case len(payload.RegionMetadata) > 0:
			if r, ok := nearestRegionReading(payload, lat, lng); ok {
				r.Unit = unitFor(key)
				out[key] = r
			}
		}
	}
	return out
}

func nearestStationReading(payload *ReadingPayload, lat, lng float64) (types.EnvReading, bool) {
	var nearest *Station
	minDist := math.Inf(1)
	for i := range payload.Stations {
		st := &payload.Stations[i]
		d := Haversine(lat, lng, st.Location.Latitude, st.Location.Longitude)
		if d < minDist {
			minDist = d
			nearest = st
		}
	}
	if nearest == nil || len(payload.Readings) == 0 {
		return types.EnvReading{}, false
	}
	for _, v := range payload.Readings[0].Data {
		if v.StationID == nearest.ID {
			return types.EnvReading{
				Value:         v.Value,
				StationDistKm: round2(minDist),
				Source:        nearest.Name,
			}, true
		}
	}
	return types.EnvReading{}, false
}

func nearestRegionReading(payload *ReadingPayload, lat, lng float64) (types.EnvReading, bool) {
	var nearest *Region
	minDist := math.Inf(1)
	for i := range payload.RegionMetadata {
		reg := &payload.RegionMetadata[i]
		d := Haversine(lat, lng, reg.LabelLocation.Latitude, reg.LabelLocation.Longitude)
		if d < minDist {
			minDist = d
			nearest = reg
		}
	}
	if nearest == nil || len(payload.Items) == 0 {
		return types.EnvReading{}, false
	}
	// Region items key readings by metric variant; take the first variant.
	for _, regionValues := range payload.Items[0].Readings {
		if val, ok := regionValues[nearest.Name]; ok {
			return types.EnvReading{
				Value:         val,
				StationDistKm: round2(minDist),
				Source:        nearest.Name,
			}, true
		}
	}
	return types.EnvReading{}, false
}

func unitFor(key string) string {
	return readingUnits[key]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * earthRadiusKm
}
