package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/ryanlimjk/heatwatch/app/observability/metrics"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

// DefaultBaseURL is the Data.gov.sg real-time API root.
const DefaultBaseURL = "https://api-open.data.gov.sg/v2/real-time/api"

var _ Client = (*ClientImpl)(nil)

// Client fetches real-time environmental readings from Data.gov.sg.
type Client interface {
	GetReading(ctx context.Context, reading types.ReadingType) (*ReadingPayload, error)
	GetWeatherSuite(ctx context.Context) (map[string]*ReadingPayload, error)
	GetAirQuality(ctx context.Context) (map[string]*ReadingPayload, error)
	IslandWideReadings(ctx context.Context, reading types.ReadingType) ([]types.StationReading, error)
}

type ClientImpl struct {
	logger  *slog.Logger
	httpc   *http.Client
	baseURL string
}

func NewClient(baseURL string, logger *slog.Logger) *ClientImpl {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ClientImpl{
		logger:  logger,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
	}
}

// envelope is the common Data.gov.sg v2 response wrapper.
type envelope struct {
	Code     int             `json:"code"`
	ErrorMsg string          `json:"errorMsg"`
	Data     *ReadingPayload `json:"data"`
}

// ReadingPayload covers both payload shapes the API serves: station-based
// metrics (temperature, humidity, wind, rainfall) and region-based metrics
// (psi, pm25).
type ReadingPayload struct {
	Stations       []Station    `json:"stations"`
	Readings       []ReadingSet `json:"readings"`
	RegionMetadata []Region     `json:"regionMetadata"`
	Items          []RegionItem `json:"items"`
	ReadingType    string       `json:"readingType"`
	ReadingUnit    string       `json:"readingUnit"`
}

type Station struct {
	ID       string `json:"id"`
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Location Coords `json:"location"`
}

type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type ReadingSet struct {
	Timestamp string         `json:"timestamp"`
	Data      []StationValue `json:"data"`
}

type StationValue struct {
	StationID string  `json:"stationId"`
	Value     float64 `json:"value"`
}

type Region struct {
	Name          string `json:"name"`
	LabelLocation Coords `json:"labelLocation"`
}

// RegionItem holds region-keyed readings, e.g.
// {"psi_twenty_four_hourly": {"west": 54, "east": 49, ...}}.
type RegionItem struct {
	Timestamp string                        `json:"timestamp"`
	Readings  map[string]map[string]float64 `json:"readings"`
}

func (c *ClientImpl) GetReading(ctx context.Context, reading types.ReadingType) (*ReadingPayload, error) {
	ctx, span := otel.Tracer("WeatherClient").Start(ctx, "GetReading")
	defer span.End()
	span.SetAttributes(attribute.String("reading.type", string(reading)))

	start := time.Now()
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(string(reading)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", reading, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		metrics.Get().UpstreamErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream request failed")
		return nil, fmt.Errorf("failed to fetch %s: %w", reading, err)
	}
	defer resp.Body.Close()
	metrics.Get().UpstreamRequestDuration.Record(ctx, time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.Get().UpstreamErrorsTotal.Add(ctx, 1)
		span.SetStatus(codes.Error, "unexpected upstream status")
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, reading)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode %s response: %w", reading, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("empty payload for %s (code=%d, msg=%q)", reading, env.Code, env.ErrorMsg)
	}

	c.logger.DebugContext(ctx, "Fetched reading",
		slog.String("type", string(reading)),
		slog.Int("stations", len(env.Data.Stations)),
		slog.Int("regions", len(env.Data.RegionMetadata)))
	span.SetStatus(codes.Ok, "reading fetched")
	return env.Data, nil
}

// GetWeatherSuite fetches the full set of station-based weather metrics
// concurrently. A failed metric is logged and omitted rather than failing
// the whole suite.
func (c *ClientImpl) GetWeatherSuite(ctx context.Context) (map[string]*ReadingPayload, error) {
	ctx, span := otel.Tracer("WeatherClient").Start(ctx, "GetWeatherSuite")
	defer span.End()

	suite := map[string]types.ReadingType{
		"temperature":    types.ReadingAirTemperature,
		"humidity":       types.ReadingRelativeHumidity,
		"wind_direction": types.ReadingWindDirection,
		"wind_speed":     types.ReadingWindSpeed,
		"rainfall":       types.ReadingRainfall,
	}
	return c.fetchSet(ctx, suite)
}

// GetAirQuality fetches PSI and PM2.5, which are reported per region rather
// than per station.
func (c *ClientImpl) GetAirQuality(ctx context.Context) (map[string]*ReadingPayload, error) {
	ctx, span := otel.Tracer("WeatherClient").Start(ctx, "GetAirQuality")
	defer span.End()

	suite := map[string]types.ReadingType{
		"psi":  types.ReadingPSI,
		"pm25": types.ReadingPM25,
	}
	return c.fetchSet(ctx, suite)
}

func (c *ClientImpl) fetchSet(ctx context.Context, suite map[string]types.ReadingType) (map[string]*ReadingPayload, error) {
	results := make(map[string]*ReadingPayload, len(suite))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for key, reading := range suite {
		g.Go(func() error {
			payload, err := c.GetReading(gctx, reading)
			if err != nil {
				c.logger.WarnContext(gctx, "Suite metric unavailable",
					slog.String("metric", key), slog.Any("error", err))
				return nil
			}
			mu.Lock()
			results[key] = payload
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no metrics available from %s", c.baseURL)
	}
	return results, nil
}

// IslandWideReadings joins station metadata with the latest reading set for
// one metric. Stations without a value in the latest set are skipped.
func (c *ClientImpl) IslandWideReadings(ctx context.Context, reading types.ReadingType) ([]types.StationReading, error) {
	ctx, span := otel.Tracer("WeatherClient").Start(ctx, "IslandWideReadings")
	defer span.End()

	payload, err := c.GetReading(ctx, reading)
	if err != nil {
		return nil, err
	}

	points := make([]types.StationReading, 0, len(payload.Stations))
	if len(payload.Readings) == 0 {
		return points, nil
	}

	values := make(map[string]float64, len(payload.Readings[0].Data))
	for _, v := range payload.Readings[0].Data {
		values[v.StationID] = v.Value
	}

	for _, s := range payload.Stations {
		val, ok := values[s.ID]
		if !ok {
			continue
		}
		points = append(points, types.StationReading{
			StationID: s.ID,
			Name:      s.Name,
			Lat:       s.Location.Latitude,
			Lng:       s.Location.Longitude,
			Value:     val,
		})
	}

	c.logger.InfoContext(ctx, "Island-wide readings collected",
		slog.String("type", string(reading)), slog.Int("points", len(points)))
	return points, nil
}
