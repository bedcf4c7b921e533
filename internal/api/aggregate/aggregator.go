package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ryanlimjk/heatwatch/internal/api/onemap"
	"github.com/ryanlimjk/heatwatch/internal/api/weather"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service aggregates station temperatures into per-planning-area statistics.
type Service interface {
	Aggregate(ctx context.Context) ([]types.AreaSummary, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	weather  weather.PerceptionService
	resolver onemap.Resolver
}

func NewServiceImpl(weatherSvc weather.PerceptionService, resolver onemap.Resolver, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		weather:  weatherSvc,
		resolver: resolver,
	}
}

// Aggregate fetches the current island-wide temperatures, resolves each
// station to its planning area, and returns per-area statistics sorted by
// max temperature descending. Stations outside every boundary are dropped.
func (s *ServiceImpl) Aggregate(ctx context.Context) ([]types.AreaSummary, error) {
	ctx, span := otel.Tracer("AggregateService").Start(ctx, "Aggregate")
	defer span.End()

	points, err := s.weather.IslandWideReadings(ctx, types.ReadingAirTemperature)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "temperature fetch failed")
		return nil, fmt.Errorf("failed to fetch temperatures: %w", err)
	}
	if len(points) == 0 {
		s.logger.WarnContext(ctx, "No temperature data available")
		return []types.AreaSummary{}, nil
	}

	buckets := make(map[string]*bucket)
	for _, p := range points {
		area, err := s.resolver.PlanningAreaAt(ctx, p.Lat, p.Lng)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to resolve planning area: %w", err)
		}
		if area == "" {
			s.logger.DebugContext(ctx, "Station outside known planning areas",
				slog.String("station", p.Name))
			continue
		}
		b, ok := buckets[area]
		if !ok {
			b = &bucket{max: math.Inf(-1)}
			buckets[area] = b
		}
		b.sum += p.Value
		b.count++
		if p.Value > b.max {
			b.max = p.Value
		}
		name := p.Name
		if name == "" {
			name = p.StationID
		}
		b.stations = append(b.stations, name)
	}

	summaries := make([]types.AreaSummary, 0, len(buckets))
	for area, b := range buckets {
		summaries = append(summaries, types.AreaSummary{
			PlanningArea: area,
			AvgTemp:      math.Round(b.sum/float64(b.count)*10) / 10,
			MaxTemp:      b.max,
			StationCount: b.count,
			Stations:     b.stations,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].MaxTemp != summaries[j].MaxTemp {
			return summaries[i].MaxTemp > summaries[j].MaxTemp
		}
		return summaries[i].PlanningArea < summaries[j].PlanningArea
	})

	span.SetAttributes(attribute.Int("areas", len(summaries)), attribute.Int("stations", len(points)))
	span.SetStatus(codes.Ok, "aggregation complete")
	s.logger.InfoContext(ctx, "Aggregated temperatures",
		slog.Int("stations", len(points)), slog.Int("areas", len(summaries)))
	return summaries, nil
}

type bucket struct {
	sum      float64
	max      float64
	count    int
	stations []string
}
