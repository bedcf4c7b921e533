package onemap

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// MappedPoint is a coordinate with the planning area it falls into. Area is
// empty for points outside Singapore.
type MappedPoint struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lon"`
	PlanningArea string  `json:"planning_area"`
}

var _ Resolver = (*ResolverImpl)(nil)

// Resolver maps coordinates to Singapore planning areas.
type Resolver interface {
	PlanningAreaAt(ctx context.Context, lat, lng float64) (string, error)
	MapPoints(ctx context.Context, points [][2]float64) ([]MappedPoint, error)
	Areas(ctx context.Context) ([]Area, error)
}

type ResolverImpl struct {
	logger *slog.Logger
	client Client
}

func NewResolver(client Client, logger *slog.Logger) *ResolverImpl {
	return &ResolverImpl{
		logger: logger,
		client: client,
	}
}

func (r *ResolverImpl) Areas(ctx context.Context) ([]Area, error) {
	return r.client.PlanningAreas(ctx)
}

// PlanningAreaAt returns the planning area containing the point, or "" when
// the point is outside every boundary.
func (r *ResolverImpl) PlanningAreaAt(ctx context.Context, lat, lng float64) (string, error) {
	areas, err := r.client.PlanningAreas(ctx)
	if err != nil {
		return "", err
	}
	for i := range areas {
		if areas[i].Contains(lat, lng) {
			return areas[i].Name, nil
		}
	}
	return "", nil
}

// MapPoints resolves a batch of [lat, lng] pairs.
func (r *ResolverImpl) MapPoints(ctx context.Context, points [][2]float64) ([]MappedPoint, error) {
	ctx, span := otel.Tracer("OneMapResolver").Start(ctx, "MapPoints")
	defer span.End()
	span.SetAttributes(attribute.Int("points", len(points)))

	mapped := make([]MappedPoint, 0, len(points))
	for _, p := range points {
		area, err := r.PlanningAreaAt(ctx, p[0], p[1])
		if err != nil {
			return nil, err
		}
		if area == "" {
			r.logger.DebugContext(ctx, "Point outside known planning areas",
				slog.Float64("lat", p[0]), slog.Float64("lng", p[1]))
		}
		mapped = append(mapped, MappedPoint{Lat: p[0], Lng: p[1], PlanningArea: area})
	}
	return mapped, nil
}
