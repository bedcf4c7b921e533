package enrich

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
	"github.com/ryanlimjk/heatwatch/internal/types"
)

// ThemeGroups names the OneMap theme layers feeding each context feature.
type ThemeGroups struct {
	Green       []string
	Commercial  []string
	Residential []string
}

// DefaultThemeGroups mirrors the layers the service was calibrated against.
func DefaultThemeGroups() ThemeGroups {
	return ThemeGroups{
		Green:       []string{"nationalparks", "nparks_parks"},
		Commercial:  []string{"hotels"},
		Residential: []string{"kindergartens", "ssot_hawkercentres"},
	}
}

var _ Service = (*ServiceImpl)(nil)

// Service derives context features (green coverage, density type) for every
// planning area from OneMap theme layers.
type Service interface {
	ContextFeatures(ctx context.Context) ([]types.ContextFeatures, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	client   onemap.Client
	resolver onemap.Resolver
	groups   ThemeGroups
}

func NewServiceImpl(client onemap.Client, resolver onemap.Resolver, groups ThemeGroups, logger *slog.Logger) *ServiceImpl {
	if len(groups.Green) == 0 && len(groups.Commercial) == 0 && len(groups.Residential) == 0 {
		groups = DefaultThemeGroups()
	}
	return &ServiceImpl{
		logger:   logger,
		client:   client,
		resolver: resolver,
		groups:   groups,
	}
}

// ContextFeatures counts theme points per planning area and derives the
// green ratio (normalized against the greenest area) and a density
// classification from the commercial share of commercial + residential
// points.
func (s *ServiceImpl) ContextFeatures(ctx context.Context) ([]types.ContextFeatures, error) {
	ctx, span := otel.Tracer("EnrichService").Start(ctx, "ContextFeatures")
	defer span.End()

	areas, err := s.resolver.Areas(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning areas unavailable")
		return nil, fmt.Errorf("failed to load planning areas: %w", err)
	}

	greenCounts, err := s.countByArea(ctx, s.groups.Green)
	if err != nil {
		return nil, err
	}
	commCounts, err := s.countByArea(ctx, s.groups.Commercial)
	if err != nil {
		return nil, err
	}
	resCounts, err := s.countByArea(ctx, s.groups.Residential)
	if err != nil {
		return nil, err
	}

	maxGreen := 0
	for _, c := range greenCounts {
		if c > maxGreen {
			maxGreen = c
		}
	}

	features := make([]types.ContextFeatures, 0, len(areas))
	for i := range areas {
		name := areas[i].Name
		green := greenCounts[name]
		comm := commCounts[name]
		res := resCounts[name]

		ratio := 0.0
		if maxGreen > 0 {
			ratio = math.Round(float64(green)/float64(maxGreen)*100) / 100
		}

		features = append(features, types.ContextFeatures{
			PlanningArea:     name,
			GreenRatio:       ratio,
			DensityType:      classifyDensity(comm, res),
			GreenCount:       green,
			CommercialCount:  comm,
			ResidentialCount: res,
		})
	}
	sort.Slice(features, func(i, j int) bool {
		return features[i].PlanningArea < features[j].PlanningArea
	})

	span.SetAttributes(attribute.Int("areas", len(features)))
	span.SetStatus(codes.Ok, "context features derived")
	return features, nil
}

// countByArea fetches every theme in the list and tallies its points per
// planning area.
func (s *ServiceImpl) countByArea(ctx context.Context, themes []string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, theme := range themes {
		items, err := s.client.ThemeData(ctx, theme)
		if err != nil {
			s.logger.WarnContext(ctx, "Theme unavailable, skipping",
				slog.String("theme", theme), slog.Any("error", err))
			continue
		}
		for _, item := range items {
			area, err := s.resolver.PlanningAreaAt(ctx, item.Lat, item.Lng)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve theme point: %w", err)
			}
			if area != "" {
				counts[area]++
			}
		}
	}
	return counts, nil
}

func classifyDensity(comm, res int) string {
	total := comm + res
	if total == 0 {
		return types.DensityUnknown
	}
	share := float64(comm) / float64(total)
	switch {
	case share > 0.6:
		return types.DensityCommercial
	case share < 0.4:
		return types.DensityResidential
	default:
		return types.DensityMixed
	}
}
