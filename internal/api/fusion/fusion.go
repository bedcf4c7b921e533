package fusion

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ryanlimjk/heatwatch/internal/api/aggregate"
	"github.com/ryanlimjk/heatwatch/internal/api/enrich"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service fuses live temperature aggregates with static context features
// into the unified per-area dataset the rules engine consumes.
type Service interface {
	UnifiedDataset(ctx context.Context) ([]types.UnifiedArea, error)
	WriteCSV(ctx context.Context, w io.Writer) error
}

type ServiceImpl struct {
	logger     *slog.Logger
	aggregator aggregate.Service
	enricher   enrich.Service
}

func NewServiceImpl(aggregator aggregate.Service, enricher enrich.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		aggregator: aggregator,
		enricher:   enricher,
	}
}

// UnifiedDataset outer-joins temperature aggregates onto context features so
// areas without a covering station still appear, with a nil temperature.
// Sorted hottest first, areas without readings last.
func (s *ServiceImpl) UnifiedDataset(ctx context.Context) ([]types.UnifiedArea, error) {
	ctx, span := otel.Tracer("FusionService").Start(ctx, "UnifiedDataset")
	defer span.End()

	features, err := s.enricher.ContextFeatures(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "context features unavailable")
		return nil, fmt.Errorf("failed to get context features: %w", err)
	}

	temps := make(map[string]float64)
	summaries, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		// Context alone is still a usable dataset.
		s.logger.WarnContext(ctx, "Temperature aggregation unavailable, continuing with context only",
			slog.Any("error", err))
	} else {
		for _, sum := range summaries {
			temps[sum.PlanningArea] = sum.AvgTemp
		}
	}

	rows := make([]types.UnifiedArea, 0, len(features))
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		row := types.UnifiedArea{
			PlanningArea: f.PlanningArea,
			GreenRatio:   f.GreenRatio,
			DensityType:  f.DensityType,
		}
		if t, ok := temps[f.PlanningArea]; ok {
			tv := t
			row.AvgTemperature = &tv
		}
		rows = append(rows, row)
		seen[f.PlanningArea] = true
	}
	// Areas with readings but no context row (should not happen, but the
	// join is outer in both directions).
	for area, t := range temps {
		if !seen[area] {
			tv := t
			rows = append(rows, types.UnifiedArea{
				PlanningArea:   area,
				AvgTemperature: &tv,
				DensityType:    types.DensityUnknown,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ti, tj := rows[i].AvgTemperature, rows[j].AvgTemperature
		switch {
		case ti != nil && tj != nil:
			return *ti > *tj
		case ti != nil:
			return true
		default:
			return false
		}
	})

	withTemp := 0
	for _, r := range rows {
		if r.AvgTemperature != nil {
			withTemp++
		}
	}
	span.SetAttributes(attribute.Int("areas", len(rows)), attribute.Int("areas_with_temperature", withTemp))
	span.SetStatus(codes.Ok, "dataset fused")
	s.logger.InfoContext(ctx, "Data fusion complete",
		slog.Int("areas", len(rows)), slog.Int("with_temperature", withTemp))
	return rows, nil
}

// WriteCSV streams the unified dataset as CSV.
func (s *ServiceImpl) WriteCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.UnifiedDataset(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"planning_area", "avg_temperature", "green_ratio", "density_type"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		temp := ""
		if r.AvgTemperature != nil {
			temp = strconv.FormatFloat(*r.AvgTemperature, 'f', 1, 64)
		}
		record := []string{
			r.PlanningArea,
			temp,
			strconv.FormatFloat(r.GreenRatio, 'f', 2, 64),
			r.DensityType,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
