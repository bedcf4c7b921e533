package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ryanlimjk/heatwatch/app/observability/metrics"
	"github.com/ryanlimjk/heatwatch/internal/api/fusion"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

// Trigger thresholds, calibrated for Singapore ambient conditions.
const (
	TempHigh      = 29.5
	TempCritical  = 30.5
	GreenLow      = 0.2
	GreenCritical = 0.1
)

var _ Engine = (*EngineImpl)(nil)

// Engine evaluates heat-risk trigger rules over the unified dataset.
type Engine interface {
	EvaluateArea(ctx context.Context, planningArea string) (types.Evaluation, error)
	EvaluateAll(ctx context.Context) ([]types.Evaluation, error)
}

type EngineImpl struct {
	logger *slog.Logger
	fusion fusion.Service
}

func NewEngineImpl(fusionSvc fusion.Service, logger *slog.Logger) *EngineImpl {
	return &EngineImpl{
		logger: logger,
		fusion: fusionSvc,
	}
}

// EvaluateArea runs the trigger rules for one planning area. Areas with a
// live temperature use the threshold rules; areas without fall back to
// context-based inference from green coverage and density.
func (e *EngineImpl) EvaluateArea(ctx context.Context, planningArea string) (types.Evaluation, error) {
	rows, err := e.fusion.UnifiedDataset(ctx)
	if err != nil {
		return types.Evaluation{}, fmt.Errorf("failed to load dataset: %w", err)
	}
	for _, row := range rows {
		if row.PlanningArea == planningArea {
			return evaluateRow(row), nil
		}
	}
	return types.Evaluation{
		Trigger:  false,
		Reason:   fmt.Sprintf("Planning area '%s' not found.", planningArea),
		Priority: types.PriorityNone,
	}, nil
}

// EvaluateAll evaluates every area in the dataset, most severe first.
func (e *EngineImpl) EvaluateAll(ctx context.Context) ([]types.Evaluation, error) {
	ctx, span := otel.Tracer("RulesEngine").Start(ctx, "EvaluateAll")
	defer span.End()

	rows, err := e.fusion.UnifiedDataset(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dataset unavailable")
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	results := make([]types.Evaluation, 0, len(rows))
	for _, row := range rows {
		results = append(results, evaluateRow(row))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Priority.Rank() < results[j].Priority.Rank()
	})

	metrics.Get().RiskEvaluationsTotal.Add(ctx, int64(len(results)))
	triggered := 0
	for _, r := range results {
		if r.Trigger {
			triggered++
		}
	}
	span.SetAttributes(attribute.Int("areas", len(results)), attribute.Int("triggered", triggered))
	span.SetStatus(codes.Ok, "evaluation complete")
	e.logger.InfoContext(ctx, "Evaluated trigger rules",
		slog.Int("areas", len(results)), slog.Int("triggered", triggered))
	return results, nil
}

func evaluateRow(row types.UnifiedArea) types.Evaluation {
	if row.AvgTemperature != nil {
		return evaluateWithTemperature(row, *row.AvgTemperature)
	}
	return inferFromContext(row)
}

func evaluateWithTemperature(row types.UnifiedArea, temp float64) types.Evaluation {
	green := row.GreenRatio
	density := row.DensityType

	var triggers []string
	priority := types.PriorityNormal

	switch {
	case temp >= TempCritical && green < GreenCritical && density == types.DensityCommercial:
		triggers = append(triggers, fmt.Sprintf(
			"CRITICAL: Extreme heat (%.1f°C) in commercial zone with minimal green coverage (%.0f%%)", temp, green*100))
		priority = types.PriorityCritical
	case temp >= TempHigh && green < GreenLow:
		triggers = append(triggers, fmt.Sprintf(
			"HIGH: Elevated temperature (%.1f°C) with low green ratio (%.0f%%)", temp, green*100))
		priority = types.PriorityHigh
	case temp >= TempCritical:
		triggers = append(triggers, fmt.Sprintf(
			"HIGH: Critical temperature threshold exceeded (%.1f°C)", temp))
		priority = types.PriorityHigh
	case temp >= TempHigh && density == types.DensityCommercial && green < GreenCritical:
		triggers = append(triggers, "MEDIUM: Elevated heat in commercial area with minimal greenery")
		priority = types.PriorityMedium
	case temp >= TempHigh && density == types.DensityResidential && green < GreenLow:
		triggers = append(triggers, fmt.Sprintf(
			"MEDIUM: Potential heat island in residential area (%.1f°C, %.0f%% green)", temp, green*100))
		priority = types.PriorityMedium
	}

	reason := fmt.Sprintf("Normal conditions (%.1f°C, %.0f%% green, %s)", temp, green*100, density)
	if len(triggers) > 0 {
		reason = triggers[0]
	}

	return types.Evaluation{
		Trigger:  len(triggers) > 0,
		Reason:   reason,
		Priority: priority,
		Details: types.EvaluationDetails{
			PlanningArea:   row.PlanningArea,
			AvgTemperature: row.AvgTemperature,
			GreenRatio:     green,
			DensityType:    density,
			AllTriggers:    triggers,
			DataSource:     types.SourceTemperature,
		},
	}
}

// inferFromContext estimates risk for areas with no station coverage. The
// signal is weaker, so the assigned priorities top out at MEDIUM.
func inferFromContext(row types.UnifiedArea) types.Evaluation {
	green := row.GreenRatio
	density := row.DensityType

	priority := types.PriorityNormal
	reason := fmt.Sprintf("INFERRED: Adequate green coverage (%.0f%%, %s)", green*100, density)
	trigger := false

	switch {
	case density == types.DensityCommercial && green < GreenCritical:
		priority = types.PriorityMedium
		reason = fmt.Sprintf("INFERRED: Commercial zone with minimal green coverage (%.0f%%) - likely heat-prone", green*100)
		trigger = true
	case green < GreenCritical:
		priority = types.PriorityMedium
		reason = fmt.Sprintf("INFERRED: Very low green coverage (%.0f%%) suggests heat island risk", green*100)
		trigger = true
	case density == types.DensityResidential && green < GreenLow:
		priority = types.PriorityLow
		reason = fmt.Sprintf("INFERRED: Residential area with low green coverage (%.0f%%)", green*100)
		trigger = true
	}

	return types.Evaluation{
		Trigger:  trigger,
		Reason:   reason,
		Priority: priority,
		Details: types.EvaluationDetails{
			PlanningArea:   row.PlanningArea,
			AvgTemperature: nil,
			GreenRatio:     green,
			DensityType:    density,
			DataSource:     types.SourceContextInference,
		},
	}
}
