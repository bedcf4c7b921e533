package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/ryanlimjk/heatwatch/app/observability/metrics"
	api "github.com/ryanlimjk/heatwatch/internal/api"
	"github.com/ryanlimjk/heatwatch/internal/api/aggregate"
	"github.com/ryanlimjk/heatwatch/internal/api/enrich"
	"github.com/ryanlimjk/heatwatch/internal/api/fusion"
	"github.com/ryanlimjk/heatwatch/internal/api/mitigation"
	"github.com/ryanlimjk/heatwatch/internal/api/onemap"
	"github.com/ryanlimjk/heatwatch/internal/api/rules"
	"github.com/ryanlimjk/heatwatch/internal/api/weather"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var validMetrics = map[types.ReadingType]bool{
	types.ReadingAirTemperature:   true,
	types.ReadingRelativeHumidity: true,
	types.ReadingWindDirection:    true,
	types.ReadingWindSpeed:        true,
	types.ReadingRainfall:         true,
}

type Handler struct {
	logger     *slog.Logger
	perception weather.PerceptionService
	aggregator aggregate.Service
	enricher   enrich.Service
	fusion     fusion.Service
	rules      rules.Engine
	mitigation mitigation.Service
	resolver   onemap.Resolver
	themes     onemap.Client
}

func NewHandler(
	perception weather.PerceptionService,
	aggregator aggregate.Service,
	enricher enrich.Service,
	fusionSvc fusion.Service,
	rulesEngine rules.Engine,
	mitigationSvc mitigation.Service,
	resolver onemap.Resolver,
	themes onemap.Client,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:     logger,
		perception: perception,
		aggregator: aggregator,
		enricher:   enricher,
		fusion:     fusionSvc,
		rules:      rulesEngine,
		mitigation: mitigationSvc,
		resolver:   resolver,
		themes:     themes,
	}
}

type dashboardData struct {
	Timestamp   string
	Count       int
	HotspotName string
	HotspotTemp string
	Model       string
	Analysis    template.HTML
}

// Dashboard handles GET / - the main page with the hotspot card, the Gemini
// panel, and the map iframe. Missing readings degrade to an empty dashboard
// rather than an error page.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "Dashboard")
	defer span.End()

	l := h.logger.With(slog.String("method", "Dashboard"))
	metrics.Get().DashboardRendersTotal.Add(ctx, 1)

	points, err := h.perception.IslandWideReadings(ctx, types.ReadingAirTemperature)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch readings for dashboard", slog.Any("error", err))
		span.RecordError(err)
		points = nil
	}

	data := dashboardData{
		Timestamp:   time.Now().Format("15:04:05"),
		Count:       len(points),
		HotspotName: "N/A",
		HotspotTemp: "0.0",
		Model:       strings.ToUpper(generativeModelLabel()),
	}

	if len(points) > 0 {
		hottest := points[0]
		for _, p := range points[1:] {
			if p.Value > hottest.Value {
				hottest = p
			}
		}
		data.HotspotName = hottest.Name
		data.HotspotTemp = strconv.FormatFloat(hottest.Value, 'f', 1, 64)

		assessment, err := h.mitigation.AssessDistrict(ctx, hottest.Name, hottest.Value)
		if err != nil {
			l.ErrorContext(ctx, "Failed to generate assessment", slog.Any("error", err))
			span.RecordError(err)
		} else {
			data.Analysis = template.HTML(assessment.HTML)
			data.Model = strings.ToUpper(assessment.Model)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		l.ErrorContext(ctx, "Failed to render dashboard", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "template rendering failed")
		return
	}
	span.SetStatus(codes.Ok, "dashboard rendered")
}

// MapPage handles GET /map - the Leaflet page loaded into the dashboard
// iframe. All data arrives through the JSON API.
func (h *Handler) MapPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "map.html", nil); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render map page", slog.Any("error", err))
	}
}

// HeatPoints handles GET /api/v1/heat/points?metric= - island-wide station
// readings for one metric (default air temperature).
func (h *Handler) HeatPoints(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "HeatPoints")
	defer span.End()

	metric := types.ReadingType(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = types.ReadingAirTemperature
	}
	if !validMetrics[metric] {
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported metric %q", metric))
		return
	}

	points, err := h.perception.IslandWideReadings(ctx, metric)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to fetch readings", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream fetch failed")
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to fetch readings")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, points)
}

// HeatAreas handles GET /api/v1/heat/areas - the planning-area overlay as a
// GeoJSON FeatureCollection with the current risk priority per area.
func (h *Handler) HeatAreas(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "HeatAreas")
	defer span.End()

	areas, err := h.resolver.Areas(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load planning areas", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning areas unavailable")
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to load planning areas")
		return
	}

	priorities := make(map[string]types.Priority)
	evaluations, err := h.rules.EvaluateAll(ctx)
	if err != nil {
		// Overlay still renders, just without risk coloring.
		h.logger.WarnContext(ctx, "Risk evaluation unavailable", slog.Any("error", err))
		span.RecordError(err)
	} else {
		for _, ev := range evaluations {
			priorities[ev.Details.PlanningArea] = ev.Priority
		}
	}

	features := make([]types.Feature, 0, len(areas))
	for i := range areas {
		priority := "NO_DATA"
		if p, ok := priorities[areas[i].Name]; ok {
			priority = string(p)
		}
		features = append(features, types.Feature{
			Type: "Feature",
			Properties: map[string]interface{}{
				"pln_area_n": areas[i].Name,
				"priority":   priority,
			},
			Geometry: areas[i].GeoJSON,
		})
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.NewFeatureCollection(features))
}

// HeatSummary handles GET /api/v1/heat/summary - per-area temperature stats.
func (h *Handler) HeatSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "HeatSummary")
	defer span.End()

	summaries, err := h.aggregator.Aggregate(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to aggregate temperatures", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to aggregate temperatures")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, summaries)
}

// HeatContext handles GET /api/v1/heat/context - per-area context features.
func (h *Handler) HeatContext(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "HeatContext")
	defer span.End()

	features, err := h.enricher.ContextFeatures(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to derive context features", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to derive context features")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, features)
}

// HeatDataset handles GET /api/v1/heat/dataset - the unified dataset as JSON
// or, with ?format=csv, as a CSV download.
func (h *Handler) HeatDataset(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "HeatDataset")
	defer span.End()

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="unified_dataset.csv"`)
		if err := h.fusion.WriteCSV(ctx, w); err != nil {
			h.logger.ErrorContext(ctx, "Failed to write CSV", slog.Any("error", err))
			span.RecordError(err)
		}
		return
	}

	rows, err := h.fusion.UnifiedDataset(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to build unified dataset", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to build unified dataset")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, rows)
}

// HeatRisks handles GET /api/v1/heat/risks - all rule evaluations, most
// severe first.
func (h *Handler) HeatRisks(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "HeatRisks")
	defer span.End()

	evaluations, err := h.rules.EvaluateAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to evaluate risks", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to evaluate risks")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, evaluations)
}

// Assessment handles GET /api/v1/heat/assessment/{area} - the Gemini
// mitigation assessment for one planning area's current peak temperature.
func (h *Handler) Assessment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "Assessment")
	defer span.End()

	area := chi.URLParam(r, "area")
	if area == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "planning area required")
		return
	}

	summaries, err := h.aggregator.Aggregate(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to aggregate temperatures", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to aggregate temperatures")
		return
	}

	for _, sum := range summaries {
		if strings.EqualFold(sum.PlanningArea, area) {
			assessment, err := h.mitigation.AssessDistrict(ctx, sum.PlanningArea, sum.MaxTemp)
			if err != nil {
				h.logger.ErrorContext(ctx, "Failed to generate assessment", slog.Any("error", err))
				span.RecordError(err)
				api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to generate assessment")
				return
			}
			api.WriteJSONResponse(w, r, http.StatusOK, assessment)
			return
		}
	}
	api.ErrorResponse(w, r, http.StatusNotFound, fmt.Sprintf("no temperature data for planning area %q", area))
}

// Environment handles GET /api/v1/environment?lat=&lng= - the nearest-source
// environmental readings around a point.
func (h *Handler) Environment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "Environment")
	defer span.End()

	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "lat and lng query parameters required")
		return
	}

	env, err := h.perception.EnvironmentalContext(ctx, lat, lng)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to gather environmental context", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to gather environmental context")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, env)
}

// Themes handles GET /api/v1/themes - the OneMap theme catalogue.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DashboardHandler").Start(r.Context(), "Themes")
	defer span.End()

	themes, err := h.themes.AllThemesInfo(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list themes", slog.Any("error", err))
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadGateway, "Failed to list themes")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, themes)
}

func generativeModelLabel() string {
	return "gemini 2.0 flash"
}
