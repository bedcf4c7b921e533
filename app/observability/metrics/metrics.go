package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	UpstreamRequestDuration metric.Float64Histogram
	UpstreamErrorsTotal     metric.Int64Counter
	GeminiCallsTotal        metric.Int64Counter
	GeminiFallbacksTotal    metric.Int64Counter
	DashboardRendersTotal   metric.Int64Counter
	RiskEvaluationsTotal    metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// Get returns the global AppMetrics, initializing the instruments on first
// use. Before a MeterProvider is installed the instruments come from the
// global no-op provider, so calling this from tests is safe.
func Get() *AppMetrics {
	once.Do(initAppMetrics)
	return appMetrics
}

func initAppMetrics() {
	meter := otel.GetMeterProvider().Meter("HeatWatch")
	var err error
	m := &AppMetrics{}

	m.UpstreamRequestDuration, err = meter.Float64Histogram(
		"upstream_request_duration_seconds",
		metric.WithDescription("Duration of Data.gov.sg and OneMap requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("Metrics: Failed to create upstream_request_duration_seconds: %v", err)
	}

	m.UpstreamErrorsTotal, err = meter.Int64Counter(
		"upstream_errors_total",
		metric.WithDescription("Total number of failed upstream API requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		log.Fatalf("Metrics: Failed to create upstream_errors_total: %v", err)
	}

	m.GeminiCallsTotal, err = meter.Int64Counter(
		"gemini_calls_total",
		metric.WithDescription("Total number of Gemini generation calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		log.Fatalf("Metrics: Failed to create gemini_calls_total: %v", err)
	}

	m.GeminiFallbacksTotal, err = meter.Int64Counter(
		"gemini_fallbacks_total",
		metric.WithDescription("Total number of assessments served from the local fallback"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		log.Fatalf("Metrics: Failed to create gemini_fallbacks_total: %v", err)
	}

	m.DashboardRendersTotal, err = meter.Int64Counter(
		"dashboard_renders_total",
		metric.WithDescription("Total number of dashboard page renders"),
		metric.WithUnit("{render}"),
	)
	if err != nil {
		log.Fatalf("Metrics: Failed to create dashboard_renders_total: %v", err)
	}

	m.RiskEvaluationsTotal, err = meter.Int64Counter(
		"risk_evaluations_total",
		metric.WithDescription("Total number of planning areas run through the trigger rules"),
		metric.WithUnit("{area}"),
	)
	if err != nil {
		log.Fatalf("Metrics: Failed to create risk_evaluations_total: %v", err)
	}

	appMetrics = m
}
