package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryanlimjk/heatwatch/internal/api/dashboard"
)

// Config contains dependencies needed for the router setup
type Config struct {
	DashboardHandler *dashboard.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Heartbeat/Health check endpoint
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Dashboard pages
	r.Get("/", cfg.DashboardHandler.Dashboard)
	r.Get("/map", cfg.DashboardHandler.MapPage)

	// JSON API
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/heat", func(r chi.Router) {
			r.Get("/points", cfg.DashboardHandler.HeatPoints)
			r.Get("/areas", cfg.DashboardHandler.HeatAreas)
			r.Get("/summary", cfg.DashboardHandler.HeatSummary)
			r.Get("/context", cfg.DashboardHandler.HeatContext)
			r.Get("/dataset", cfg.DashboardHandler.HeatDataset)
			r.Get("/risks", cfg.DashboardHandler.HeatRisks)
			r.Get("/assessment/{area}", cfg.DashboardHandler.Assessment)
		})
		r.Get("/environment", cfg.DashboardHandler.Environment)
		r.Get("/themes", cfg.DashboardHandler.Themes)
	})

	return r
}
