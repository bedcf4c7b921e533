package container

import (
	"context"
	"log/slog"
	"os"

	"github.com/ryanlimjk/heatwatch/config"
	"github.com/ryanlimjk/heatwatch/internal/api/aggregate"
	"github.com/ryanlimjk/heatwatch/internal/api/dashboard"
	"github.com/ryanlimjk/heatwatch/internal/api/enrich"
	"github.com/ryanlimjk/heatwatch/internal/api/fusion"
	generativeAI "github.com/ryanlimjk/heatwatch/internal/api/generative_ai"
	"github.com/ryanlimjk/heatwatch/internal/api/mitigation"
	"github.com/ryanlimjk/heatwatch/internal/api/onemap"
	"github.com/ryanlimjk/heatwatch/internal/api/rules"
	"github.com/ryanlimjk/heatwatch/internal/api/weather"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	OneMapClient     onemap.Client
	Resolver         onemap.Resolver
	Perception       weather.PerceptionService
	Aggregator       aggregate.Service
	Enricher         enrich.Service
	Fusion           fusion.Service
	Rules            rules.Engine
	Mitigation       mitigation.Service
	DashboardHandler *dashboard.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	onemapToken := cfg.OneMap.Token
	if onemapToken == "" {
		onemapToken = os.Getenv("ONEMAP_TOKEN")
	}
	onemapClient := onemap.NewClient(cfg.OneMap.BaseURL, onemapToken, cfg.OneMap.PlanningAreaYear, cfg.OneMap.CacheTTL, logger)
	resolver := onemap.NewResolver(onemapClient, logger)

	weatherClient := weather.NewClient(cfg.DataGov.BaseURL, logger)
	perception := weather.NewPerceptionService(weatherClient, logger)

	aiClient, err := generativeAI.NewAIClient(ctx, cfg.Gemini.Model)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", slog.Any("error", err))
		return nil, err
	}

	aggregator := aggregate.NewServiceImpl(perception, resolver, logger)
	enricher := enrich.NewServiceImpl(onemapClient, resolver, enrich.ThemeGroups{
		Green:       cfg.OneMap.GreenThemes,
		Commercial:  cfg.OneMap.CommercialThemes,
		Residential: cfg.OneMap.ResidentialThemes,
	}, logger)
	fusionSvc := fusion.NewServiceImpl(aggregator, enricher, logger)
	rulesEngine := rules.NewEngineImpl(fusionSvc, logger)
	mitigationSvc := mitigation.NewServiceImpl(aiClient, cfg.Gemini.AssessmentCacheTTL, logger)

	dashboardHandler := dashboard.NewHandler(
		perception, aggregator, enricher, fusionSvc, rulesEngine, mitigationSvc,
		resolver, onemapClient, logger,
	)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		OneMapClient:     onemapClient,
		Resolver:         resolver,
		Perception:       perception,
		Aggregator:       aggregator,
		Enricher:         enricher,
		Fusion:           fusionSvc,
		Rules:            rulesEngine,
		Mitigation:       mitigationSvc,
		DashboardHandler: dashboardHandler,
	}, nil
}
