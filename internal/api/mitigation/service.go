package mitigation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/yuin/goldmark"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/ryanlimjk/heatwatch/app/observability/metrics"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

const defaultTemperatureParam = 0.5

// Generator abstracts the Gemini client so the service can be tested
// without network access.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
	Model() string
}

var _ Service = (*ServiceImpl)(nil)

// Service produces district-level heat mitigation assessments.
type Service interface {
	AssessDistrict(ctx context.Context, station string, temperature float64) (*types.Assessment, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	ai       Generator
	cache    *cache.Cache
	markdown goldmark.Markdown
}

func NewServiceImpl(ai Generator, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ServiceImpl{
		logger:   logger,
		ai:       ai,
		cache:    cache.New(cacheTTL, 2*cacheTTL),
		markdown: goldmark.New(),
	}
}

// AssessDistrict asks Gemini for a strategic assessment of the hotspot.
// Rate-limit errors degrade to a simulated analysis and any other failure
// to an offline notice, so the caller always gets renderable markdown.
// Responses are cached per station to respect upstream quotas.
func (s *ServiceImpl) AssessDistrict(ctx context.Context, station string, temperature float64) (*types.Assessment, error) {
	ctx, span := otel.Tracer("MitigationService").Start(ctx, "AssessDistrict")
	defer span.End()
	span.SetAttributes(
		attribute.String("station", station),
		attribute.Float64("temperature", temperature),
	)

	cacheKey := fmt.Sprintf("%s|%.1f", station, temperature)
	if cached, ok := s.cache.Get(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached.(*types.Assessment), nil
	}

	prompt := assessDistrictPrompt(station, temperature)
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](defaultTemperatureParam)}

	metrics.Get().GeminiCallsTotal.Add(ctx, 1)
	markdown, err := s.ai.GenerateContent(ctx, prompt, config)
	fallback := false
	if err != nil {
		span.RecordError(err)
		s.logger.WarnContext(ctx, "Gemini generation failed",
			slog.String("station", station), slog.Any("error", err))
		metrics.Get().GeminiFallbacksTotal.Add(ctx, 1)
		fallback = true
		if isRateLimited(err) {
			markdown = fallbackAssessment(station, temperature)
		} else {
			markdown = offlineNotice(station, err)
		}
	}

	html, err := s.renderHTML(markdown)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "markdown rendering failed")
		return nil, fmt.Errorf("failed to render assessment: %w", err)
	}

	assessment := &types.Assessment{
		ID:           uuid.New(),
		Station:      station,
		TemperatureC: temperature,
		Model:        s.ai.Model(),
		Markdown:     markdown,
		HTML:         html,
		Fallback:     fallback,
		GeneratedAt:  time.Now(),
	}
	s.cache.Set(cacheKey, assessment, cache.DefaultExpiration)

	span.SetAttributes(attribute.Bool("fallback", fallback))
	span.SetStatus(codes.Ok, "assessment generated")
	return assessment, nil
}

func (s *ServiceImpl) renderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
