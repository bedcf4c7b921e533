package container

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanlimjk/heatwatch/config"
)

func TestNewContainer(t *testing.T) {
	t.Setenv("GOOGLE_GEMINI_API_KEY", "test-key")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Config{}
	cfg.OneMap.PlanningAreaYear = "2019"
	cfg.Gemini.Model = "gemini-2.0-flash"

	c, err := NewContainer(context.Background(), &cfg, logger)
	require.NoError(t, err)

	assert.NotNil(t, c.OneMapClient)
	assert.NotNil(t, c.Resolver)
	assert.NotNil(t, c.Perception)
	assert.NotNil(t, c.Aggregator)
	assert.NotNil(t, c.Enricher)
	assert.NotNil(t, c.Fusion)
	assert.NotNil(t, c.Rules)
	assert.NotNil(t, c.Mitigation)
	assert.NotNil(t, c.DashboardHandler)
	assert.Same(t, &cfg, c.Config)
}

func TestNewContainerRequiresGeminiKey(t *testing.T) {
	t.Setenv("GOOGLE_GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewContainer(context.Background(), &config.Config{}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_GEMINI_API_KEY")
}
