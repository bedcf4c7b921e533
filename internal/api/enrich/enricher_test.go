package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ryanlimjk/heatwatch/internal/api/onemap"
	"github.com/ryanlimjk/heatwatch/internal/types"
)

type MockOneMapClient struct {
	mock.Mock
}

func (m *MockOneMapClient) PlanningAreas(ctx context.Context) ([]onemap.Area, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]onemap.Area), args.Error(1)
}

func (m *MockOneMapClient) ThemeData(ctx context.Context, queryName string) ([]types.ThemeItem, error) {
	args := m.Called(ctx, queryName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ThemeItem), args.Error(1)
}

func (m *MockOneMapClient) AllThemesInfo(ctx context.Context) ([]types.ThemeInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ThemeInfo), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) PlanningAreaAt(ctx context.Context, lat, lng float64) (string, error) {
	args := m.Called(ctx, lat, lng)
	return args.String(0), args.Error(1)
}

func (m *MockResolver) MapPoints(ctx context.Context, points [][2]float64) ([]onemap.MappedPoint, error) {
	args := m.Called(ctx, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]onemap.MappedPoint), args.Error(1)
}

func (m *MockResolver) Areas(ctx context.Context) ([]onemap.Area, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]onemap.Area), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGroups() ThemeGroups {
	return ThemeGroups{
		Green:       []string{"parks"},
		Commercial:  []string{"hotels"},
		Residential: []string{"kindergartens"},
	}
}

func TestContextFeatures(t *testing.T) {
	ctx := context.Background()
	client := new(MockOneMapClient)
	resolver := new(MockResolver)

	resolver.On("Areas", mock.Anything).Return([]onemap.Area{
		{Name: "BISHAN"},
		{Name: "ORCHARD"},
		{Name: "TUAS"},
	}, nil)

	// Four park points in Bishan, two in Orchard, none in Tuas.
	client.On("ThemeData", mock.Anything, "parks").Return([]types.ThemeItem{
		{Name: "P1", Lat: 1.35, Lng: 103.85},
		{Name: "P2", Lat: 1.35, Lng: 103.85},
		{Name: "P3", Lat: 1.35, Lng: 103.85},
		{Name: "P4", Lat: 1.35, Lng: 103.85},
		{Name: "P5", Lat: 1.30, Lng: 103.83},
		{Name: "P6", Lat: 1.30, Lng: 103.83},
	}, nil)
	client.On("ThemeData", mock.Anything, "hotels").Return([]types.ThemeItem{
		{Name: "H1", Lat: 1.30, Lng: 103.83},
		{Name: "H2", Lat: 1.30, Lng: 103.83},
		{Name: "H3", Lat: 1.30, Lng: 103.83},
		{Name: "H4", Lat: 1.30, Lng: 103.83},
	}, nil)
	client.On("ThemeData", mock.Anything, "kindergartens").Return([]types.ThemeItem{
		{Name: "K1", Lat: 1.35, Lng: 103.85},
		{Name: "K2", Lat: 1.35, Lng: 103.85},
		{Name: "K3", Lat: 1.35, Lng: 103.85},
		{Name: "K4", Lat: 1.30, Lng: 103.83},
	}, nil)

	resolver.On("PlanningAreaAt", mock.Anything, 1.35, 103.85).Return("BISHAN", nil)
	resolver.On("PlanningAreaAt", mock.Anything, 1.30, 103.83).Return("ORCHARD", nil)

	svc := NewServiceImpl(client, resolver, testGroups(), testLogger())
	features, err := svc.ContextFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 3)

	bishan := features[0]
	assert.Equal(t, "BISHAN", bishan.PlanningArea)
	assert.Equal(t, 1.0, bishan.GreenRatio)
	assert.Equal(t, types.DensityResidential, bishan.DensityType)

	orchard := features[1]
	assert.Equal(t, "ORCHARD", orchard.PlanningArea)
	assert.Equal(t, 0.5, orchard.GreenRatio)
	assert.Equal(t, types.DensityCommercial, orchard.DensityType)

	tuas := features[2]
	assert.Equal(t, "TUAS", tuas.PlanningArea)
	assert.Equal(t, 0.0, tuas.GreenRatio)
	assert.Equal(t, types.DensityUnknown, tuas.DensityType)
}

func TestContextFeaturesSkipsFailedThemes(t *testing.T) {
	ctx := context.Background()
	client := new(MockOneMapClient)
	resolver := new(MockResolver)

	resolver.On("Areas", mock.Anything).Return([]onemap.Area{{Name: "BISHAN"}}, nil)
	client.On("ThemeData", mock.Anything, "parks").Return(nil, errors.New("theme service down"))
	client.On("ThemeData", mock.Anything, "hotels").Return([]types.ThemeItem{
		{Name: "H1", Lat: 1.35, Lng: 103.85},
	}, nil)
	client.On("ThemeData", mock.Anything, "kindergartens").Return([]types.ThemeItem{}, nil)
	resolver.On("PlanningAreaAt", mock.Anything, 1.35, 103.85).Return("BISHAN", nil)

	svc := NewServiceImpl(client, resolver, testGroups(), testLogger())
	features, err := svc.ContextFeatures(ctx)
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, 0.0, features[0].GreenRatio)
	assert.Equal(t, types.DensityCommercial, features[0].DensityType)
}

func TestContextFeaturesAreasError(t *testing.T) {
	ctx := context.Background()
	client := new(MockOneMapClient)
	resolver := new(MockResolver)

	resolver.On("Areas", mock.Anything).Return(nil, errors.New("onemap unavailable"))

	svc := NewServiceImpl(client, resolver, testGroups(), testLogger())
	_, err := svc.ContextFeatures(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load planning areas")
}

func TestClassifyDensity(t *testing.T) {
	cases := []struct {
		name string
		comm int
		res  int
		want string
	}{
		{"no points", 0, 0, types.DensityUnknown},
		{"commercial dominated", 7, 3, types.DensityCommercial},
		{"residential dominated", 3, 7, types.DensityResidential},
		{"balanced", 5, 5, types.DensityMixed},
		{"exactly 60 percent commercial", 6, 4, types.DensityMixed},
		{"exactly 40 percent commercial", 4, 6, types.DensityMixed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyDensity(tc.comm, tc.res))
		})
	}
}
