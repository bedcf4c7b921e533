package aggregate

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

type MockPerceptionService struct {
	mock.Mock
}

func (m *MockPerceptionService) EnvironmentalContext(ctx context.Context, lat, lng float64) (*types.EnvironmentalContext, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.EnvironmentalContext), args.Error(1)
}

func (m *MockPerceptionService) IslandWideReadings(ctx context.Context, readingType types.ReadingType) ([]types.StationReading, error) {
	args := m.Called(ctx, readingType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.StationReading), args.Error(1)
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

func TestAggregateBucketsByPlanningArea(t *testing.T) {
	ctx := context.Background()
	weatherMock := new(MockPerceptionService)
	resolverMock := new(MockResolver)

	weatherMock.On("IslandWideReadings", mock.Anything, types.ReadingAirTemperature).Return([]types.StationReading{
		{StationID: "S1", Name: "Ang Mo Kio Ave 5", Lat: 1.37, Lng: 103.85, Value: 30.0},
		{StationID: "S2", Name: "Bishan St 13", Lat: 1.35, Lng: 103.84, Value: 31.0},
		{StationID: "S3", Name: "East Coast Pkwy", Lat: 1.30, Lng: 103.93, Value: 28.5},
		{StationID: "S4", Lat: 1.25, Lng: 103.82, Value: 27.0},
	}, nil)

	resolverMock.On("PlanningAreaAt", mock.Anything, 1.37, 103.85).Return("ANG MO KIO", nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 1.35, 103.84).Return("ANG MO KIO", nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 1.30, 103.93).Return("BEDOK", nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 1.25, 103.82).Return("", nil)

	svc := NewServiceImpl(weatherMock, resolverMock, testLogger())
	summaries, err := svc.Aggregate(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	amk := summaries[0]
	assert.Equal(t, "ANG MO KIO", amk.PlanningArea)
	assert.Equal(t, 30.5, amk.AvgTemp)
	assert.Equal(t, 31.0, amk.MaxTemp)
	assert.Equal(t, 2, amk.StationCount)
	assert.ElementsMatch(t, []string{"Ang Mo Kio Ave 5", "Bishan St 13"}, amk.Stations)

	bedok := summaries[1]
	assert.Equal(t, "BEDOK", bedok.PlanningArea)
	assert.Equal(t, 28.5, bedok.MaxTemp)
	assert.Equal(t, 1, bedok.StationCount)

	weatherMock.AssertExpectations(t)
	resolverMock.AssertExpectations(t)
}

func TestAggregateSortsByMaxTempDescending(t *testing.T) {
	ctx := context.Background()
	weatherMock := new(MockPerceptionService)
	resolverMock := new(MockResolver)

	weatherMock.On("IslandWideReadings", mock.Anything, types.ReadingAirTemperature).Return([]types.StationReading{
		{StationID: "S1", Name: "A", Lat: 1.0, Lng: 103.0, Value: 28.0},
		{StationID: "S2", Name: "B", Lat: 2.0, Lng: 103.0, Value: 32.0},
		{StationID: "S3", Name: "C", Lat: 3.0, Lng: 103.0, Value: 32.0},
	}, nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 1.0, 103.0).Return("QUEENSTOWN", nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 2.0, 103.0).Return("YISHUN", nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 3.0, 103.0).Return("BEDOK", nil)

	svc := NewServiceImpl(weatherMock, resolverMock, testLogger())
	summaries, err := svc.Aggregate(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	// Ties on max temperature break alphabetically.
	assert.Equal(t, "BEDOK", summaries[0].PlanningArea)
	assert.Equal(t, "YISHUN", summaries[1].PlanningArea)
	assert.Equal(t, "QUEENSTOWN", summaries[2].PlanningArea)
}

func TestAggregateUsesStationIDWhenNameMissing(t *testing.T) {
	ctx := context.Background()
	weatherMock := new(MockPerceptionService)
	resolverMock := new(MockResolver)

	weatherMock.On("IslandWideReadings", mock.Anything, types.ReadingAirTemperature).Return([]types.StationReading{
		{StationID: "S117", Lat: 1.3, Lng: 103.8, Value: 29.0},
	}, nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 1.3, 103.8).Return("NEWTON", nil)

	svc := NewServiceImpl(weatherMock, resolverMock, testLogger())
	summaries, err := svc.Aggregate(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"S117"}, summaries[0].Stations)
}

func TestAggregateEmptyReadings(t *testing.T) {
	ctx := context.Background()
	weatherMock := new(MockPerceptionService)
	resolverMock := new(MockResolver)

	weatherMock.On("IslandWideReadings", mock.Anything, types.ReadingAirTemperature).Return([]types.StationReading{}, nil)

	svc := NewServiceImpl(weatherMock, resolverMock, testLogger())
	summaries, err := svc.Aggregate(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	resolverMock.AssertNotCalled(t, "PlanningAreaAt")
}

func TestAggregateWeatherError(t *testing.T) {
	ctx := context.Background()
	weatherMock := new(MockPerceptionService)
	resolverMock := new(MockResolver)

	weatherMock.On("IslandWideReadings", mock.Anything, types.ReadingAirTemperature).Return(nil, errors.New("upstream down"))

	svc := NewServiceImpl(weatherMock, resolverMock, testLogger())
	_, err := svc.Aggregate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch temperatures")
}

func TestAggregateResolverError(t *testing.T) {
	ctx := context.Background()
	weatherMock := new(MockPerceptionService)
	resolverMock := new(MockResolver)

	weatherMock.On("IslandWideReadings", mock.Anything, types.ReadingAirTemperature).Return([]types.StationReading{
		{StationID: "S1", Name: "A", Lat: 1.3, Lng: 103.8, Value: 30.0},
	}, nil)
	resolverMock.On("PlanningAreaAt", mock.Anything, 1.3, 103.8).Return("", errors.New("boundaries unavailable"))

	svc := NewServiceImpl(weatherMock, resolverMock, testLogger())
	_, err := svc.Aggregate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve planning area")
}
