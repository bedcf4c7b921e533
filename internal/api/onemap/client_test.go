package onemap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A unit square around the origin, and a square near Bedok, as planning
// areas. The second area's geometry is served JSON-string-encoded the way
// older OneMap years do.
const planningAreaBody = `[
  {
    "pln_area_n": "ORIGIN SQUARE",
    "geojson": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
  },
  {
    "pln_area_n": "BEDOK",
    "geojson": "{\"type\": \"MultiPolygon\", \"coordinates\": [[[[103.90,1.31],[103.96,1.31],[103.96,1.35],[103.90,1.35],[103.90,1.31]]]]}"
  },
  {
    "pln_area_n": "BROKEN",
    "geojson": {"type": "Point", "coordinates": [1, 1]}
  }
]`

const themeBody = `{
  "SrchResults": [
    {"FeatCount": 2, "Theme_Name": "National Parks", "Category": "Environment"},
    {"NAME": "Bishan Park", "DESCRIPTION": "Park", "LatLng": "1.3623,103.8445"},
    {"NAME": "Garbled", "LatLng": "not,numbers"},
    {"NAME": "East Coast Park", "LatLng": " 1.3008 , 103.9122 "}
  ]
}`

const themesInfoBody = `{
  "Theme_Names": [
    {"THEMENAME": "National Parks", "QUERYNAME": "nationalparks"},
    {"THEMENAME": "Hotels", "QUERYNAME": "hotels"}
  ]
}`

func newTestOneMap(t *testing.T, handler http.Handler) *ClientImpl {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL, "test-token", "2019", time.Minute, logger)
}

func TestPlanningAreasParsesAndCaches(t *testing.T) {
	var calls atomic.Int32
	client := newTestOneMap(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/popapi/getAllPlanningarea", r.URL.Path)
		assert.Equal(t, "2019", r.URL.Query().Get("year"))
		assert.Equal(t, "test-token", r.Header.Get("Authorization"))
		w.Write([]byte(planningAreaBody))
	}))

	areas, err := client.PlanningAreas(context.Background())
	require.NoError(t, err)
	require.Len(t, areas, 2, "unparsable geometry should be skipped")
	assert.Equal(t, "ORIGIN SQUARE", areas[0].Name)
	assert.Equal(t, "BEDOK", areas[1].Name)

	// Second call must come from cache.
	_, err = client.PlanningAreas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAreaContains(t *testing.T) {
	client := newTestOneMap(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(planningAreaBody))
	}))

	areas, err := client.PlanningAreas(context.Background())
	require.NoError(t, err)

	origin := areas[0]
	assert.True(t, origin.Contains(0.5, 0.5))
	assert.False(t, origin.Contains(2.0, 2.0))

	bedok := areas[1]
	assert.True(t, bedok.Contains(1.33, 103.93))
	assert.False(t, bedok.Contains(1.29, 103.85))
}

func TestThemeDataSkipsMetadataAndBadCoords(t *testing.T) {
	client := newTestOneMap(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/themesvc/retrieveTheme", r.URL.Path)
		assert.Equal(t, "nationalparks", r.URL.Query().Get("queryName"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		w.Write([]byte(themeBody))
	}))

	items, err := client.ThemeData(context.Background(), "nationalparks")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Bishan Park", items[0].Name)
	assert.InDelta(t, 1.3623, items[0].Lat, 0.0001)
	assert.Equal(t, "East Coast Park", items[1].Name)
	assert.InDelta(t, 103.9122, items[1].Lng, 0.0001)
}

func TestAllThemesInfo(t *testing.T) {
	client := newTestOneMap(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(themesInfoBody))
	}))

	themes, err := client.AllThemesInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, themes, 2)
	assert.Equal(t, "nationalparks", themes[0].QueryName)
}

func TestResolverPlanningAreaAt(t *testing.T) {
	client := newTestOneMap(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(planningAreaBody))
	}))
	resolver := NewResolver(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	area, err := resolver.PlanningAreaAt(context.Background(), 1.33, 103.93)
	require.NoError(t, err)
	assert.Equal(t, "BEDOK", area)

	area, err = resolver.PlanningAreaAt(context.Background(), 1.5, 104.5)
	require.NoError(t, err)
	assert.Empty(t, area, "points outside every boundary resolve to empty")
}

func TestResolverMapPoints(t *testing.T) {
	client := newTestOneMap(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(planningAreaBody))
	}))
	resolver := NewResolver(client, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mapped, err := resolver.MapPoints(context.Background(), [][2]float64{
		{1.33, 103.93},
		{1.5, 104.5},
	})
	require.NoError(t, err)
	require.Len(t, mapped, 2)
	assert.Equal(t, "BEDOK", mapped[0].PlanningArea)
	assert.Empty(t, mapped[1].PlanningArea)
}

func TestParseLatLng(t *testing.T) {
	lat, lng, ok := parseLatLng("1.3521,103.8198")
	require.True(t, ok)
	assert.InDelta(t, 1.3521, lat, 0.0001)
	assert.InDelta(t, 103.8198, lng, 0.0001)

	_, _, ok = parseLatLng("no-comma")
	assert.False(t, ok)

	_, _, ok = parseLatLng("")
	assert.False(t, ok)
}
