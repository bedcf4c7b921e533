package onemap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAreaPolygon(t *testing.T) {
	item := planningAreaItem{
		Name:    "TEST",
		GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[[[103.8,1.3],[103.9,1.3],[103.9,1.4],[103.8,1.4],[103.8,1.3]]]}`),
	}

	area, err := parseArea(item)
	require.NoError(t, err)
	assert.True(t, area.Contains(1.35, 103.85))
	assert.False(t, area.Contains(1.25, 103.85))
	assert.False(t, area.Contains(1.35, 103.95))
}

func TestParseAreaReversedWinding(t *testing.T) {
	// Same square with vertices in clockwise order. Normalized loops must
	// still describe the small region, not its complement.
	item := planningAreaItem{
		Name:    "TEST",
		GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[[[103.8,1.3],[103.8,1.4],[103.9,1.4],[103.9,1.3],[103.8,1.3]]]}`),
	}

	area, err := parseArea(item)
	require.NoError(t, err)
	assert.True(t, area.Contains(1.35, 103.85))
	assert.False(t, area.Contains(1.5, 104.5))
}

func TestParseAreaMultiPolygon(t *testing.T) {
	item := planningAreaItem{
		Name: "TWO ISLANDS",
		GeoJSON: json.RawMessage(`{"type":"MultiPolygon","coordinates":[
			[[[103.8,1.3],[103.82,1.3],[103.82,1.32],[103.8,1.32],[103.8,1.3]]],
			[[[103.9,1.4],[103.92,1.4],[103.92,1.42],[103.9,1.42],[103.9,1.4]]]
		]}`),
	}

	area, err := parseArea(item)
	require.NoError(t, err)
	assert.True(t, area.Contains(1.31, 103.81))
	assert.True(t, area.Contains(1.41, 103.91))
	assert.False(t, area.Contains(1.36, 103.86))
}

func TestParseAreaStringEncodedGeometry(t *testing.T) {
	item := planningAreaItem{
		Name:    "QUOTED",
		GeoJSON: json.RawMessage(`"{\"type\":\"Polygon\",\"coordinates\":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}"`),
	}

	area, err := parseArea(item)
	require.NoError(t, err)
	assert.True(t, area.Contains(0.5, 0.5))
}

func TestParseAreaRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		item planningAreaItem
	}{
		{"missing name", planningAreaItem{GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)}},
		{"no geometry", planningAreaItem{Name: "X"}},
		{"unsupported type", planningAreaItem{Name: "X", GeoJSON: json.RawMessage(`{"type":"Point","coordinates":[1,1]}`)}},
		{"empty rings", planningAreaItem{Name: "X", GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[]}`)}},
		{"degenerate ring", planningAreaItem{Name: "X", GeoJSON: json.RawMessage(`{"type":"Polygon","coordinates":[[[0,0],[1,1]]]}`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseArea(tc.item)
			assert.Error(t, err)
		})
	}
}
