package onemap

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/s2"
)

// Area is a planning area with its boundary parsed into S2 geometry. Raw
// GeoJSON is kept for serving the overlay without re-encoding.
type Area struct {
	Name     string
	GeoJSON  json.RawMessage
	polygons []*s2.Polygon
}

// Contains reports whether the point lies inside the area boundary.
func (a *Area) Contains(lat, lng float64) bool {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	for _, poly := range a.polygons {
		if poly.ContainsPoint(p) {
			return true
		}
	}
	return false
}

// geoJSONGeometry matches the geometry objects OneMap embeds per area.
// Polygon coordinates are [ring][vertex][lng,lat]; MultiPolygon adds one
// more nesting level.
type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func parseArea(item planningAreaItem) (Area, error) {
	if item.Name == "" {
		return Area{}, fmt.Errorf("planning area item missing name")
	}
	raw := item.GeoJSON
	if len(raw) == 0 {
		return Area{}, fmt.Errorf("planning area %s has no geometry", item.Name)
	}

	// Some API years serve the geometry as a JSON-encoded string.
	if raw[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err != nil {
			return Area{}, fmt.Errorf("failed to unquote geometry for %s: %w", item.Name, err)
		}
		raw = json.RawMessage(unquoted)
	}

	var geom geoJSONGeometry
	if err := json.Unmarshal(raw, &geom); err != nil {
		return Area{}, fmt.Errorf("failed to decode geometry for %s: %w", item.Name, err)
	}

	var polygons []*s2.Polygon
	switch geom.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return Area{}, fmt.Errorf("bad polygon coordinates for %s: %w", item.Name, err)
		}
		poly, err := polygonFromRings(rings)
		if err != nil {
			return Area{}, fmt.Errorf("bad polygon for %s: %w", item.Name, err)
		}
		polygons = append(polygons, poly)
	case "MultiPolygon":
		var multi [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &multi); err != nil {
			return Area{}, fmt.Errorf("bad multipolygon coordinates for %s: %w", item.Name, err)
		}
		for _, rings := range multi {
			poly, err := polygonFromRings(rings)
			if err != nil {
				return Area{}, fmt.Errorf("bad multipolygon part for %s: %w", item.Name, err)
			}
			polygons = append(polygons, poly)
		}
	default:
		return Area{}, fmt.Errorf("unsupported geometry type %q for %s", geom.Type, item.Name)
	}

	return Area{Name: item.Name, GeoJSON: raw, polygons: polygons}, nil
}

// polygonFromRings builds an S2 polygon from GeoJSON rings ([lng,lat] order).
// Loops are normalized so ring winding direction does not matter.
func polygonFromRings(rings [][][]float64) (*s2.Polygon, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("empty ring set")
	}
	loops := make([]*s2.Loop, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 3 {
			return nil, fmt.Errorf("ring with fewer than 3 vertices")
		}
		pts := make([]s2.Point, 0, len(ring))
		for _, coord := range ring {
			if len(coord) < 2 {
				return nil, fmt.Errorf("coordinate with fewer than 2 values")
			}
			pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(coord[1], coord[0])))
		}
		// GeoJSON rings repeat the first vertex at the end; S2 loops do not.
		if pts[0] == pts[len(pts)-1] {
			pts = pts[:len(pts)-1]
		}
		loop := s2.LoopFromPoints(pts)
		loop.Normalize()
		loops = append(loops, loop)
	}
	return s2.PolygonFromLoops(loops), nil
}
