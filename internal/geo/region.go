package geo

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// DecodeRegion parses GeoJSON into a multipolygon region (EPSG:4326).
// It accepts a bare geometry, a Feature, or a FeatureCollection whose first
// feature carries the region. Plain polygons are promoted to multipolygons.
func DecodeRegion(data []byte) (orb.MultiPolygon, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	var geometry orb.Geometry
	switch envelope.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON feature: %w", err)
		}
		geometry = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON feature collection: %w", err)
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("feature collection contains no features")
		}
		geometry = fc.Features[0].Geometry
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON geometry: %w", err)
		}
		geometry = g.Geometry()
	}

	switch g := geometry.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, nil
	case orb.MultiPolygon:
		return g, nil
	default:
		return nil, fmt.Errorf("region must be a Polygon or MultiPolygon, got %s", geometry.GeoJSONType())
	}
}

// LoadRegion reads a region from a GeoJSON file.
func LoadRegion(path string) (orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	region, err := DecodeRegion(data)
	if err != nil {
		return nil, fmt.Errorf("region file %s: %w", path, err)
	}
	return region, nil
}

// AreaKm2 returns the geodesic area of the region in square kilometers.
func AreaKm2(region orb.MultiPolygon) float64 {
	return orbgeo.Area(region) / 1e6
}

// Covers reports whether region lies entirely inside coverage. Region
// vertices are nudged towards the region centroid before testing so that a
// region identical to the coverage still counts as covered.
func Covers(coverage, region orb.MultiPolygon) bool {
	if len(region) == 0 {
		return false
	}
	centroid, _ := planar.CentroidArea(region)
	const nudge = 1e-9
	for _, polygon := range region {
		for _, ring := range polygon {
			for _, point := range ring {
				p := orb.Point{
					point[0] + (centroid[0]-point[0])*nudge,
					point[1] + (centroid[1]-point[1])*nudge,
				}
				if !planar.MultiPolygonContains(coverage, p) {
					return false
				}
			}
		}
	}
	return true
}

// Contains reports whether the point at (lat, lon) is inside the region.
func Contains(region orb.MultiPolygon, lat, lon float64) bool {
	return planar.MultiPolygonContains(region, orb.Point{lon, lat})
}

// Centroid returns the (lat, lon) centroid of the region.
func Centroid(region orb.MultiPolygon) (lat, lon float64) {
	c, _ := planar.CentroidArea(region)
	return c[1], c[0]
}
