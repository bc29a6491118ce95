package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GridFrame couples a subset of grid cells with named per-cell value
// columns. Frames are what calculation methods return as their gridded
// result: one row per cell, one column per quantity.
type GridFrame struct {
	Grid    *Grid
	CellIDs []int
	columns []string
	values  map[string][]float64
}

// NewGridFrame creates a frame over every cell of the grid.
func NewGridFrame(grid *Grid) *GridFrame {
	ids := make([]int, grid.Len())
	for i := range ids {
		ids[i] = i
	}
	return &GridFrame{Grid: grid, CellIDs: ids, values: map[string][]float64{}}
}

// Len returns the number of rows (cells) in the frame.
func (f *GridFrame) Len() int {
	return len(f.CellIDs)
}

// Columns returns the column names in insertion order.
func (f *GridFrame) Columns() []string {
	return f.columns
}

// SetColumn stores a per-cell column. The slice length must match the
// number of rows.
func (f *GridFrame) SetColumn(name string, vals []float64) error {
	if len(vals) != len(f.CellIDs) {
		return fmt.Errorf("column %q has %d values for %d cells", name, len(vals), len(f.CellIDs))
	}
	if _, exists := f.values[name]; !exists {
		f.columns = append(f.columns, name)
	}
	f.values[name] = vals
	return nil
}

// Column returns a stored column, or false if absent.
func (f *GridFrame) Column(name string) ([]float64, bool) {
	vals, ok := f.values[name]
	return vals, ok
}

// Sum totals a column, skipping NaN entries.
func (f *GridFrame) Sum(name string) float64 {
	var total float64
	for _, v := range f.values[name] {
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Clip returns a new frame keeping only the cells that overlap the region.
// Column values are carried over row by row.
func (f *GridFrame) Clip(region orb.MultiPolygon) *GridFrame {
	kept := make([]int, 0, len(f.CellIDs))
	rows := make([]int, 0, len(f.CellIDs))
	for row, id := range f.CellIDs {
		if f.Grid.cellIntersects(id, region) {
			kept = append(kept, id)
			rows = append(rows, row)
		}
	}

	clipped := &GridFrame{Grid: f.Grid, CellIDs: kept, values: map[string][]float64{}}
	for _, name := range f.columns {
		src := f.values[name]
		vals := make([]float64, len(rows))
		for i, row := range rows {
			vals[i] = src[row]
		}
		clipped.columns = append(clipped.columns, name)
		clipped.values[name] = vals
	}
	return clipped
}

// ToGeoJSON renders the frame as a FeatureCollection with one polygon
// feature per cell and the column values as feature properties. NaN values
// are emitted as null since JSON has no NaN.
func (f *GridFrame) ToGeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for row, id := range f.CellIDs {
		b := f.Grid.Bound(id)
		polygon := orb.Polygon{orb.Ring{
			b.Min,
			{b.Max[0], b.Min[1]},
			b.Max,
			{b.Min[0], b.Max[1]},
			b.Min,
		}}
		feature := geojson.NewFeature(polygon)
		feature.Properties["cell"] = id
		for _, name := range f.columns {
			v := f.values[name][row]
			if math.IsNaN(v) {
				feature.Properties[name] = nil
			} else {
				feature.Properties[name] = v
			}
		}
		fc.Append(feature)
	}
	return fc
}
