package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"space-emissions/internal/types"
)

// Grid is a regular lat/lon cell grid spanning a region's bounding box.
// Cells are numbered row-major starting at the bottom-left cell, so the
// last cell is the top-right corner of the grid.
type Grid struct {
	CellWidth  float64 // degrees longitude
	CellHeight float64 // degrees latitude
	MinLon     float64
	MinLat     float64
	Cols       int
	Rows       int
}

// NewGrid lays a grid over the region's bounds. When snap is set, the lower
// left corner of the lower left cell is aligned to multiples of the cell
// size; otherwise the region bounds are used directly. The grid always
// contains at least one cell per axis.
func NewGrid(region orb.MultiPolygon, width, height float64, snap bool) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %gx%g", width, height)
	}
	if len(region) == 0 {
		return nil, fmt.Errorf("region is empty")
	}
	bound := region.Bound()

	minLon, cols := axisSpan(bound.Min[0], bound.Max[0], width, snap)
	minLat, rows := axisSpan(bound.Min[1], bound.Max[1], height, snap)

	return &Grid{
		CellWidth:  width,
		CellHeight: height,
		MinLon:     minLon,
		MinLat:     minLat,
		Cols:       cols,
		Rows:       rows,
	}, nil
}

// axisSpan computes the grid origin and cell count along one axis. Snapping
// aligns the origin to the previous multiple of the step and pushes the top
// beyond the bound to the next multiple, except when the bound already sits
// on one; without snapping the bounds are used directly. At least one cell
// is always produced.
func axisSpan(min, max, step float64, snap bool) (origin float64, cells int) {
	if snap {
		origin = min - floorMod(min, step)
		top := max
		if m := floorMod(max, step); m != 0 {
			top = max + step - m
		}
		cells = int(math.Ceil((top - origin) / step))
	} else {
		cells = int(math.Ceil((max - min) / step))
		origin = min
	}
	if cells < 1 {
		cells = 1
	}
	return origin, cells
}

// floorMod is the remainder of a/b taken with the sign of b, so a negative
// coordinate still snaps downward.
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m < 0 {
		m += b
	}
	return m
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int {
	return g.Cols * g.Rows
}

// Bound returns the bounding box of cell i.
func (g *Grid) Bound(i int) orb.Bound {
	row, col := i/g.Cols, i%g.Cols
	minLon := g.MinLon + float64(col)*g.CellWidth
	minLat := g.MinLat + float64(row)*g.CellHeight
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{minLon + g.CellWidth, minLat + g.CellHeight},
	}
}

// Center returns the (lat, lon) center of cell i.
func (g *Grid) Center(i int) (lat, lon float64) {
	b := g.Bound(i)
	return (b.Min[1] + b.Max[1]) / 2, (b.Min[0] + b.Max[0]) / 2
}

// CellIndex returns the cell containing the point at (lat, lon), or -1 when
// the point is outside the grid.
func (g *Grid) CellIndex(lat, lon float64) int {
	col := int(math.Floor((lon - g.MinLon) / g.CellWidth))
	row := int(math.Floor((lat - g.MinLat) / g.CellHeight))
	if col < 0 || col >= g.Cols || row < 0 || row >= g.Rows {
		return -1
	}
	return row*g.Cols + col
}

// AreaKm2 returns the spherical surface area of cell i in km². For a
// lat/lon cell this is R²·Δλ·(sin φ₂ − sin φ₁) with the earth radius R.
func (g *Grid) AreaKm2(i int) float64 {
	b := g.Bound(i)
	dLon := (b.Max[0] - b.Min[0]) * math.Pi / 180
	phi1 := b.Min[1] * math.Pi / 180
	phi2 := b.Max[1] * math.Pi / 180
	return types.EarthRadiusKm * types.EarthRadiusKm * dLon * math.Abs(math.Sin(phi2)-math.Sin(phi1))
}

// Intersecting returns the indices of cells that overlap the region. A cell
// counts as overlapping when its center or any corner falls inside the
// region, or when a region vertex falls inside the cell.
func (g *Grid) Intersecting(region orb.MultiPolygon) []int {
	var indices []int
	for i := 0; i < g.Len(); i++ {
		if g.cellIntersects(i, region) {
			indices = append(indices, i)
		}
	}
	return indices
}

func (g *Grid) cellIntersects(i int, region orb.MultiPolygon) bool {
	b := g.Bound(i)
	// Corner samples are nudged into the cell interior so that a cell merely
	// sharing an edge with the region does not count as overlapping.
	dx := (b.Max[0] - b.Min[0]) * 1e-6
	dy := (b.Max[1] - b.Min[1]) * 1e-6
	samples := []orb.Point{
		{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2},
		{b.Min[0] + dx, b.Min[1] + dy},
		{b.Max[0] - dx, b.Max[1] - dy},
		{b.Min[0] + dx, b.Max[1] - dy},
		{b.Max[0] - dx, b.Min[1] + dy},
	}
	for _, p := range samples {
		if planar.MultiPolygonContains(region, p) {
			return true
		}
	}
	for _, polygon := range region {
		for _, ring := range polygon {
			for _, v := range ring {
				if v[0] > b.Min[0] && v[0] < b.Max[0] && v[1] > b.Min[1] && v[1] < b.Max[1] {
					return true
				}
			}
		}
	}
	return false
}
