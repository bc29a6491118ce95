package geo

import "github.com/tidwall/rtree"

// CellIndex answers point-to-cell lookups through an R-tree over the cell
// bounds. Methods binning large numbers of satellite observations use it
// instead of scanning cells, and unlike Grid.CellIndex it also works for
// frames that only hold a clipped subset of cells.
type CellIndex struct {
	tree rtree.RTreeG[int]
}

// NewCellIndex indexes the cells of a frame by their bounding boxes.
func NewCellIndex(frame *GridFrame) *CellIndex {
	idx := &CellIndex{}
	for row, id := range frame.CellIDs {
		b := frame.Grid.Bound(id)
		idx.tree.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, row)
	}
	return idx
}

// Lookup returns the frame row of the cell containing (lat, lon), or -1
// when the point is outside every indexed cell.
func (idx *CellIndex) Lookup(lat, lon float64) int {
	row := -1
	p := [2]float64{lon, lat}
	idx.tree.Search(p, p, func(_, _ [2]float64, data int) bool {
		row = data
		return false
	})
	return row
}
