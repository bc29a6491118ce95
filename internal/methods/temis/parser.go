package temis

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"space-emissions/internal/geo"
)

const (
	// BinWidth is the cell size of the TEMIS monthly-mean grids in degrees.
	BinWidth = 0.125

	valuesPerLine = 20
	fieldWidth    = 4
)

// MonthData holds one month of gridded columns aligned to a calculation
// grid: one mean value per cell and a flag for cells the instrument did
// not see that month.
type MonthData struct {
	Values  []float64
	Missing []bool
}

// ParseMonth reads a TEMIS monthly-mean ASCII grid and maps its bins onto
// the given grid's cells. The format interleaves "lat=" headers with lines
// of twenty four-character integers, scanning each latitude band from
// -180° to +180°. Negative values mean no valid observation; they are
// recorded as missing and counted as zero.
//
// The grid is expected to be snapped to the bin width, so every grid cell
// coincides with exactly one bin. Bins outside the grid are skipped.
func ParseMonth(r io.Reader, grid *geo.Grid) (*MonthData, error) {
	data := &MonthData{
		Values:  make([]float64, grid.Len()),
		Missing: make([]bool, grid.Len()),
	}
	seen := make([]bool, grid.Len())

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	latCenter := 0.0
	inBand := false
	lonEdge := -180.0

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "lat=") {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[len("lat="):]), 64)
			if err != nil {
				return nil, fmt.Errorf("parsing latitude header %q: %w", line, err)
			}
			latCenter = v
			inBand = true
			lonEdge = -180.0
			continue
		}
		if !inBand || !isValueLine(line) {
			continue
		}

		for i := 0; i < valuesPerLine && (i+1)*fieldWidth <= len(line); i++ {
			field := strings.TrimSpace(line[i*fieldWidth : (i+1)*fieldWidth])
			value, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("parsing value %q at lat %g: %w", field, latCenter, err)
			}
			lonCenter := lonEdge + float64(i)*BinWidth + BinWidth/2
			cell := grid.CellIndex(latCenter, lonCenter)
			if cell < 0 {
				continue
			}
			seen[cell] = true
			if value < 0 {
				data.Missing[cell] = true
			} else {
				data.Values[cell] = float64(value)
			}
		}
		lonEdge += valuesPerLine * BinWidth
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading grid data: %w", err)
	}

	// Cells the file never mentioned have no observations either.
	for i, ok := range seen {
		if !ok {
			data.Missing[i] = true
		}
	}
	return data, nil
}

func isValueLine(line string) bool {
	if len(line) < fieldWidth {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSpace(line[:fieldWidth]))
	return err == nil
}
