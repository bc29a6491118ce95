package types

import (
	"fmt"
	"math"
)

// SectorEmission is one row of an emission table: a sector total in
// kilotonnes with its lower and upper relative uncertainty in percent.
type SectorEmission struct {
	ValueKt     float64 `json:"value_kt"`
	UminPercent float64 `json:"umin_percent"`
	UmaxPercent float64 `json:"umax_percent"`
}

// EmissionTable holds per-GNFR-sector emissions for one pollutant.
// Rows default to NaN until a method fills them in, so sectors a method
// cannot attribute stay visibly empty rather than silently zero.
type EmissionTable struct {
	Pollutant Pollutant
	rows      map[GNFR]SectorEmission
}

// NewEmissionTable creates a table with one NaN row per GNFR sector.
func NewEmissionTable(p Pollutant) *EmissionTable {
	rows := make(map[GNFR]SectorEmission, len(gnfrNames))
	for _, s := range Sectors() {
		rows[s] = SectorEmission{ValueKt: math.NaN(), UminPercent: math.NaN(), UmaxPercent: math.NaN()}
	}
	return &EmissionTable{Pollutant: p, rows: rows}
}

// Set replaces the row for a sector.
func (t *EmissionTable) Set(s GNFR, row SectorEmission) {
	t.rows[s] = row
}

// Row returns the row for a sector.
func (t *EmissionTable) Row(s GNFR) SectorEmission {
	return t.rows[s]
}

// Totals sums all sector rows, combining their uncertainties. Sectors with
// a NaN value are skipped.
func (t *EmissionTable) Totals() SectorEmission {
	values := make([]float64, 0, len(t.rows))
	umins := make([]float64, 0, len(t.rows))
	umaxs := make([]float64, 0, len(t.rows))
	for _, s := range Sectors() {
		row := t.rows[s]
		if math.IsNaN(row.ValueKt) {
			continue
		}
		values = append(values, row.ValueKt)
		umins = append(umins, zeroIfNaN(row.UminPercent))
		umaxs = append(umaxs, zeroIfNaN(row.UmaxPercent))
	}
	total := SectorEmission{}
	for _, v := range values {
		total.ValueKt += v
	}
	// Rows built above are always well formed, so the error cases of
	// CombineUncertainties cannot trigger here.
	total.UminPercent, _ = CombineUncertainties(values, umins)
	total.UmaxPercent, _ = CombineUncertainties(values, umaxs)
	return total
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// CombineUncertainties merges relative uncertainties of independent
// quantities into the relative uncertainty of their sum:
// sqrt(sum((value*u)^2)) / sum(values). Entries with a NaN value are
// ignored; if every value is NaN the combined uncertainty is zero.
// Lengths must match and uncertainties must be >= 0 and not NaN.
func CombineUncertainties(values, uncertainties []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("no values to combine")
	}
	if len(values) != len(uncertainties) {
		return 0, fmt.Errorf("got %d values but %d uncertainties", len(values), len(uncertainties))
	}
	var squares, sum float64
	for i, v := range values {
		u := uncertainties[i]
		if math.IsNaN(u) || u < 0 {
			return 0, fmt.Errorf("invalid uncertainty %v at index %d", u, i)
		}
		if math.IsNaN(v) {
			continue
		}
		squares += (v * u) * (v * u)
		sum += v
	}
	if sum == 0 {
		return 0, nil
	}
	return math.Sqrt(squares) / sum, nil
}
