package methods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"space-emissions/internal/geo"
	"space-emissions/internal/types"
)

// Status describes the lifecycle of a calculation run.
type Status string

const (
	StatusReady   Status = "ready"
	StatusRunning Status = "running"
	StatusFailed  Status = "failed"
)

// Result is what every calculation method produces: the total emission over
// the region and period, the same emissions spatially gridded, and, when the
// method can attribute emissions to sectors, a GNFR breakdown.
type Result struct {
	Total types.SectorEmission
	Grid  *geo.GridFrame

	// Table is nil for methods that estimate totals only.
	Table *types.EmissionTable
}

// Calculator estimates emissions of a pollutant over a region and period
// from earth observation data. Implementations declare the envelope they
// can reliably work in; Validate checks a request against it.
type Calculator interface {
	// Name identifies the method in the API and CLI.
	Name() string

	// MinimumAreaKm2 is the smallest region size the method works on.
	MinimumAreaKm2() float64

	// MinimumPeriodDays is the shortest period the method works on.
	MinimumPeriodDays() int

	// Coverage is the spatial envelope the method has data for.
	Coverage() orb.MultiPolygon

	// EarliestStart and LatestEnd bound the supported period.
	EarliestStart() time.Time
	LatestEnd() time.Time

	// Supports reports whether the method can estimate the pollutant.
	Supports(p types.Pollutant) bool

	Run(ctx context.Context, region orb.MultiPolygon, period types.DateRange, p types.Pollutant) (*Result, error)
}

// Validation failures surfaced to API clients as bad requests.
var (
	ErrUnsupportedPollutant = errors.New("pollutant not supported by this method")
	ErrRegionTooSmall       = errors.New("region is smaller than the method's minimum area")
	ErrRegionNotCovered     = errors.New("region is outside the method's coverage")
	ErrPeriodTooShort       = errors.New("period is shorter than the method's minimum length")
	ErrPeriodOutOfBounds    = errors.New("period is outside the method's supported dates")
)

// Validate checks a calculation request against the method's envelope.
func Validate(c Calculator, region orb.MultiPolygon, period types.DateRange, p types.Pollutant) error {
	if !c.Supports(p) {
		return fmt.Errorf("%w: %s cannot estimate %s", ErrUnsupportedPollutant, c.Name(), p)
	}
	if area := geo.AreaKm2(region); area < c.MinimumAreaKm2() {
		return fmt.Errorf("%w: %.0f km² < %.0f km²", ErrRegionTooSmall, area, c.MinimumAreaKm2())
	}
	if !geo.Covers(c.Coverage(), region) {
		return fmt.Errorf("%w: %s", ErrRegionNotCovered, c.Name())
	}
	if period.Days() < c.MinimumPeriodDays() {
		return fmt.Errorf("%w: %d days < %d days", ErrPeriodTooShort, period.Days(), c.MinimumPeriodDays())
	}
	if period.Start.Before(c.EarliestStart()) || period.End.After(c.LatestEnd()) {
		return fmt.Errorf("%w: %s not within [%s, %s]", ErrPeriodOutOfBounds, period,
			c.EarliestStart().Format("2006-01-02"), c.LatestEnd().Format("2006-01-02"))
	}
	return nil
}

// GlobalCoverage spans the whole globe.
func GlobalCoverage() orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{-180, -90}, {180, -90}, {180, 90}, {-180, 90}, {-180, -90},
	}}}
}

// MidLatitudeCoverage spans ±60° latitude, where polar-orbiting sounders
// deliver reliable daily columns.
func MidLatitudeCoverage() orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{-180, -60}, {180, -60}, {180, 60}, {-180, 60}, {-180, -60},
	}}}
}

// LastFullMonthEnd returns the last day of the month before the previous
// month, relative to now. Monthly satellite composites typically publish
// with one full month of delay, so this is the freshest safe end date.
func LastFullMonthEnd(now time.Time) time.Time {
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	endOfPrevious := firstOfMonth.AddDate(0, 0, -1)
	firstOfPrevious := time.Date(endOfPrevious.Year(), endOfPrevious.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfPrevious.AddDate(0, 0, -1)
}
