package types

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days in UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from ISO dates ("2006-01-02"). The range is
// inclusive on both ends and start must not be after end.
func NewDateRange(start, end string) (DateRange, error) {
	s, err := time.ParseInLocation(dateLayout, start, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(dateLayout, end, time.UTC)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if s.After(e) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return DateRange{Start: s, End: e}, nil
}

// MustDateRange is NewDateRange that panics on error. Intended for
// package-level defaults and tests.
func MustDateRange(start, end string) DateRange {
	r, err := NewDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Days returns the number of days covered, counting both endpoints.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Dates returns every day in the range in ascending order.
func (r DateRange) Dates() []time.Time {
	days := make([]time.Time, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the day of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Equal reports whether both ranges cover the same days.
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s to %s, %d days]",
		r.Start.Format(dateLayout), r.End.Format(dateLayout), r.Days())
}
