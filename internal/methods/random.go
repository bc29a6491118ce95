package methods

import (
	"context"
	"math/rand"
	"time"

	"github.com/paulmach/orb"

	"space-emissions/internal/geo"
	"space-emissions/internal/types"
)

// RandomCalculator produces made-up emission numbers. It exists so the API,
// store and CLI can be exercised end to end without any satellite data on
// disk, and as the simplest possible reference for new methods.
type RandomCalculator struct {
	rng *rand.Rand
}

func NewRandomCalculator() *RandomCalculator {
	return &RandomCalculator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewRandomCalculatorWithSeed pins the output for tests.
func NewRandomCalculatorWithSeed(seed int64) *RandomCalculator {
	return &RandomCalculator{rng: rand.New(rand.NewSource(seed))}
}

func (c *RandomCalculator) Name() string { return "random" }

func (c *RandomCalculator) MinimumAreaKm2() float64 { return 1 }

func (c *RandomCalculator) MinimumPeriodDays() int { return 1 }

func (c *RandomCalculator) Coverage() orb.MultiPolygon { return GlobalCoverage() }

func (c *RandomCalculator) EarliestStart() time.Time {
	return time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func (c *RandomCalculator) LatestEnd() time.Time {
	return time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func (c *RandomCalculator) Supports(types.Pollutant) bool { return true }

func (c *RandomCalculator) Run(ctx context.Context, region orb.MultiPolygon, period types.DateRange, p types.Pollutant) (*Result, error) {
	if err := Validate(c, region, period, p); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	progress := ProgressFrom(ctx)
	progress.SetTotal(1)
	defer progress.Step()

	table := types.NewEmissionTable(p)
	for _, sector := range types.Sectors() {
		table.Set(sector, types.SectorEmission{
			ValueKt:     c.rng.Float64() * 100,
			UminPercent: c.rng.Float64() * 18,
			UmaxPercent: c.rng.Float64() * 22,
		})
	}

	totals := table.Totals()

	// One cell spanning the region's bounding box carries the totals.
	bound := region.Bound()
	grid, err := geo.NewGrid(region, bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1], false)
	if err != nil {
		return nil, err
	}
	frame := geo.NewGridFrame(grid)
	if err := frame.SetColumn("total", []float64{totals.ValueKt}); err != nil {
		return nil, err
	}
	if err := frame.SetColumn("umin", []float64{totals.UminPercent}); err != nil {
		return nil, err
	}
	if err := frame.SetColumn("umax", []float64{totals.UmaxPercent}); err != nil {
		return nil, err
	}

	return &Result{Total: totals, Grid: frame, Table: table}, nil
}
