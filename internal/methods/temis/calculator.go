package temis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"space-emissions/internal/geo"
	"space-emissions/internal/methods"
	"space-emissions/internal/types"
)

// DataSource hands out TEMIS monthly-mean grid files. The provider in
// internal/providers/temis implements it against temis.nl with a local
// file cache; tests implement it with fixtures.
type DataSource interface {
	MonthlyMeans(ctx context.Context, month time.Time) (io.ReadCloser, error)
}

// Calculator derives NOx emissions by aggregating TEMIS monthly-mean
// TROPOMI grids over the requested region and period. Each day contributes
// its month's mean daily rate, so a period spanning partial months weights
// the months by their day counts.
type Calculator struct {
	source DataSource
	logger *slog.Logger
	now    func() time.Time
}

func NewCalculator(source DataSource, logger *slog.Logger) *Calculator {
	return &Calculator{
		source: source,
		logger: logger.With("component", "temis_calculator"),
		now:    time.Now,
	}
}

func (c *Calculator) Name() string { return "temis" }

func (c *Calculator) MinimumAreaKm2() float64 { return 1e5 }

func (c *Calculator) MinimumPeriodDays() int { return 1 }

func (c *Calculator) Coverage() orb.MultiPolygon { return methods.MidLatitudeCoverage() }

func (c *Calculator) EarliestStart() time.Time {
	return time.Date(2018, time.February, 1, 0, 0, 0, 0, time.UTC)
}

// LatestEnd is the end of the month before the previous month. The
// monthly composites publish about a month behind real time.
func (c *Calculator) LatestEnd() time.Time {
	return methods.LastFullMonthEnd(c.now())
}

func (c *Calculator) Supports(p types.Pollutant) bool { return p == types.PollutantNOx }

func (c *Calculator) Run(ctx context.Context, region orb.MultiPolygon, period types.DateRange, p types.Pollutant) (*methods.Result, error) {
	if err := methods.Validate(c, region, period, p); err != nil {
		return nil, err
	}

	grid, err := geo.NewGrid(region, BinWidth, BinWidth, true)
	if err != nil {
		return nil, fmt.Errorf("building grid: %w", err)
	}
	frame := geo.NewGridFrame(grid)

	days := period.Dates()
	months := map[string]*MonthData{}
	progress := methods.ProgressFrom(ctx)
	progress.SetTotal(len(days))

	total := make([]float64, grid.Len())
	missingDays := make([]float64, grid.Len())

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := day.Format("2006-01")
		data, ok := months[key]
		if !ok {
			data, err = c.readMonth(ctx, day, grid)
			if err != nil {
				return nil, err
			}
			months[key] = data
		}

		column := make([]float64, grid.Len())
		for i := range column {
			column[i] = data.Values[i]
			total[i] += data.Values[i]
			if data.Missing[i] {
				missingDays[i]++
			}
		}
		if err := frame.SetColumn(day.Format("2006-01-02"), column); err != nil {
			return nil, err
		}
		progress.Step()
	}

	if err := frame.SetColumn("total", total); err != nil {
		return nil, err
	}
	if err := frame.SetColumn("missing days", missingDays); err != nil {
		return nil, err
	}

	clipped := frame.Clip(region)

	// Scale mean daily rates by cell area and count missing coverage as
	// uncertainty on each cell.
	area := make([]float64, clipped.Len())
	emission := make([]float64, clipped.Len())
	umin := make([]float64, clipped.Len())
	umax := make([]float64, clipped.Len())
	clippedTotal, _ := clipped.Column("total")
	clippedMissing, _ := clipped.Column("missing days")
	for row, id := range clipped.CellIDs {
		area[row] = clipped.Grid.AreaKm2(id)
		emission[row] = clippedTotal[row] * area[row] / 1e6
		uncertainty := 100 * clippedMissing[row] / float64(len(days))
		umin[row] = uncertainty
		umax[row] = uncertainty
	}
	if err := clipped.SetColumn("area [km2]", area); err != nil {
		return nil, err
	}
	if err := clipped.SetColumn("emission [kt]", emission); err != nil {
		return nil, err
	}
	if err := clipped.SetColumn("umin [%]", umin); err != nil {
		return nil, err
	}
	if err := clipped.SetColumn("umax [%]", umax); err != nil {
		return nil, err
	}

	combined, err := types.CombineUncertainties(emission, umin)
	if err != nil {
		return nil, fmt.Errorf("combining uncertainties: %w", err)
	}

	c.logger.Info("aggregation complete",
		"period", period.String(),
		"cells", clipped.Len(),
		"total_kt", clipped.Sum("emission [kt]"))

	return &methods.Result{
		Total: types.SectorEmission{
			ValueKt:     clipped.Sum("emission [kt]"),
			UminPercent: combined,
			UmaxPercent: combined,
		},
		Grid: clipped,
	}, nil
}

func (c *Calculator) readMonth(ctx context.Context, day time.Time, grid *geo.Grid) (*MonthData, error) {
	r, err := c.source.MonthlyMeans(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("fetching monthly means for %s: %w", day.Format("2006-01"), err)
	}
	defer func(r io.ReadCloser) {
		_ = r.Close()
	}(r)

	data, err := ParseMonth(r, grid)
	if err != nil {
		return nil, fmt.Errorf("parsing monthly means for %s: %w", day.Format("2006-01"), err)
	}
	return data, nil
}
