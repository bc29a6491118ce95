package plume

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"

	"space-emissions/internal/geo"
	"space-emissions/internal/methods"
	"space-emissions/internal/types"
)

// Observation is one satellite column retrieval with the wind at its
// location and overpass time. The store joins reanalysis winds onto the
// retrievals before they reach the calculator.
type Observation struct {
	Lat    float64
	Lon    float64
	Column float64
	WindU  float64
	WindV  float64
}

// ObservationSource delivers the retrievals overlapping a region for one
// day.
type ObservationSource interface {
	Observations(ctx context.Context, region orb.MultiPolygon, day time.Time) ([]Observation, error)
}

// Options tune the source fit. Zero values fall back to defaults that
// work for NO2 plumes at TROPOMI resolution.
type Options struct {
	// PlumeWidth is the Gaussian plume width in km.
	PlumeWidth float64
	// Decay is the pollutant decay rate per hour.
	Decay float64
	// Resolution is the candidate source grid cell size in degrees.
	Resolution float64
	// Damping regularizes the least squares fit.
	Damping float64
	// MaxIterations bounds the solver.
	MaxIterations int
	// EarliestStart and LatestEnd bound the supported period. LatestEnd
	// falls back to the end of the month before the previous month.
	EarliestStart time.Time
	LatestEnd     time.Time
}

func (o *Options) applyDefaults(now time.Time) {
	if o.PlumeWidth == 0 {
		o.PlumeWidth = 7
	}
	if o.Decay == 0 {
		o.Decay = 1.0 / 3
	}
	if o.Resolution == 0 {
		o.Resolution = 0.2
	}
	if o.Damping == 0 {
		o.Damping = 0.007
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 500
	}
	if o.EarliestStart.IsZero() {
		o.EarliestStart = time.Date(2018, time.February, 1, 0, 0, 0, 0, time.UTC)
	}
	if o.LatestEnd.IsZero() {
		o.LatestEnd = methods.LastFullMonthEnd(now)
	}
}

// MultiSourceCalculator fits emissions of a whole field of candidate
// sources to satellite columns at once, following Fioletov et al. (2017).
// Every grid cell is a potential source; a damped least squares fit
// distributes the observed columns over them.
type MultiSourceCalculator struct {
	source ObservationSource
	opts   Options
	logger *slog.Logger
}

func NewMultiSourceCalculator(source ObservationSource, opts Options, logger *slog.Logger) *MultiSourceCalculator {
	opts.applyDefaults(time.Now())
	return &MultiSourceCalculator{
		source: source,
		opts:   opts,
		logger: logger.With("component", "plume_calculator"),
	}
}

func (c *MultiSourceCalculator) Name() string { return "plume" }

func (c *MultiSourceCalculator) MinimumAreaKm2() float64 { return 1e4 }

func (c *MultiSourceCalculator) MinimumPeriodDays() int { return 1 }

func (c *MultiSourceCalculator) Coverage() orb.MultiPolygon { return methods.MidLatitudeCoverage() }

func (c *MultiSourceCalculator) EarliestStart() time.Time { return c.opts.EarliestStart }

func (c *MultiSourceCalculator) LatestEnd() time.Time { return c.opts.LatestEnd }

func (c *MultiSourceCalculator) Supports(p types.Pollutant) bool { return p == types.PollutantNO2 }

func (c *MultiSourceCalculator) Run(ctx context.Context, region orb.MultiPolygon, period types.DateRange, p types.Pollutant) (*methods.Result, error) {
	if err := methods.Validate(c, region, period, p); err != nil {
		return nil, err
	}

	grid, err := geo.NewGrid(region, c.opts.Resolution, c.opts.Resolution, true)
	if err != nil {
		return nil, fmt.Errorf("building source grid: %w", err)
	}

	days := period.Dates()
	progress := methods.ProgressFrom(ctx)
	// One step per day of observations plus one for the fit itself.
	progress.SetTotal(len(days) + 1)

	var observations []Observation
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		daily, err := c.source.Observations(ctx, region, day)
		if err != nil {
			return nil, fmt.Errorf("loading observations for %s: %w", day.Format("2006-01-02"), err)
		}
		observations = append(observations, daily...)
		progress.Step()
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations for %s", period)
	}

	matrix, columns, used := c.buildSystem(grid, observations)
	if len(columns) == 0 {
		return nil, fmt.Errorf("no usable observations for %s", period)
	}

	c.subtractBias(grid, used, columns)

	solution := lsqr(matrix, columns, c.opts.Damping, c.opts.MaxIterations)
	progress.Step()

	// Rates fitted in column units convert to kt per year via the decay
	// rate and the molar mass.
	conversion := c.opts.Decay * 1e6 * types.MolarMassNO2 * 365 * 24 * 1e-6
	emissions := make([]float64, grid.Len())
	for i, v := range solution {
		emissions[i] = v * conversion
	}

	frame := geo.NewGridFrame(grid)
	if err := frame.SetColumn("emission [kt]", emissions); err != nil {
		return nil, err
	}
	clipped := frame.Clip(region)

	c.logger.Info("source fit complete",
		"period", period.String(),
		"observations", len(columns),
		"mean_enhancement_1e15_mlc_cm2", stat.Mean(columns, nil)*types.MolPerM2To1e15MoleculesPerCm2,
		"sources", grid.Len(),
		"total_kt", clipped.Sum("emission [kt]"))

	return &methods.Result{
		Total: types.SectorEmission{ValueKt: clipped.Sum("emission [kt]")},
		Grid:  clipped,
	}, nil
}

// buildSystem assembles the design matrix linking candidate source rates
// to observed columns. Observations without wind or outside the source
// grid are dropped.
func (c *MultiSourceCalculator) buildSystem(grid *geo.Grid, observations []Observation) (*sparseMatrix, []float64, []Observation) {
	matrix := newSparseMatrix(grid.Len())
	columns := make([]float64, 0, len(observations))
	used := make([]Observation, 0, len(observations))

	row := make([]float64, grid.Len())
	for _, obs := range observations {
		speed := WindSpeed(obs.WindU, obs.WindV)
		if speed == 0 || grid.CellIndex(obs.Lat, obs.Lon) < 0 {
			continue
		}
		direction := WindDirection(obs.WindU, obs.WindV)

		for i := range row {
			srcLat, srcLon := grid.Center(i)
			x, y := RotateAroundSource(srcLat, srcLon, obs.Lat, obs.Lon, direction)
			row[i] = FlowContribution(x, y, speed, c.opts.Decay, c.opts.PlumeWidth)
		}
		matrix.appendRow(row, 1e-12)
		columns = append(columns, obs.Column)
		used = append(used, obs)
	}
	return matrix, columns, used
}

// subtractBias removes the smooth background from the columns. The bias
// of each source grid cell is the 5% quantile of the columns observed in
// it, so only enhancements above the local background drive the fit.
func (c *MultiSourceCalculator) subtractBias(grid *geo.Grid, observations []Observation, columns []float64) {
	idx := geo.NewCellIndex(geo.NewGridFrame(grid))
	cells := make([]int, len(observations))
	perCell := map[int][]float64{}
	for i, obs := range observations {
		cells[i] = idx.Lookup(obs.Lat, obs.Lon)
		perCell[cells[i]] = append(perCell[cells[i]], columns[i])
	}

	bias := map[int]float64{}
	for cell, vals := range perCell {
		sort.Float64s(vals)
		bias[cell] = stat.Quantile(0.05, stat.Empirical, vals, nil)
	}

	for i := range observations {
		columns[i] -= bias[cells[i]]
	}
}
