package plume

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-emissions/internal/types"
)

type staticSource struct {
	observations []Observation
	err          error
}

func (s *staticSource) Observations(_ context.Context, _ orb.MultiPolygon, _ time.Time) ([]Observation, error) {
	return s.observations, s.err
}

func plumeTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// A 2°x2° box around 46°N, about 34000 km².
func plumeTestRegion() orb.MultiPolygon {
	return orb.MultiPolygon{{{
		{5, 45}, {7, 45}, {7, 47}, {5, 47}, {5, 45},
	}}}
}

// syntheticObservations forward-models the columns a single source at
// (srcLat, srcLon) would produce over the region under a uniform westerly
// wind, on top of a flat background.
func syntheticObservations(srcLat, srcLon, rate, background float64, opts Options) []Observation {
	const windU, windV = 5.0, 0.0
	direction := WindDirection(windU, windV)
	speed := WindSpeed(windU, windV)

	var observations []Observation
	for lat := 45.025; lat < 47; lat += 0.05 {
		for lon := 5.025; lon < 7; lon += 0.05 {
			x, y := RotateAroundSource(srcLat, srcLon, lat, lon, direction)
			column := background + rate*FlowContribution(x, y, speed, opts.Decay, opts.PlumeWidth)
			observations = append(observations, Observation{
				Lat: lat, Lon: lon, Column: column, WindU: windU, WindV: windV,
			})
		}
	}
	return observations
}

func TestMultiSourceCalculatorEnvelope(t *testing.T) {
	calc := NewMultiSourceCalculator(&staticSource{}, Options{}, plumeTestLogger())

	assert.Equal(t, "plume", calc.Name())
	assert.Equal(t, 1e4, calc.MinimumAreaKm2())
	assert.Equal(t, "2018-02-01", calc.EarliestStart().Format("2006-01-02"))
	for _, p := range types.Pollutants() {
		assert.Equal(t, p == types.PollutantNO2, calc.Supports(p), "pollutant %s", p)
	}
}

func TestMultiSourceCalculatorOptionsDefaults(t *testing.T) {
	opts := Options{}
	opts.applyDefaults(time.Date(2021, time.April, 19, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 7.0, opts.PlumeWidth)
	assert.InDelta(t, 1.0/3, opts.Decay, 1e-12)
	assert.Equal(t, 0.2, opts.Resolution)
	assert.Equal(t, 0.007, opts.Damping)
	assert.Equal(t, "2021-02-28", opts.LatestEnd.Format("2006-01-02"))

	kept := Options{PlumeWidth: 10, Damping: 0.1}
	kept.applyDefaults(time.Now())
	assert.Equal(t, 10.0, kept.PlumeWidth)
	assert.Equal(t, 0.1, kept.Damping)
}

func TestMultiSourceCalculatorRecoversPointSource(t *testing.T) {
	opts := Options{
		EarliestStart: time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC),
		LatestEnd:     time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	opts.applyDefaults(time.Now())

	region := plumeTestRegion()

	// Source in the middle of a grid cell near the region center.
	const srcLat, srcLon = 45.9, 5.9
	source := &staticSource{
		observations: syntheticObservations(srcLat, srcLon, 1000, 1, opts),
	}

	calc := NewMultiSourceCalculator(source, opts, plumeTestLogger())
	result, err := calc.Run(context.Background(), region,
		types.MustDateRange("2019-06-01", "2019-06-01"), types.PollutantNO2)
	require.NoError(t, err)
	require.Nil(t, result.Table)

	emissions, ok := result.Grid.Column("emission [kt]")
	require.True(t, ok)

	// The strongest fitted source should sit in the cell that actually
	// emitted.
	best := 0
	for i, v := range emissions {
		if v > emissions[best] {
			best = i
		}
	}
	lat, lon := result.Grid.Grid.Center(result.Grid.CellIDs[best])
	assert.InDelta(t, srcLat, lat, opts.Resolution, "fitted source latitude")
	assert.InDelta(t, srcLon, lon, opts.Resolution, "fitted source longitude")
	assert.Positive(t, result.Total.ValueKt)
}

func TestMultiSourceCalculatorNoObservations(t *testing.T) {
	calc := NewMultiSourceCalculator(&staticSource{}, Options{
		EarliestStart: time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC),
		LatestEnd:     time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC),
	}, plumeTestLogger())

	_, err := calc.Run(context.Background(), plumeTestRegion(),
		types.MustDateRange("2019-06-01", "2019-06-01"), types.PollutantNO2)
	assert.Error(t, err)
}

func TestMultiSourceCalculatorRejectsOutOfBounds(t *testing.T) {
	calc := NewMultiSourceCalculator(&staticSource{}, Options{
		EarliestStart: time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC),
		LatestEnd:     time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC),
	}, plumeTestLogger())

	_, err := calc.Run(context.Background(), plumeTestRegion(),
		types.MustDateRange("2019-07-01", "2019-07-15"), types.PollutantNO2)
	assert.Error(t, err)
}
