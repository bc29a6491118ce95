package store

import (
	"context"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-emissions/internal/geo"
	"space-emissions/internal/methods"
	"space-emissions/internal/methods/plume"
	"space-emissions/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Migrate())

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestMigrateDown(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.MigrateDown())

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(0), version)
}

func TestProducts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	product := Product{
		UUID:          "11111111-2222-3333-4444-555555555555",
		Source:        "s5p",
		ProductType:   "L2__NO2___",
		Title:         "S5P_OFFL_L2__NO2____20190601T103559_x",
		MD5:           "abcdef0123456789abcdef0123456789",
		Size:          "450.15 MB",
		BeginPosition: time.Date(2019, time.June, 1, 10, 35, 59, 0, time.UTC),
		Path:          "/data/s5p/S5P_OFFL_L2__NO2____20190601T103559_x.nc",
	}
	require.NoError(t, s.RecordProduct(ctx, product))

	ok, err := s.HasProduct(ctx, product.UUID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.ProductByUUID(ctx, product.UUID)
	require.NoError(t, err)
	assert.Equal(t, product.Title, got.Title)
	assert.Equal(t, "s5p", got.Source)
	assert.Equal(t, "L2__NO2___", got.ProductType)
	assert.Equal(t, "450.15 MB", got.Size)
	assert.True(t, got.BeginPosition.Equal(product.BeginPosition))

	// Re-recording replaces the stored path.
	product.Path = "/elsewhere/file.nc"
	require.NoError(t, s.RecordProduct(ctx, product))
	got, err = s.ProductByUUID(ctx, product.UUID)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/file.nc", got.Path)

	_, err = s.ProductByUUID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = s.HasProduct(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObservations(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	day := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)

	inside := plume.Observation{Lat: 50, Lon: 8, Column: 12.5, WindU: 3, WindV: -1}
	outside := plume.Observation{Lat: 40, Lon: 8, Column: 9, WindU: 2, WindV: 0}
	require.NoError(t, s.InsertObservations(ctx, "", day, []plume.Observation{inside, outside}))

	region := orb.MultiPolygon{{{
		{6, 47}, {15, 47}, {15, 55}, {6, 55}, {6, 47},
	}}}

	got, err := s.Observations(ctx, region, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside, got[0])

	// Different day yields nothing.
	got, err = s.Observations(ctx, region, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImportObservationsCSV(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"day,lat,lon,vcd,wind_u,wind_v",
		"2019-06-01,50.1,8.2,14.5,3.0,-1.5",
		"2019-06-01,50.2,8.3,11.0,3.1,-1.4",
		"2019-06-02,50.1,8.2,9.5,2.0,0.5",
	}, "\n")

	count, err := s.ImportObservationsCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	region := orb.MultiPolygon{{{
		{8, 50}, {9, 50}, {9, 51}, {8, 51}, {8, 50},
	}}}
	got, err := s.Observations(ctx, region, time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.ImportObservationsCSV(ctx, strings.NewReader("lat,lon\n1,2"))
	assert.Error(t, err)
}

func TestImportObservationsCSVJoinsStoredWinds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	day := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)

	csvData := strings.Join([]string{
		"day,lat,lon,vcd,wind_u,wind_v",
		"2019-06-01,50.1,8.2,14.5,,",
	}, "\n")

	// No winds stored yet, the blank columns cannot be filled.
	_, err := s.ImportObservationsCSV(ctx, strings.NewReader(csvData))
	assert.ErrorIs(t, err, ErrNotFound)

	windCSV := strings.Join([]string{
		"day,level,lat,lon,u,v",
		"2019-06-01,1000,50.0,8.0,4.5,-2.0",
		"2019-06-01,950,50.0,8.0,9.0,1.0",
	}, "\n")
	count, err := s.ImportWindsCSV(ctx, strings.NewReader(windCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.ImportObservationsCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	region := orb.MultiPolygon{{{
		{8, 50}, {9, 50}, {9, 51}, {8, 51}, {8, 50},
	}}}
	got, err := s.Observations(ctx, region, day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4.5, got[0].WindU)
	assert.Equal(t, -2.0, got[0].WindV)
}

func TestWinds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	day := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertWinds(ctx, []Wind{
		{Day: day, Level: "1000", Lat: 50.0, Lon: 8.0, U: 3, V: 1},
		{Day: day, Level: "1000", Lat: 50.5, Lon: 8.5, U: 5, V: 2},
		{Day: day, Level: "950", Lat: 50.0, Lon: 8.0, U: 7, V: 3},
	}))

	w, err := s.WindAt(ctx, day, "1000", 50.1, 8.1)
	require.NoError(t, err)
	assert.Equal(t, 3.0, w.U)
	assert.Equal(t, 1.0, w.V)

	w, err = s.WindAt(ctx, day, "950", 50.1, 8.1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, w.U)

	_, err = s.WindAt(ctx, day.AddDate(0, 0, 1), "1000", 50, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func runResult(t *testing.T) *methods.Result {
	t.Helper()
	region := orb.MultiPolygon{{{
		{6, 47}, {15, 47}, {15, 55}, {6, 55}, {6, 47},
	}}}
	grid, err := geo.NewGrid(region, 9, 8, false)
	require.NoError(t, err)
	frame := geo.NewGridFrame(grid)
	require.NoError(t, frame.SetColumn("emission [kt]", []float64{3.5}))

	table := types.NewEmissionTable(types.PollutantNO2)
	table.Set(types.GNFRPublicPower, types.SectorEmission{ValueKt: 3.5, UminPercent: 10, UmaxPercent: 12})

	return &methods.Result{
		Total: types.SectorEmission{ValueKt: 3.5, UminPercent: 10, UmaxPercent: 12},
		Grid:  frame,
		Table: table,
	}
}

func TestRunLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	regionJSON := []byte(`{"type":"MultiPolygon","coordinates":[[[[6,47],[15,47],[15,55],[6,55],[6,47]]]]}`)
	period := types.MustDateRange("2019-06-01", "2019-06-30")

	id, err := s.CreateRun(ctx, "plume", types.PollutantNO2, regionJSON, period)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, methods.StatusRunning, run.Status)
	assert.Nil(t, run.Total)
	assert.Equal(t, types.PollutantNO2, run.Pollutant)
	assert.Equal(t, period, run.Period)

	require.NoError(t, s.FinishRun(ctx, id, runResult(t)))

	run, err = s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, methods.StatusReady, run.Status)
	require.NotNil(t, run.Total)
	assert.Equal(t, 3.5, run.Total.ValueKt)
	assert.NotEmpty(t, run.Grid)
	require.Contains(t, run.Table, "A_PublicPower")
	assert.Equal(t, 3.5, run.Table["A_PublicPower"].ValueKt)
}

func TestRunFailure(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, "temis", types.PollutantNOx, []byte(`{}`), types.MustDateRange("2019-06-01", "2019-06-30"))
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, id, assert.AnError))

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, methods.StatusFailed, run.Status)
	assert.Equal(t, assert.AnError.Error(), run.Error)
	assert.Nil(t, run.Total)
}

func TestListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := s.CreateRun(ctx, "random", types.PollutantCO, []byte(`{}`), types.MustDateRange("2019-01-01", "2019-01-31"))
	require.NoError(t, err)
	second, err := s.CreateRun(ctx, "temis", types.PollutantNOx, []byte(`{}`), types.MustDateRange("2019-06-01", "2019-06-30"))
	require.NoError(t, err)

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
	for _, r := range runs {
		if r.ID == second {
			assert.Equal(t, "2019-06-01 to 2019-06-30", r.Period)
			assert.Equal(t, methods.StatusRunning, r.Status)
		}
	}
}

func TestNanToNull(t *testing.T) {
	assert.Nil(t, nanToNull(math.NaN()))
	assert.Equal(t, 1.5, nanToNull(1.5))
}
