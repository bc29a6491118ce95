// Package web renders stored calculation runs as self-contained ECharts
// HTML pages. The charts are a quick way to eyeball a result without a
// frontend: an emission map built from the run's grid and a bar chart of
// the sector split.
package web

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/paulmach/orb/geojson"

	"space-emissions/internal/store"
	"space-emissions/internal/types"
)

var viridis = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// RenderRun writes a dashboard page for a finished run: the gridded
// emission map plus, when the run carries a sector split, a GNFR bar
// chart.
func RenderRun(w io.Writer, run *store.Run) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s run %s", run.Method, run.ID)

	if len(run.Grid) > 0 {
		scatter, err := emissionMap(run)
		if err != nil {
			return err
		}
		page.AddCharts(scatter)
	}
	if len(run.Table) > 0 {
		page.AddCharts(sectorBars(run))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

// emissionMap plots one point per grid cell at the cell center, colored
// by the cell's emission.
func emissionMap(run *store.Run) (*charts.Scatter, error) {
	fc, err := geojson.UnmarshalFeatureCollection(run.Grid)
	if err != nil {
		return nil, fmt.Errorf("failed to decode run grid: %w", err)
	}

	data := make([]opts.ScatterData, 0, len(fc.Features))
	maxVal := 0.0
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	for _, feature := range fc.Features {
		v, ok := cellEmission(feature)
		if !ok {
			continue
		}
		b := feature.Geometry.Bound()
		lon := (b.Min[0] + b.Max[0]) / 2
		lat := (b.Min[1] + b.Max[1]) / 2
		minLon = math.Min(minLon, b.Min[0])
		maxLon = math.Max(maxLon, b.Max[0])
		minLat = math.Min(minLat, b.Min[1])
		maxLat = math.Max(maxLat, b.Max[1])
		if v > maxVal {
			maxVal = v
		}
		data = append(data, opts.ScatterData{Value: []interface{}{lon, lat, v}})
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("run grid has no emission values")
	}
	if maxVal == 0 {
		maxVal = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Emissions %s", run.Pollutant),
			Subtitle: fmt.Sprintf("method=%s period=%s cells=%d", run.Method, run.Period, len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: minLon, Max: maxLon, Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minLat, Max: maxLat, Name: "Latitude", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries("emission [kt]", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	return scatter, nil
}

// cellEmission pulls a cell's emission out of its feature properties.
// Methods without a per-cell emission column fall back to "total".
func cellEmission(feature *geojson.Feature) (float64, bool) {
	for _, key := range []string{"emission [kt]", "total"} {
		raw, ok := feature.Properties[key]
		if !ok || raw == nil {
			continue
		}
		if v, ok := raw.(float64); ok && !math.IsNaN(v) {
			return v, true
		}
	}
	return 0, false
}

// sectorBars charts the run's GNFR sector split. The uncertainty range
// rides along in the item name so the tooltip shows it.
func sectorBars(run *store.Run) *charts.Bar {
	labels := make([]string, 0, len(run.Table))
	values := make([]opts.BarData, 0, len(run.Table))
	for _, sector := range types.Sectors() {
		row, ok := run.Table[sector.String()]
		if !ok || math.IsNaN(row.ValueKt) {
			continue
		}
		labels = append(labels, sector.String())
		values = append(values, opts.BarData{
			Name:  fmt.Sprintf("%s (-%.1f%% / +%.1f%%)", sector, row.UminPercent, row.UmaxPercent),
			Value: row.ValueKt,
		})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "GNFR sector split", Subtitle: "kilotonnes per year"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("emission [kt]", values,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}
