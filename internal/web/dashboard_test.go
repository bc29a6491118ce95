package web

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-emissions/internal/store"
	"space-emissions/internal/types"
)

func finishedRun() *store.Run {
	grid := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[6,47],[6.125,47],[6.125,47.125],[6,47.125],[6,47]]]},
		 "properties":{"cell":0,"emission [kt]":1.5}},
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[6.125,47],[6.25,47],[6.25,47.125],[6.125,47.125],[6.125,47]]]},
		 "properties":{"cell":1,"emission [kt]":null}}
	]}`)
	return &store.Run{
		ID:        "run-1",
		Method:    "plume",
		Pollutant: types.PollutantNO2,
		Period:    types.MustDateRange("2019-06-01", "2019-06-30"),
		Grid:      grid,
		Table: map[string]types.SectorEmission{
			"A_PublicPower": {ValueKt: 2.5, UminPercent: 10, UmaxPercent: 15},
			"F_RoadTransport": {ValueKt: 1.0, UminPercent: 5, UmaxPercent: 5},
		},
	}
}

func TestRenderRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, finishedRun()))

	html := buf.String()
	assert.Contains(t, html, "Emissions NO2")
	assert.Contains(t, html, "GNFR sector split")
	assert.Contains(t, html, "A_PublicPower")
	assert.Contains(t, html, "1.5", "cell emission value must appear in the chart data")
}

func TestRenderRunWithoutSectorTable(t *testing.T) {
	run := finishedRun()
	run.Table = nil

	var buf bytes.Buffer
	require.NoError(t, RenderRun(&buf, run))
	assert.NotContains(t, buf.String(), "GNFR sector split")
}

func TestRenderRunBadGrid(t *testing.T) {
	run := finishedRun()
	run.Grid = []byte("not geojson")

	err := RenderRun(&bytes.Buffer{}, run)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode"))
}
