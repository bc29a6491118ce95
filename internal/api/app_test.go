package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"space-emissions/internal/config"
)

const testRegionJSON = `{"type":"Feature","geometry":{"type":"Polygon",
	"coordinates":[[[6,47],[15,47],[15,55],[6,55],[6,47]]]}}`

func testApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	regionsDir := filepath.Join(dir, "regions")
	require.NoError(t, os.MkdirAll(regionsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(regionsDir, "germany.geo.json"), []byte(testRegionJSON), 0o644))

	cfg := &config.Config{}
	cfg.Server.GinMode = gin.TestMode
	cfg.Data.Database = filepath.Join(dir, "emissions.db")
	cfg.Data.TemisDir = filepath.Join(dir, "temis")
	cfg.Data.RegionsDir = regionsDir

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := NewApp(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.store.Close() })
	return app
}

func do(app *App, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := do(testApp(t), http.MethodGet, "/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestListMethods(t *testing.T) {
	w := do(testApp(t), http.MethodGet, "/methods", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var infos []MethodInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 3)
	// Sorted by name.
	assert.Equal(t, "plume", infos[0].Name)
	assert.Equal(t, "random", infos[1].Name)
	assert.Equal(t, "temis", infos[2].Name)
	assert.Contains(t, infos[2].Pollutants, "NOx")
	assert.Equal(t, []float64{-60, 60}, infos[2].CoverageLatitudes)
}

func TestListRegions(t *testing.T) {
	w := do(testApp(t), http.MethodGet, "/regions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var regions []RegionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regions))
	require.Len(t, regions, 1)
	assert.Equal(t, "germany", regions[0].Name)
	assert.Equal(t, "germany.geo.json", regions[0].File)
}

func TestCalculationLifecycle(t *testing.T) {
	app := testApp(t)

	body := []byte(`{"method":"random","pollutant":"NO2","region_name":"germany",
		"start":"2019-06-01","end":"2019-06-30"}`)
	w := do(app, http.MethodPost, "/calculations", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var created CalculationCreated
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "running", created.Status)

	// The run executes in the background; wait for it to settle.
	var run CalculationResponse
	require.Eventually(t, func() bool {
		w := do(app, http.MethodGet, "/calculations/"+created.ID, nil)
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
			return false
		}
		return run.Status != "running"
	}, 10*time.Second, 50*time.Millisecond)

	require.Equal(t, "ready", run.Status, run.Error)
	require.NotNil(t, run.Total)
	assert.Greater(t, run.Total.ValueKt, 0.0)
	assert.NotEmpty(t, run.Sectors)

	w = do(app, http.MethodGet, "/calculations/"+created.ID+"/grid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FeatureCollection")

	w = do(app, http.MethodGet, "/dashboard/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "GNFR sector split")

	w = do(app, http.MethodGet, "/calculations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)
}

func TestCreateCalculationRejectsBadRequests(t *testing.T) {
	app := testApp(t)

	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown method", `{"method":"magic","pollutant":"NO2","region_name":"germany","start":"2019-06-01","end":"2019-06-30"}`, "unknown method"},
		{"unknown pollutant", `{"method":"random","pollutant":"XYZ","region_name":"germany","start":"2019-06-01","end":"2019-06-30"}`, "unknown pollutant"},
		{"missing region", `{"method":"random","pollutant":"NO2","start":"2019-06-01","end":"2019-06-30"}`, "region"},
		{"unknown region", `{"method":"random","pollutant":"NO2","region_name":"atlantis","start":"2019-06-01","end":"2019-06-30"}`, "unknown region"},
		{"path in region name", `{"method":"random","pollutant":"NO2","region_name":"../etc","start":"2019-06-01","end":"2019-06-30"}`, "invalid region name"},
		{"bad period", `{"method":"random","pollutant":"NO2","region_name":"germany","start":"2019-06-30","end":"2019-06-01"}`, "after end date"},
		{"unsupported pollutant", `{"method":"temis","pollutant":"NO2","region_name":"germany","start":"2019-06-01","end":"2019-06-30"}`, "not supported"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(app, http.MethodPost, "/calculations", []byte(tc.body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestGetCalculationNotFound(t *testing.T) {
	w := do(testApp(t), http.MethodGet, "/calculations/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
