package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"space-emissions/internal/geo"
	"space-emissions/internal/methods"
	"space-emissions/internal/store"
	"space-emissions/internal/types"
)

// CreateCalculationInput is the body of a calculation request. The region
// is either inline GeoJSON or the name of a bundled region file.
type CreateCalculationInput struct {
	Method     string          `json:"method" binding:"required" example:"temis"`
	Pollutant  string          `json:"pollutant" binding:"required" example:"NOx"`
	Region     json.RawMessage `json:"region,omitempty"`
	RegionName string          `json:"region_name,omitempty" example:"germany"`
	Start      string          `json:"start" binding:"required" example:"2019-06-01"`
	End        string          `json:"end" binding:"required" example:"2019-06-30"`
}

// CalculationCreated is the response to an accepted calculation request.
type CalculationCreated struct {
	ID     string `json:"id"`
	Status string `json:"status" example:"running"`
}

// CalculationResponse is the status view of a run.
type CalculationResponse struct {
	ID        string                          `json:"id"`
	Method    string                          `json:"method"`
	Pollutant string                          `json:"pollutant"`
	Status    string                          `json:"status"`
	Progress  *float64                        `json:"progress,omitempty"`
	Error     string                          `json:"error,omitempty"`
	Start     string                          `json:"start"`
	End       string                          `json:"end"`
	Total     *types.SectorEmission           `json:"total,omitempty"`
	Sectors   map[string]types.SectorEmission `json:"sectors,omitempty"`
}

// handleCreateCalculation godoc
// @Summary Start a calculation
// @Description Validate a calculation request against the method's envelope and run it asynchronously. Poll the returned id for the result.
// @Tags calculations
// @Accept json
// @Produce json
// @Param request body CreateCalculationInput true "Calculation request"
// @Success 202 {object} CalculationCreated
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /calculations [post]
func (app *App) handleCreateCalculation(c *gin.Context) {
	var input CreateCalculationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	calc, ok := app.calculators[input.Method]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown method: " + input.Method})
		return
	}
	pollutant, err := types.ParsePollutant(input.Pollutant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	region, regionJSON, err := app.resolveRegion(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	period, err := types.NewDateRange(input.Start, input.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := methods.Validate(calc, region, period, pollutant); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := app.store.CreateRun(c.Request.Context(), calc.Name(), pollutant, regionJSON, period)
	if err != nil {
		app.logger.Error("failed to create run", "method", calc.Name(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create run"})
		return
	}

	// The request context dies with the response; the run gets its own.
	go app.executeRun(context.Background(), id, calc, region, period, pollutant)

	c.JSON(http.StatusAccepted, CalculationCreated{ID: id, Status: string(methods.StatusRunning)})
}

// executeRun performs one calculation and persists its outcome.
func (app *App) executeRun(ctx context.Context, id string, calc methods.Calculator, region orb.MultiPolygon, period types.DateRange, pollutant types.Pollutant) {
	ctx, cancel := context.WithTimeout(ctx, time.Hour)
	defer cancel()

	tracker := &methods.Progress{}
	app.progress.Store(id, tracker)
	defer app.progress.Delete(id)

	result, err := calc.Run(methods.WithProgress(ctx, tracker), region, period, pollutant)
	if err != nil {
		if failErr := app.store.FailRun(ctx, id, err); failErr != nil {
			app.logger.Error("failed to record run failure", "run_id", id, "error", failErr)
		}
		return
	}
	if err := app.store.FinishRun(ctx, id, result); err != nil {
		app.logger.Error("failed to store run result", "run_id", id, "error", err)
	}
}

// resolveRegion turns the request's region input into geometry plus the
// GeoJSON that gets persisted with the run.
func (app *App) resolveRegion(input CreateCalculationInput) (orb.MultiPolygon, []byte, error) {
	if len(input.Region) > 0 {
		region, err := geo.DecodeRegion(input.Region)
		if err != nil {
			return nil, nil, err
		}
		return region, input.Region, nil
	}
	if input.RegionName == "" {
		return nil, nil, errors.New("either region or region_name is required")
	}
	// Region names map to bundled files, so path characters are rejected.
	if strings.ContainsAny(input.RegionName, "/\\.") {
		return nil, nil, errors.New("invalid region name: " + input.RegionName)
	}
	path := filepath.Join(app.cfg.Data.RegionsDir, input.RegionName+".geo.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.New("unknown region: " + input.RegionName)
	}
	region, err := geo.DecodeRegion(data)
	if err != nil {
		return nil, nil, err
	}
	return region, data, nil
}

// handleGetCalculation godoc
// @Summary Get a calculation
// @Description Return the status of a run and, once ready, its emission totals and sector split
// @Tags calculations
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} CalculationResponse
// @Failure 404 {object} map[string]string
// @Router /calculations/{id} [get]
func (app *App) handleGetCalculation(c *gin.Context) {
	run, ok := app.loadRun(c)
	if !ok {
		return
	}
	resp := CalculationResponse{
		ID:        run.ID,
		Method:    run.Method,
		Pollutant: run.Pollutant.String(),
		Status:    string(run.Status),
		Error:     run.Error,
		Start:     run.Period.Start.Format("2006-01-02"),
		End:       run.Period.End.Format("2006-01-02"),
		Total:     run.Total,
		Sectors:   run.Table,
	}
	if tracker, ok := app.progress.Load(run.ID); ok {
		fraction := tracker.(*methods.Progress).Fraction()
		resp.Progress = &fraction
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetCalculationGrid godoc
// @Summary Get a calculation's grid
// @Description Return the gridded emissions of a ready run as a GeoJSON FeatureCollection
// @Tags calculations
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /calculations/{id}/grid [get]
func (app *App) handleGetCalculationGrid(c *gin.Context) {
	run, ok := app.loadRun(c)
	if !ok {
		return
	}
	if run.Status != methods.StatusReady || len(run.Grid) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "run is not ready: " + string(run.Status)})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", run.Grid)
}

// handleListCalculations godoc
// @Summary List calculations
// @Description List all runs, newest first
// @Tags calculations
// @Produce json
// @Success 200 {array} store.RunSummary
// @Router /calculations [get]
func (app *App) handleListCalculations(c *gin.Context) {
	runs, err := app.store.ListRuns(c.Request.Context())
	if err != nil {
		app.logger.Error("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	c.JSON(http.StatusOK, runs)
}

// loadRun fetches the run in the id parameter, writing the error
// response itself when that fails.
func (app *App) loadRun(c *gin.Context) (*store.Run, bool) {
	id := c.Param("id")
	run, err := app.store.GetRun(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run with id " + id})
		return nil, false
	}
	if err != nil {
		app.logger.Error("failed to load run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return nil, false
	}
	return run, true
}
