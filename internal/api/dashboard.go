package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"space-emissions/internal/methods"
	"space-emissions/internal/web"
)

// handleDashboard godoc
// @Summary Run dashboard
// @Description Render a ready run as an HTML page with an emission map and, when available, a sector bar chart
// @Tags dashboard
// @Produce html
// @Param id path string true "Run id"
// @Success 200 {string} string "HTML page"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /dashboard/{id} [get]
func (app *App) handleDashboard(c *gin.Context) {
	run, ok := app.loadRun(c)
	if !ok {
		return
	}
	if run.Status != methods.StatusReady {
		c.JSON(http.StatusConflict, gin.H{"error": "run is not ready: " + string(run.Status)})
		return
	}

	var buf bytes.Buffer
	if err := web.RenderRun(&buf, run); err != nil {
		app.logger.Error("failed to render dashboard", "run_id", run.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render dashboard"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
