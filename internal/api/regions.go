package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegionInfo is one bundled region file usable as region_name in a
// calculation request.
type RegionInfo struct {
	Name string `json:"name" example:"germany"`
	File string `json:"file" example:"germany.geo.json"`
}

// handleListRegions godoc
// @Summary List bundled regions
// @Description List the region files shipped with the server
// @Tags regions
// @Produce json
// @Success 200 {array} RegionInfo
// @Router /regions [get]
func (app *App) handleListRegions(c *gin.Context) {
	entries, err := os.ReadDir(app.cfg.Data.RegionsDir)
	if err != nil {
		app.logger.Error("failed to read regions directory", "dir", app.cfg.Data.RegionsDir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list regions"})
		return
	}

	regions := make([]RegionInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".geo.json") {
			continue
		}
		regions = append(regions, RegionInfo{
			Name: strings.TrimSuffix(name, ".geo.json"),
			File: name,
		})
	}
	c.JSON(http.StatusOK, regions)
}
