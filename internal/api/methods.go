package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"space-emissions/internal/types"
)

// MethodInfo describes one calculation method and the envelope of
// requests it accepts.
type MethodInfo struct {
	Name              string    `json:"name" example:"temis"`
	MinimumAreaKm2    float64   `json:"minimum_area_km2" example:"100000"`
	MinimumPeriodDays int       `json:"minimum_period_days" example:"1"`
	EarliestStart     string    `json:"earliest_start" example:"2018-02-01"`
	LatestEnd         string    `json:"latest_end" example:"2021-02-28"`
	CoverageLatitudes []float64 `json:"coverage_latitudes" example:"-60,60"` // south and north limit
	Pollutants        []string  `json:"pollutants" example:"NOx"`
}

// handleListMethods godoc
// @Summary List calculation methods
// @Description List all available emission estimation methods with the region sizes, periods and pollutants they accept
// @Tags methods
// @Produce json
// @Success 200 {array} MethodInfo
// @Router /methods [get]
func (app *App) handleListMethods(c *gin.Context) {
	infos := make([]MethodInfo, 0, len(app.calculators))
	for _, calc := range app.calculators {
		var pollutants []string
		for _, p := range types.Pollutants() {
			if calc.Supports(p) {
				pollutants = append(pollutants, p.String())
			}
		}
		bound := calc.Coverage().Bound()
		infos = append(infos, MethodInfo{
			Name:              calc.Name(),
			MinimumAreaKm2:    calc.MinimumAreaKm2(),
			MinimumPeriodDays: calc.MinimumPeriodDays(),
			EarliestStart:     calc.EarliestStart().Format("2006-01-02"),
			LatestEnd:         calc.LatestEnd().Format("2006-01-02"),
			CoverageLatitudes: []float64{bound.Min[1], bound.Max[1]},
			Pollutants:        pollutants,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	c.JSON(http.StatusOK, infos)
}
