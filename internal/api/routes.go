package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// registerRoutes sets up all API endpoints
func (app *App) registerRoutes() {
	// Health check endpoint
	app.router.GET("/ping", app.handlePing)

	// Method catalogue
	app.router.GET("/methods", app.handleListMethods)

	// Calculation runs
	app.router.POST("/calculations", app.handleCreateCalculation)
	app.router.GET("/calculations", app.handleListCalculations)
	app.router.GET("/calculations/:id", app.handleGetCalculation)
	app.router.GET("/calculations/:id/grid", app.handleGetCalculationGrid)

	// Dashboard and bundled regions
	app.router.GET("/dashboard/:id", app.handleDashboard)
	app.router.GET("/regions", app.handleListRegions)

	// Swagger documentation
	app.router.GET("/swagger/*any", func(c *gin.Context) {
		path := c.Param("any")
		if path == "/" {
			c.Redirect(301, "/swagger/index.html")
			return
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler)(c)
	})
}
