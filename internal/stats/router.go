package stats

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupStatsRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	stats := rg.Group("/stats")
	{
		// Public counters for lobby displays and listings.
		stats.GET("/functions/:id/occupancy", controller.GetFunctionOccupancy)
		stats.GET("/films/ranking", controller.GetFilmRanking)
	}

	admin := rg.Group("/admin/stats")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.GET("/overview", controller.GetOverview)
	}
}
