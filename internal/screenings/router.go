package screenings

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupScreeningRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	// Public billboard
	functions := rg.Group("/functions")
	{
		functions.GET("", controller.GetScreenings)
		functions.GET("/:id", controller.GetScreening)
	}

	admin := rg.Group("/admin/functions")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreateScreening)
		admin.PUT("/:id", controller.UpdateScreening)
		admin.PATCH("/:id/state", controller.UpdateState)
	}
}
