package halls

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupHallRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	halls := rg.Group("/halls")
	{
		halls.GET("", controller.GetHalls)
		halls.GET("/:id", controller.GetHall)
		halls.GET("/:id/layout", controller.GetHallLayout)
	}

	admin := rg.Group("/admin/halls")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreateHall)
		admin.PUT("/:id", controller.UpdateHall)
		admin.DELETE("/:id", controller.DeleteHall)
	}
}
