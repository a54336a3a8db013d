package seats

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	functions := rg.Group("/functions")
	{
		// Seat map is public; a token only adds the caller's "mine" flags.
		functions.GET("/:id/seats", middleware.OptionalAuthWithConfig(cfg), controller.GetSeatMap)

		holds := functions.Group("/:id/holds")
		holds.Use(middleware.JWTAuthWithConfig(cfg))
		{
			holds.POST("", controller.HoldSeats)
			holds.DELETE("", controller.ReleaseSeats)
		}
	}

	admin := rg.Group("/admin/functions")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.POST("/:id/rebuild", controller.RebuildSeatState)
	}
}
