package cancellation

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	cancellations := rg.Group("/cancellations")
	cancellations.Use(middleware.JWTAuthWithConfig(cfg))
	{
		cancellations.GET("", controller.ListMine)
		cancellations.GET("/transactions/:id", controller.GetForTransaction)
	}
}
