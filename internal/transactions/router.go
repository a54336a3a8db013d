package transactions

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTransactionRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	txns := rg.Group("/transactions")
	txns.Use(middleware.JWTAuthWithConfig(cfg))
	{
		txns.POST("", controller.Purchase)
		txns.GET("", controller.ListTransactions)
		txns.GET("/:id", controller.GetTransaction)
		txns.POST("/:id/cancel", controller.CancelTransaction)
	}
}
