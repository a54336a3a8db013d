package films

import (
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupFilmRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	films := rg.Group("/films")
	{
		// Public catalog
		films.GET("", controller.GetFilms)
		films.GET("/:id", controller.GetFilm)
	}

	admin := rg.Group("/admin/films")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreateFilm)
		admin.PUT("/:id", controller.UpdateFilm)
		admin.DELETE("/:id", controller.DeleteFilm)
	}
}
