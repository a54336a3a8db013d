package films

import (
	"errors"
	"net/http"

	"cinetix/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) CreateFilm(ctx *gin.Context) {
	var req CreateFilmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	film, err := c.service.CreateFilm(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrFilmTitleConflict) {
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "Film already exists", nil)
			return
		}
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to create film", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Film created successfully", film, nil)
}

func (c *Controller) GetFilm(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Film ID is required", "missing film ID")
		return
	}

	film, err := c.service.GetFilmByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrFilmNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Film not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get film", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Film retrieved successfully", film, nil)
}

func (c *Controller) GetFilms(ctx *gin.Context) {
	var query FilmListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters", err.Error())
		return
	}

	films, err := c.service.GetFilms(ctx.Request.Context(), query)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to list films", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Films retrieved successfully", films, nil)
}

func (c *Controller) UpdateFilm(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Film ID is required", "missing film ID")
		return
	}

	var req UpdateFilmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	film, err := c.service.UpdateFilm(ctx.Request.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrFilmNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Film not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to update film", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Film updated successfully", film, nil)
}

func (c *Controller) DeleteFilm(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Film ID is required", "missing film ID")
		return
	}

	if err := c.service.DeleteFilm(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, ErrFilmNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Film not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to delete film", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Film deleted successfully", nil, nil)
}
