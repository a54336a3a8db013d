package halls

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

func (c *Controller) CreateHall(ctx *gin.Context) {
	var req CreateHallRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	hall, err := c.service.CreateHall(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrHallNameConflict) {
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "Hall already exists", nil)
			return
		}
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to create hall", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Hall created successfully", hall, nil)
}

func (c *Controller) GetHall(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Hall ID is required", "missing hall ID")
		return
	}

	hall, err := c.service.GetHallByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrHallNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Hall not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get hall", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hall retrieved successfully", hall, nil)
}

func (c *Controller) GetHalls(ctx *gin.Context) {
	var query HallListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters", err.Error())
		return
	}

	halls, err := c.service.GetHalls(ctx.Request.Context(), query)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to list halls", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Halls retrieved successfully", halls, nil)
}

func (c *Controller) GetHallLayout(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Hall ID is required", "missing hall ID")
		return
	}

	layout, err := c.service.GetHallLayout(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrHallNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Hall not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get hall layout", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hall layout retrieved successfully", layout, nil)
}

func (c *Controller) UpdateHall(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Hall ID is required", "missing hall ID")
		return
	}

	var req UpdateHallRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	hall, err := c.service.UpdateHall(ctx.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrHallNotFound):
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Hall not found", nil)
		case errors.Is(err, ErrHallNameConflict):
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "Hall name already in use", nil)
		default:
			response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to update hall", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hall updated successfully", hall, nil)
}

func (c *Controller) DeleteHall(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Hall ID is required", "missing hall ID")
		return
	}

	if err := c.service.DeleteHall(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, ErrHallNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Hall not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to delete hall", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hall deleted successfully", nil, nil)
}
