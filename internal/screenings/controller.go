package screenings

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

func (c *Controller) CreateScreening(ctx *gin.Context) {
	var req CreateScreeningRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	screening, err := c.service.CreateScreening(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrHallOccupied) {
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "Hall is occupied in that time slot", nil)
			return
		}
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to create function", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Function created successfully", screening, nil)
}

func (c *Controller) GetScreening(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Function ID is required", "missing function ID")
		return
	}

	screening, err := c.service.GetScreeningByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrScreeningNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get function", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Function retrieved successfully", screening, nil)
}

func (c *Controller) GetScreenings(ctx *gin.Context) {
	var query ScreeningListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters", err.Error())
		return
	}

	screenings, err := c.service.GetScreenings(ctx.Request.Context(), query)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to list functions", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Functions retrieved successfully", screenings, nil)
}

func (c *Controller) UpdateScreening(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Function ID is required", "missing function ID")
		return
	}

	var req UpdateScreeningRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	screening, err := c.service.UpdateScreening(ctx.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrScreeningNotFound):
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
		case errors.Is(err, ErrHallOccupied):
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "Hall is occupied in that time slot", nil)
		default:
			response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to update function", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Function updated successfully", screening, nil)
}

func (c *Controller) UpdateState(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Function ID is required", "missing function ID")
		return
	}

	var req UpdateStateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	screening, err := c.service.UpdateState(ctx.Request.Context(), id, req.State)
	if err != nil {
		switch {
		case errors.Is(err, ErrScreeningNotFound):
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			response.RespondError(ctx, http.StatusConflict, response.CodeConflict, "Invalid state transition", nil)
		default:
			response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Failed to update function state", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Function state updated successfully", screening, nil)
}
