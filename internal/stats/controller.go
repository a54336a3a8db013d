package stats

import (
	"errors"
	"net/http"
	"strconv"

	"cinetix/internal/screenings"
	"cinetix/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetFunctionOccupancy returns the live seat census for one function.
func (c *Controller) GetFunctionOccupancy(ctx *gin.Context) {
	occupancy, err := c.service.FunctionOccupancy(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, screenings.ErrScreeningNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to read occupancy", nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Occupancy retrieved successfully", occupancy, nil)
}

// GetFilmRanking returns the tickets-sold leaderboard. Accepts ?limit=N.
func (c *Controller) GetFilmRanking(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	ranking, err := c.service.FilmRanking(ctx.Request.Context(), limit)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to read film ranking", nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Film ranking retrieved successfully", ranking, nil)
}

// GetOverview returns the admin sales dashboard.
func (c *Controller) GetOverview(ctx *gin.Context) {
	overview, err := c.service.Overview(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to build overview", nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Overview retrieved successfully", overview, nil)
}
