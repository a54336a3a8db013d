package cancellation

import (
	"errors"
	"net/http"
	"strconv"

	"cinetix/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// ListMine returns the caller's cancellation history, newest first.
func (c *Controller) ListMine(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	result, err := c.service.ListMine(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to list cancellations", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellations retrieved successfully", result, nil)
}

// GetForTransaction returns the audit row for one cancelled transaction,
// owner only.
func (c *Controller) GetForTransaction(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	record, err := c.service.GetForTransaction(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		if errors.Is(err, ErrCancellationNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Cancellation not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get cancellation", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation retrieved successfully", record, nil)
}
