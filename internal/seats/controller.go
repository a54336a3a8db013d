package seats

import (
	"errors"
	"net/http"

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

// GetSeatMap returns the live seat grid of a function. Seats held by the
// caller are flagged when the request carries a valid token.
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	functionID := ctx.Param("id")
	if functionID == "" {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Function ID is required", "missing function ID")
		return
	}

	viewerID := ctx.GetString("user_id")
	seatMap, err := c.service.QueryMap(ctx.Request.Context(), functionID, viewerID)
	if err != nil {
		if errors.Is(err, screenings.ErrScreeningNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get seat map", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

func (c *Controller) HoldSeats(ctx *gin.Context) {
	functionID := ctx.Param("id")
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	var req HoldSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	hold, err := c.service.TryHold(ctx.Request.Context(), functionID, userID, req.Seats)
	if err != nil {
		c.respondHoldError(ctx, err, "Failed to hold seats")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats held successfully", hold, nil)
}

func (c *Controller) ReleaseSeats(ctx *gin.Context) {
	functionID := ctx.Param("id")
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	var req ReleaseSeatsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	released, err := c.service.Release(ctx.Request.Context(), functionID, userID, req.Seats)
	if err != nil {
		c.respondHoldError(ctx, err, "Failed to release seats")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats released successfully", released, nil)
}

// RebuildSeatState rewrites a function's cache state from the durable
// record. Admin-only recovery path after a cache loss.
func (c *Controller) RebuildSeatState(ctx *gin.Context) {
	functionID := ctx.Param("id")

	result, err := c.service.Rebuild(ctx.Request.Context(), functionID)
	if err != nil {
		if errors.Is(err, screenings.ErrScreeningNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
			return
		}
		if errors.Is(err, ErrLockBusy) {
			response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeLockBusy, "Function is busy, try again", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to rebuild seat state", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat state rebuilt successfully", result, nil)
}

func (c *Controller) respondHoldError(ctx *gin.Context, err error, fallback string) {
	var unavailable *SeatUnavailableError
	switch {
	case errors.Is(err, screenings.ErrScreeningNotFound):
		response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
	case errors.As(err, &unavailable):
		response.RespondError(ctx, http.StatusConflict, response.CodeSeatUnavailable, "Some seats are unavailable", gin.H{"conflicts": unavailable.Conflicts})
	case errors.Is(err, ErrSalesClosed):
		response.RespondError(ctx, http.StatusGone, response.CodeSalesClosed, "Sales are closed for this function", nil)
	case errors.Is(err, ErrTooManySeats):
		response.RespondError(ctx, http.StatusBadRequest, response.CodeTooManySeats, "Too many seats requested", err.Error())
	case errors.Is(err, ErrInvalidSeat), errors.Is(err, ErrNoSeats):
		response.RespondError(ctx, http.StatusBadRequest, response.CodeInvalidSeat, "Invalid seat selection", err.Error())
	case errors.Is(err, ErrLockBusy):
		response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeLockBusy, "Function is busy, try again", nil)
	case errors.Is(err, ErrStoreUnavailable):
		response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "Store temporarily unavailable", nil)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, fallback, nil)
	}
}
