package transactions

import (
	"errors"
	"net/http"

	"cinetix/internal/screenings"
	"cinetix/internal/seats"
	"cinetix/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// Purchase executes the full checkout for the authenticated caller and
// returns the receipt, confirmed or not at all.
func (c *Controller) Purchase(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	var req PurchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid request data", err.Error())
		return
	}

	meta := RequestMeta{
		OriginIP:  ctx.ClientIP(),
		UserAgent: ctx.Request.UserAgent(),
		Channel:   ctx.GetHeader("X-Sales-Channel"),
	}

	txn, err := c.service.Purchase(ctx.Request.Context(), userID, req, meta)
	if err != nil {
		c.respondPurchaseError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Purchase confirmed", txn, nil)
}

func (c *Controller) GetTransaction(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	txn, err := c.service.GetTransaction(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Transaction not found", nil)
			return
		}
		if errors.Is(err, seats.ErrStoreUnavailable) {
			response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "Store temporarily unavailable", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to get transaction", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transaction retrieved successfully", txn, nil)
}

// CancelTransaction voids a purchase the owner has not paid for yet and
// releases its seats.
func (c *Controller) CancelTransaction(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	txn, err := c.service.CancelTransaction(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrTransactionNotFound):
			response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Transaction not found", nil)
		case errors.Is(err, ErrNotCancellable):
			response.RespondError(ctx, http.StatusConflict, response.CodeNotCancellable, "Transaction can no longer be cancelled", nil)
		case errors.Is(err, seats.ErrStoreUnavailable):
			response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "Store temporarily unavailable", nil)
		default:
			response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to cancel transaction", nil)
		}
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transaction cancelled successfully", txn, nil)
}

func (c *Controller) ListTransactions(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		response.RespondError(ctx, http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required", nil)
		return
	}

	var query HistoryQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondError(ctx, http.StatusBadRequest, response.CodeValidation, "Invalid query parameters", err.Error())
		return
	}

	page, err := c.service.ListMine(ctx.Request.Context(), userID, query)
	if err != nil {
		if errors.Is(err, seats.ErrStoreUnavailable) {
			response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "Store temporarily unavailable", nil)
			return
		}
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to list transactions", nil)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Transactions retrieved successfully", page, nil)
}

func (c *Controller) respondPurchaseError(ctx *gin.Context, err error) {
	var unavailable *seats.SeatUnavailableError
	var lost *seats.HoldLostError
	var declined *PaymentDeclinedError
	switch {
	case errors.Is(err, ErrUserUnknown):
		response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "User not found", nil)
	case errors.Is(err, screenings.ErrScreeningNotFound):
		response.RespondError(ctx, http.StatusNotFound, response.CodeNotFound, "Function not found", nil)
	case errors.As(err, &unavailable):
		response.RespondError(ctx, http.StatusConflict, response.CodeSeatUnavailable, "Some seats are unavailable", gin.H{"conflicts": unavailable.Conflicts})
	case errors.As(err, &lost):
		response.RespondError(ctx, http.StatusConflict, response.CodeHoldLost, "Hold expired before confirmation, retry the purchase", gin.H{"seats": lost.Seats})
	case errors.Is(err, seats.ErrSalesClosed):
		response.RespondError(ctx, http.StatusGone, response.CodeSalesClosed, "Sales are closed for this function", nil)
	case errors.Is(err, seats.ErrInvalidSeat), errors.Is(err, seats.ErrNoSeats), errors.Is(err, seats.ErrTooManySeats):
		response.RespondError(ctx, http.StatusBadRequest, response.CodeInvalidSeat, "Invalid seat selection", nil)
	case errors.Is(err, ErrInvalidPromo):
		response.RespondError(ctx, http.StatusBadRequest, response.CodeInvalidPromo, "Unknown promo code", nil)
	case errors.As(err, &declined):
		response.RespondError(ctx, http.StatusPaymentRequired, response.CodePaymentDeclined, "Payment declined", declined.Reason)
	case errors.Is(err, ErrPaymentUnavailable):
		response.RespondError(ctx, http.StatusBadGateway, response.CodePaymentUnavailable, "Payment service unavailable, try again", nil)
	case errors.Is(err, ErrPurchaseCancelled):
		response.RespondError(ctx, http.StatusConflict, response.CodePurchaseCancelled, "Transaction was cancelled", nil)
	case errors.Is(err, seats.ErrLockBusy):
		response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeLockBusy, "Function is busy, try again", nil)
	case errors.Is(err, seats.ErrStoreUnavailable):
		response.RespondError(ctx, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "Store temporarily unavailable", nil)
	default:
		response.RespondError(ctx, http.StatusInternalServerError, response.CodeInternal, "Failed to complete purchase", nil)
	}
}
