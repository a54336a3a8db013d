package response

// Stable machine-readable error codes carried in the error envelope.
// Clients branch on these; messages are free to change, codes are not.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"

	// Seat inventory
	CodeInvalidSeat      = "INVALID_SEAT"
	CodeTooManySeats     = "TOO_MANY_SEATS"
	CodeSeatUnavailable  = "SEAT_UNAVAILABLE"
	CodeHoldLost         = "HOLD_LOST"
	CodeSalesClosed      = "SALES_CLOSED"
	CodeLockBusy         = "LOCK_BUSY"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"

	// Purchases
	CodePaymentDeclined    = "PAYMENT_DECLINED"
	CodePaymentUnavailable = "PAYMENT_UNAVAILABLE"
	CodePurchaseCancelled  = "PURCHASE_CANCELLED"
	CodeInvalidPromo       = "INVALID_PROMO"
	CodeNotCancellable     = "NOT_CANCELLABLE"
)
