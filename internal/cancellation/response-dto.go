package cancellation

import "time"

// CancellationResponse is one audit row as returned to its owner.
type CancellationResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	FunctionID    string    `json:"function_id"`
	Invoice       string    `json:"invoice"`
	SeatCount     int       `json:"seat_count"`
	Reason        string    `json:"reason,omitempty"`
	Channel       string    `json:"channel"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaginatedCancellations is a page of the caller's cancellations, newest
// first.
type PaginatedCancellations struct {
	Cancellations []CancellationResponse `json:"cancellations"`
	TotalCount    int64                  `json:"total_count"`
	Page          int                    `json:"page"`
	Limit         int                    `json:"limit"`
}

func toResponse(c *Cancellation) CancellationResponse {
	return CancellationResponse{
		ID:            c.ID.String(),
		TransactionID: c.TransactionID.String(),
		FunctionID:    c.FunctionID.String(),
		Invoice:       c.Invoice,
		SeatCount:     c.SeatCount,
		Reason:        c.Reason,
		Channel:       c.Channel,
		CreatedAt:     c.CreatedAt,
	}
}
