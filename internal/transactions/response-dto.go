package transactions

import "time"

// SeatLineResponse is one priced seat of a transaction.
type SeatLineResponse struct {
	SeatCode        string `json:"seat_code"`
	Row             string `json:"row"`
	Number          int    `json:"number"`
	Tier            string `json:"tier"`
	UnitPriceMinor  int64  `json:"unit_price_minor"`
	DiscountMinor   int64  `json:"discount_minor"`
	FinalPriceMinor int64  `json:"final_price_minor"`
}

// PaymentResponse is the payment outcome attached to a transaction.
type PaymentResponse struct {
	Method        string     `json:"method"`
	Last4         string     `json:"last4,omitempty"`
	Issuer        string     `json:"issuer,omitempty"`
	AuthCode      string     `json:"auth_code,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// TransactionResponse is the full receipt returned to the owner.
type TransactionResponse struct {
	ID         string `json:"id"`
	Invoice    string `json:"invoice"`
	UserID     string `json:"user_id"`
	FunctionID string `json:"function_id"`
	FilmID     string `json:"film_id"`
	State      string `json:"state"`

	Seats []SeatLineResponse `json:"seats"`

	SubtotalMinor      int64  `json:"subtotal_minor"`
	CustomerDiscountBP int64  `json:"customer_discount_bp"`
	PromoCode          string `json:"promo_code,omitempty"`
	PromoDiscountBP    int64  `json:"promo_discount_bp,omitempty"`
	DiscountMinor      int64  `json:"discount_minor"`
	TaxMinor           int64  `json:"tax_minor"`
	TotalMinor         int64  `json:"total_minor"`

	QRPayload string           `json:"qr_payload,omitempty"`
	Payment   *PaymentResponse `json:"payment,omitempty"`
	Channel   string           `json:"channel"`

	ExpiresAt   time.Time  `json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PaginatedTransactions is a page of the caller's history, newest first.
type PaginatedTransactions struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int64                 `json:"total_count"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
	TotalPages   int                   `json:"total_pages"`
}

func (t *Transaction) ToResponse() TransactionResponse {
	resp := TransactionResponse{
		ID:                 t.ID.String(),
		Invoice:            t.Invoice,
		UserID:             t.UserID.String(),
		FunctionID:         t.FunctionID.String(),
		FilmID:             t.FilmID.String(),
		State:              string(t.State),
		Seats:              make([]SeatLineResponse, 0, len(t.Seats)),
		SubtotalMinor:      t.SubtotalMinor,
		CustomerDiscountBP: t.CustomerDiscountBP,
		PromoCode:          t.PromoCode,
		PromoDiscountBP:    t.PromoDiscountBP,
		DiscountMinor:      t.DiscountMinor,
		TaxMinor:           t.TaxMinor,
		TotalMinor:         t.TotalMinor,
		QRPayload:          t.QRPayload,
		Channel:            t.Channel,
		ExpiresAt:          t.ExpiresAt,
		ConfirmedAt:        t.ConfirmedAt,
		CancelledAt:        t.CancelledAt,
		CreatedAt:          t.CreatedAt,
	}

	for _, seat := range t.Seats {
		resp.Seats = append(resp.Seats, SeatLineResponse{
			SeatCode:        seat.SeatCode,
			Row:             seat.Row,
			Number:          seat.Number,
			Tier:            seat.Tier,
			UnitPriceMinor:  seat.UnitPriceMinor,
			DiscountMinor:   seat.DiscountMinor,
			FinalPriceMinor: seat.FinalPriceMinor,
		})
	}

	if t.Payment != nil {
		resp.Payment = &PaymentResponse{
			Method:        t.Payment.Method,
			Last4:         t.Payment.Last4,
			Issuer:        t.Payment.Issuer,
			AuthCode:      t.Payment.AuthCode,
			FailureReason: t.Payment.FailureReason,
			ProcessedAt:   t.Payment.ProcessedAt,
		}
	}
	return resp
}
