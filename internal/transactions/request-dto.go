package transactions

// PurchaseRequest is the checkout body. The seat batch cap and the sales
// window are enforced by the coordinator, not by binding rules.
type PurchaseRequest struct {
	FunctionID string    `json:"function" binding:"required,uuid"`
	Seats      []string  `json:"seats" binding:"required,min=1,dive,required"`
	Method     string    `json:"method" binding:"required,oneof=credit_card debit_card cash transfer points"`
	Promo      string    `json:"promo" binding:"omitempty,max=20"`
	Card       *CardInfo `json:"card" binding:"omitempty"`
}

// CardInfo is the non-sensitive card slice kept for the receipt. Full card
// data never reaches this service; the payment capability owns it.
type CardInfo struct {
	Last4  string `json:"last4" binding:"omitempty,len=4,numeric"`
	Issuer string `json:"issuer" binding:"omitempty,max=20"`
}

// HistoryQuery paginates a user's transaction listing.
type HistoryQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// RequestMeta carries the audit fields captured at the HTTP layer.
type RequestMeta struct {
	OriginIP  string
	UserAgent string
	Channel   string
}
