package transactions

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a transaction.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
	StateRefunded   State = "refunded"
)

// Payment methods accepted at checkout.
const (
	MethodCreditCard = "credit_card"
	MethodDebitCard  = "debit_card"
	MethodCash       = "cash"
	MethodTransfer   = "transfer"
	MethodPoints     = "points"
)

var stateTransitions = map[State][]State{
	StatePending:    {StateProcessing, StateCancelled},
	StateProcessing: {StateConfirmed, StateFailed, StateCancelled},
	StateConfirmed:  {StateRefunded},
}

// CanTransitionTo reports whether moving to next is a legal lifecycle step.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
// Confirmed still allows the refund step, so it is not terminal here.
func (s State) IsTerminal() bool {
	return len(stateTransitions[s]) == 0
}

// Transaction is one purchase attempt: the priced seat batch, the payment
// outcome and the audit trail. Every attempt is kept, including failed and
// cancelled ones, so a user's history shows what happened.
type Transaction struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Invoice    string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"invoice"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	FunctionID uuid.UUID `gorm:"type:uuid;index;not null" json:"function_id"`
	FilmID     uuid.UUID `gorm:"type:uuid;index;not null" json:"film_id"`

	SubtotalMinor      int64  `gorm:"not null" json:"subtotal_minor"`
	CustomerDiscountBP int64  `gorm:"not null;default:0" json:"customer_discount_bp"`
	PromoCode          string `gorm:"type:varchar(20)" json:"promo_code,omitempty"`
	PromoDiscountBP    int64  `gorm:"not null;default:0" json:"promo_discount_bp"`
	DiscountMinor      int64  `gorm:"not null;default:0" json:"discount_minor"`
	TaxMinor           int64  `gorm:"not null;default:0" json:"tax_minor"`
	TotalMinor         int64  `gorm:"not null" json:"total_minor"`

	State     State  `gorm:"type:varchar(12);not null;default:'pending'" json:"state"`
	QRPayload string `gorm:"type:text" json:"qr_payload,omitempty"`

	// Audit fields
	OriginIP  string `gorm:"type:varchar(45)" json:"origin_ip,omitempty"`
	UserAgent string `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	Channel   string `gorm:"type:varchar(10);not null;default:'web'" json:"channel"`

	// Set the moment the payment capability is invoked. Cancellation is
	// only allowed while this is still nil.
	PaymentStartedAt *time.Time `json:"payment_started_at,omitempty"`

	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Seats   []TransactionSeat `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE;" json:"seats,omitempty"`
	Payment *Payment          `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE;" json:"payment,omitempty"`
}

// TransactionSeat is one priced line item of a transaction.
type TransactionSeat struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;index;not null" json:"transaction_id"`

	SeatCode string `gorm:"type:varchar(8);not null" json:"seat_code"`
	Row      string `gorm:"type:varchar(2);not null" json:"row"`
	Number   int    `gorm:"not null" json:"number"`
	Tier     string `gorm:"type:varchar(12);not null" json:"tier"`

	UnitPriceMinor  int64 `gorm:"not null" json:"unit_price_minor"`
	DiscountMinor   int64 `gorm:"not null;default:0" json:"discount_minor"`
	FinalPriceMinor int64 `gorm:"not null" json:"final_price_minor"`

	CreatedAt time.Time `json:"created_at"`
}

// Payment records the outcome of the payment capability for a transaction.
type Payment struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"transaction_id"`

	Method        string     `gorm:"type:varchar(20);not null" json:"method"`
	ExternalRef   string     `gorm:"type:varchar(64)" json:"external_ref,omitempty"`
	Last4         string     `gorm:"type:varchar(4)" json:"last4,omitempty"`
	Issuer        string     `gorm:"type:varchar(20)" json:"issuer,omitempty"`
	AuthCode      string     `gorm:"type:varchar(32)" json:"auth_code,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}

// TableName sets the table name for TransactionSeat
func (TransactionSeat) TableName() string {
	return "transaction_seats"
}

// TableName sets the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// SeatCodes returns the seat codes of the line items in order.
func (t *Transaction) SeatCodes() []string {
	codes := make([]string, len(t.Seats))
	for i, seat := range t.Seats {
		codes[i] = seat.SeatCode
	}
	return codes
}

// CanCancel reports whether the owner may still cancel: the state admits
// it and the payment capability has not been invoked yet.
func (t *Transaction) CanCancel() bool {
	if t.PaymentStartedAt != nil {
		return false
	}
	return t.State == StatePending || t.State == StateProcessing
}

// IsExpired reports whether the checkout window has elapsed.
func (t *Transaction) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func IsValidMethod(method string) bool {
	switch method {
	case MethodCreditCard, MethodDebitCard, MethodCash, MethodTransfer, MethodPoints:
		return true
	default:
		return false
	}
}

// QRData is the payload encoded into the ticket QR code.
type QRData struct {
	Invoice  string   `json:"invoice"`
	Function string   `json:"function"`
	Seats    []string `json:"seats"`
	User     string   `json:"user"`
}

// BuildQRPayload encodes the ticket reference as base64 JSON, the format
// scanned at the hall entrance.
func BuildQRPayload(invoice string, functionID, userID uuid.UUID, seats []string) string {
	data, err := json.Marshal(QRData{
		Invoice:  invoice,
		Function: functionID.String(),
		Seats:    seats,
		User:     userID.String(),
	})
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}
