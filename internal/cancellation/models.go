package cancellation

import (
	"time"

	"github.com/google/uuid"
)

// Cancellation is the audit record written whenever an owner cancels a
// transaction before payment. The transaction row flips to cancelled; this
// row keeps who, when and over which channel, and survives even if the
// transaction is later purged.
type Cancellation struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"transaction_id"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	FunctionID    uuid.UUID `gorm:"type:uuid;index;not null" json:"function_id"`

	Invoice   string `gorm:"type:varchar(32);not null" json:"invoice"`
	SeatCount int    `gorm:"not null" json:"seat_count"`
	Reason    string `gorm:"type:varchar(200)" json:"reason,omitempty"`
	Channel   string `gorm:"type:varchar(10);not null;default:'web'" json:"channel"`

	CreatedAt time.Time `json:"created_at"`
}

func (Cancellation) TableName() string {
	return "cancellations"
}
