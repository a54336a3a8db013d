package seats

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Selection lifecycle. A selection starts temporary while the hold lives in
// Redis, then settles into exactly one terminal status.
const (
	SelectionTemporary = "temporary"
	SelectionConfirmed = "confirmed"
	SelectionCancelled = "cancelled"
	SelectionExpired   = "expired"
)

// SeatSelection is the durable mirror of a Redis hold. It exists for audit
// and for rebuilding the bitmap after a cache loss; the Redis hold key stays
// authoritative while the selection is temporary.
type SeatSelection struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FunctionID uuid.UUID `gorm:"type:uuid;index;not null" json:"function_id"`
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	SeatCode   string    `gorm:"type:varchar(8);not null" json:"seat_code"`
	Status     string    `gorm:"type:varchar(12);not null;default:'temporary'" json:"status"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SeatSelection) TableName() string {
	return "selections"
}

func (s *SeatSelection) IsExpired(now time.Time) bool {
	return s.Status == SelectionTemporary && now.After(s.ExpiresAt)
}

// HoldRecord is the JSON payload stored under hold:{fid}:{seat}. The
// ownership check inside the Lua scripts matches on the serialized user
// field, so User must stay the first field of the struct.
type HoldRecord struct {
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Seat states as reported by the seat map.
const (
	SeatFree = "free"
	SeatHeld = "held"
	SeatSold = "sold"
)

// SeatConflict names one seat that blocked a hold request.
type SeatConflict struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// SeatUnavailableError reports the full conflict set of a rejected hold.
// No partial holds are taken when it is returned.
type SeatUnavailableError struct {
	Conflicts []SeatConflict
}

func (e *SeatUnavailableError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Code, c.State))
	}
	return "seats unavailable: " + strings.Join(parts, ", ")
}

// HoldLostError reports seats whose holds vanished between reservation and
// confirmation. The caller must treat the purchase as failed.
type HoldLostError struct {
	Seats []string
}

func (e *HoldLostError) Error() string {
	return "hold lost for seats: " + strings.Join(e.Seats, ", ")
}
