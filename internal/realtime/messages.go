package realtime

import (
	"time"

	"cinetix/internal/seats"
)

// Inbound actions a session may send.
const (
	ActionSelect   = "select"
	ActionDeselect = "deselect"
)

// Outbound frame types.
const (
	MsgConnectionEstablished = "connection_established"
	MsgSelectionConfirmed    = "selection_confirmed"
	MsgSelectionFailed       = "selection_failed"
	MsgSeatHeld              = "seat_held"
	MsgSeatReleased          = "seat_released"
	MsgHoldExpired           = "hold_expired"
	MsgSaleConfirmed         = "sale_confirmed"
	MsgError                 = "error"
)

// ClientMessage is the single inbound frame shape.
type ClientMessage struct {
	Action string   `json:"action"`
	Seats  []string `json:"seats"`
}

// ServerMessage is one outbound frame. Type is always set, Timestamp is
// RFC 3339 UTC, and the remaining fields are filled per frame type.
type ServerMessage struct {
	Type       string                `json:"type"`
	FunctionID string                `json:"function,omitempty"`
	UserID     string                `json:"user,omitempty"`
	Seats      []string              `json:"seats,omitempty"`
	ExpiresAt  *time.Time            `json:"expires_at,omitempty"`
	Conflicts  []seats.SeatConflict  `json:"conflicts,omitempty"`
	SeatMap    *seats.SeatMapResponse `json:"seat_map,omitempty"`
	Message    string                `json:"message,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}
