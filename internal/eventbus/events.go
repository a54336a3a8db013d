package eventbus

import (
	"strings"
	"time"
)

// Event types appended to the sales stream.
const (
	TypeSaleConfirmed = "sale_confirmed"
	TypeSaleFailed    = "sale_failed"
	TypeSeatHeld      = "seat_held"
	TypeSeatReleased  = "seat_released"
	TypeHoldExpired   = "hold_expired"
)

// Event is one record of the append-only sales log.
type Event struct {
	Type          string    `json:"type"`
	FunctionID    string    `json:"function"`
	UserID        string    `json:"user,omitempty"`
	Seats         []string  `json:"seats"`
	TransactionID string    `json:"transaction,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// toValues flattens an event for XADD; seats are joined since stream fields
// are flat strings.
func (e Event) toValues() map[string]interface{} {
	values := map[string]interface{}{
		"type":      e.Type,
		"function":  e.FunctionID,
		"seats":     strings.Join(e.Seats, ","),
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
	}
	if e.UserID != "" {
		values["user"] = e.UserID
	}
	if e.TransactionID != "" {
		values["transaction"] = e.TransactionID
	}
	return values
}

func eventFromValues(values map[string]interface{}) Event {
	event := Event{
		Type:          stringValue(values, "type"),
		FunctionID:    stringValue(values, "function"),
		UserID:        stringValue(values, "user"),
		TransactionID: stringValue(values, "transaction"),
	}
	if raw := stringValue(values, "seats"); raw != "" {
		event.Seats = strings.Split(raw, ",")
	}
	if raw := stringValue(values, "timestamp"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			event.Timestamp = ts
		}
	}
	return event
}

func stringValue(values map[string]interface{}, key string) string {
	if raw, ok := values[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}
