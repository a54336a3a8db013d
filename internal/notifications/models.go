package notifications

import (
	"encoding/json"
	"fmt"
	"time"
)

// Notification kinds carried over the email topic.
const (
	KindTicketConfirmation = "ticket_confirmation"
)

// EmailNotification is the message shape published to the Kafka email
// topic. It is fully hydrated before publishing: the worker that renders
// and sends the email never has to reach back into the database.
type EmailNotification struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	To            string `json:"to"`
	RecipientName string `json:"recipient_name"`

	Invoice    string `json:"invoice"`
	FunctionID string `json:"function_id"`
	FilmTitle  string `json:"film_title"`
	HallName   string `json:"hall_name"`

	StartsAt   time.Time `json:"starts_at"`
	Seats      []string  `json:"seats"`
	TotalMinor int64     `json:"total_minor"`
	QRPayload  string    `json:"qr_payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *EmailNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func FromJSON(data []byte) (*EmailNotification, error) {
	var n EmailNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode email notification: %w", err)
	}
	return &n, nil
}

// PartitionKey routes all mail for one recipient to the same partition so
// a customer's confirmations keep their relative order.
func (n *EmailNotification) PartitionKey() string {
	if n.To != "" {
		return n.To
	}
	return n.ID
}

// Validate rejects messages the email worker could not act on.
func (n *EmailNotification) Validate() error {
	if n.To == "" {
		return fmt.Errorf("notification %s has no recipient", n.ID)
	}
	if n.Kind == "" {
		return fmt.Errorf("notification %s has no kind", n.ID)
	}
	if n.Invoice == "" {
		return fmt.Errorf("notification %s has no invoice", n.ID)
	}
	return nil
}
