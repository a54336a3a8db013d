package notifications

import (
	"context"
	"testing"
	"time"

	"cinetix/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmationFixture() *EmailNotification {
	return &EmailNotification{
		ID:            "n1",
		Kind:          KindTicketConfirmation,
		To:            "ana@example.com",
		RecipientName: "Ana Reyes",
		Invoice:       "CIN-20260825094500-1A2B3C4D",
		FilmTitle:     "Nebula Drift",
		HallName:      "Sala 2",
		StartsAt:      time.Date(2026, 9, 1, 20, 30, 0, 0, time.UTC),
		Seats:         []string{"A1", "B1"},
		TotalMinor:    2678,
		QRPayload:     "qr-code-payload",
	}
}

func newEmailService() *SMTPEmailService {
	cfg := &config.Config{}
	cfg.Email.FromEmail = "noreply@cinetix.io"
	return NewSMTPEmailService(cfg)
}

func TestRenderConfirmationEmail(t *testing.T) {
	svc := newEmailService()

	body, err := svc.render(confirmationFixture())
	require.NoError(t, err)

	assert.Contains(t, body, "Ana Reyes")
	assert.Contains(t, body, "CIN-20260825094500-1A2B3C4D")
	assert.Contains(t, body, "Nebula Drift")
	assert.Contains(t, body, "Sala 2")
	assert.Contains(t, body, "A1, B1")
	assert.Contains(t, body, "$26.78")
	assert.Contains(t, body, "qr-code-payload")
}

func TestRenderFallsBackToGenericGreeting(t *testing.T) {
	svc := newEmailService()
	n := confirmationFixture()
	n.RecipientName = ""
	n.QRPayload = ""

	body, err := svc.render(n)
	require.NoError(t, err)
	assert.Contains(t, body, "Hi there,")
	assert.NotContains(t, body, "Show this code")
}

func TestSendSkipsWithoutRelayConfigured(t *testing.T) {
	svc := newEmailService()
	assert.NoError(t, svc.SendTicketConfirmation(context.Background(), confirmationFixture()))
}

func TestSendRejectsInvalidNotification(t *testing.T) {
	svc := newEmailService()
	n := confirmationFixture()
	n.To = ""
	assert.Error(t, svc.SendTicketConfirmation(context.Background(), n))
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "$0.00", formatMinor(0))
	assert.Equal(t, "$0.05", formatMinor(5))
	assert.Equal(t, "$26.78", formatMinor(2678))
	assert.Equal(t, "$1000.00", formatMinor(100000))
}

func TestMockEmailServiceRecordsSends(t *testing.T) {
	mock := NewMockEmailService()
	require.NoError(t, mock.SendTicketConfirmation(context.Background(), confirmationFixture()))
	require.Len(t, mock.Sent, 1)
	assert.Equal(t, "ana@example.com", mock.Sent[0].To)
}
