package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/pkg/logger"
)

// EmailService renders and delivers one notification. Rendering failures
// are permanent, delivery failures are retryable by the consumer.
type EmailService interface {
	SendTicketConfirmation(ctx context.Context, notification *EmailNotification) error
}

// SMTPEmailService delivers through a plain SMTP relay.
type SMTPEmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *logger.Logger
}

func NewSMTPEmailService(cfg *config.Config) *SMTPEmailService {
	return &SMTPEmailService{
		host:     cfg.Email.SMTPHost,
		port:     cfg.Email.SMTPPort,
		username: cfg.Email.SMTPUsername,
		password: cfg.Email.SMTPPassword,
		from:     cfg.Email.FromEmail,
		log:      logger.GetDefault(),
	}
}

var confirmationTemplate = template.Must(template.New("ticket_confirmation").Parse(`
<html>
<body style="font-family: sans-serif;">
  <h2>Your tickets are confirmed</h2>
  <p>Hi {{.RecipientName}},</p>
  <p>Invoice <strong>{{.Invoice}}</strong></p>
  <p>
    <strong>{{.FilmTitle}}</strong><br>
    {{.HallName}}, {{.StartsAt.Format "Mon, 02 Jan 2006 15:04 MST"}}<br>
    Seats: {{.SeatList}}
  </p>
  <p>Total: {{.Total}}</p>
  {{if .QRPayload}}<p>Show this code at the entrance:</p>
  <pre>{{.QRPayload}}</pre>{{end}}
  <p>Enjoy the show!</p>
</body>
</html>
`))

type confirmationData struct {
	RecipientName string
	Invoice       string
	FilmTitle     string
	HallName      string
	StartsAt      time.Time
	SeatList      string
	Total         string
	QRPayload     string
}

func (s *SMTPEmailService) SendTicketConfirmation(ctx context.Context, notification *EmailNotification) error {
	if err := notification.Validate(); err != nil {
		return err
	}

	body, err := s.render(notification)
	if err != nil {
		return fmt.Errorf("failed to render confirmation email: %w", err)
	}

	subject := fmt.Sprintf("Your tickets for %s - %s", notification.FilmTitle, notification.Invoice)
	if err := s.send(ctx, notification.To, subject, body); err != nil {
		return err
	}

	s.log.Info("Confirmation email sent",
		"to", notification.To,
		"invoice", notification.Invoice,
	)
	return nil
}

func (s *SMTPEmailService) render(notification *EmailNotification) (string, error) {
	name := notification.RecipientName
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, confirmationData{
		RecipientName: name,
		Invoice:       notification.Invoice,
		FilmTitle:     notification.FilmTitle,
		HallName:      notification.HallName,
		StartsAt:      notification.StartsAt,
		SeatList:      strings.Join(notification.Seats, ", "),
		Total:         formatMinor(notification.TotalMinor),
		QRPayload:     notification.QRPayload,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *SMTPEmailService) send(ctx context.Context, to, subject, htmlBody string) error {
	if s.host == "" {
		// No relay configured; log instead of failing so development
		// setups work without SMTP.
		s.log.Info("SMTP not configured, skipping email delivery", "to", to, "subject", subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to deliver email to %s: %w", to, err)
	}
	return nil
}

// formatMinor renders integer minor units as a decimal amount.
func formatMinor(minor int64) string {
	return fmt.Sprintf("$%d.%02d", minor/100, minor%100)
}

// MockEmailService records sends for tests.
type MockEmailService struct {
	mu   sync.Mutex
	Sent []*EmailNotification
	Err  error
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (m *MockEmailService) SendTicketConfirmation(_ context.Context, notification *EmailNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, notification)
	return nil
}
