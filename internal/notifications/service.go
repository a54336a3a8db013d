package notifications

import (
	"context"
	"errors"
	"time"

	"cinetix/internal/eventbus"
	"cinetix/internal/screenings"
	"cinetix/internal/transactions"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
)

// UserSource resolves the recipient of a confirmation. Satisfied by the
// auth user service adapter.
type UserSource interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (email, firstName, lastName string, err error)
}

// FunctionSource resolves the screening a sale belongs to.
type FunctionSource interface {
	GetScreening(ctx context.Context, id uuid.UUID) (*screenings.Screening, error)
}

// FilmTitleSource resolves film titles for the email body.
type FilmTitleSource interface {
	GetFilmTitle(ctx context.Context, id uuid.UUID) (string, error)
}

// ReceiptSource resolves the invoice detail of a confirmed transaction.
type ReceiptSource interface {
	Receipt(ctx context.Context, transactionID uuid.UUID) (*transactions.TransactionResponse, error)
}

// NewSaleEmailHandler returns the sink-bus handler that turns every
// sale_confirmed event into a fully hydrated Kafka email message. Returning
// an error leaves the stream entry unacked, so hydration hiccups are
// retried; events that can never be hydrated are dropped.
func NewSaleEmailHandler(producer Producer, users UserSource, functions FunctionSource, films FilmTitleSource, receipts ReceiptSource) eventbus.Handler {
	log := logger.GetDefault()

	return func(ctx context.Context, event eventbus.Event) error {
		if event.Type != eventbus.TypeSaleConfirmed {
			return nil
		}

		uid, err := uuid.Parse(event.UserID)
		if err != nil {
			log.Warn("Dropping sale event with bad user id", "user", event.UserID)
			return nil
		}
		fid, err := uuid.Parse(event.FunctionID)
		if err != nil {
			log.Warn("Dropping sale event with bad function id", "function", event.FunctionID)
			return nil
		}
		tid, err := uuid.Parse(event.TransactionID)
		if err != nil {
			log.Warn("Dropping sale event with bad transaction id", "transaction", event.TransactionID)
			return nil
		}

		email, firstName, lastName, err := users.GetUserByID(ctx, uid)
		if err != nil {
			return err
		}

		screening, err := functions.GetScreening(ctx, fid)
		if err != nil {
			if errors.Is(err, screenings.ErrScreeningNotFound) {
				log.Warn("Dropping sale event for unknown function", "function", event.FunctionID)
				return nil
			}
			return err
		}

		title, err := films.GetFilmTitle(ctx, screening.FilmID)
		if err != nil {
			return err
		}

		receipt, err := receipts.Receipt(ctx, tid)
		if err != nil {
			if errors.Is(err, transactions.ErrTransactionNotFound) {
				log.Warn("Dropping sale event for unknown transaction", "transaction", event.TransactionID)
				return nil
			}
			return err
		}

		notification := &EmailNotification{
			ID:            uuid.New().String(),
			Kind:          KindTicketConfirmation,
			To:            email,
			RecipientName: firstName + " " + lastName,
			Invoice:       receipt.Invoice,
			FunctionID:    event.FunctionID,
			FilmTitle:     title,
			HallName:      screening.HallName,
			StartsAt:      screening.StartsAt,
			Seats:         event.Seats,
			TotalMinor:    receipt.TotalMinor,
			QRPayload:     receipt.QRPayload,
			CreatedAt:     time.Now().UTC(),
		}

		return producer.Publish(ctx, notification)
	}
}
