package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinetix/internal/eventbus"
	"cinetix/internal/screenings"
	"cinetix/internal/transactions"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	published []*EmailNotification
	err       error
}

func (f *fakeProducer) Publish(_ context.Context, notification *EmailNotification) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, notification)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

type fakeUserSource struct {
	email, first, last string
	err                error
}

func (f *fakeUserSource) GetUserByID(_ context.Context, _ uuid.UUID) (string, string, string, error) {
	return f.email, f.first, f.last, f.err
}

type fakeFnSource struct {
	screening *screenings.Screening
	err       error
}

func (f *fakeFnSource) GetScreening(_ context.Context, _ uuid.UUID) (*screenings.Screening, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.screening, nil
}

type fakeTitleSource struct {
	title string
	err   error
}

func (f *fakeTitleSource) GetFilmTitle(_ context.Context, _ uuid.UUID) (string, error) {
	return f.title, f.err
}

type fakeReceiptSource struct {
	receipt *transactions.TransactionResponse
	err     error
}

func (f *fakeReceiptSource) Receipt(_ context.Context, _ uuid.UUID) (*transactions.TransactionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

type emailHandlerFixture struct {
	producer *fakeProducer
	users    *fakeUserSource
	fns      *fakeFnSource
	films    *fakeTitleSource
	receipts *fakeReceiptSource
	handler  eventbus.Handler
	event    eventbus.Event
	starts   time.Time
}

func newEmailHandlerFixture(t *testing.T) *emailHandlerFixture {
	t.Helper()

	starts := time.Date(2026, 9, 1, 20, 30, 0, 0, time.UTC)
	f := &emailHandlerFixture{
		producer: &fakeProducer{},
		users:    &fakeUserSource{email: "ana@example.com", first: "Ana", last: "Reyes"},
		fns: &fakeFnSource{screening: &screenings.Screening{
			FilmID:   uuid.New(),
			HallName: "Sala 2",
			StartsAt: starts,
		}},
		films: &fakeTitleSource{title: "Nebula Drift"},
		receipts: &fakeReceiptSource{receipt: &transactions.TransactionResponse{
			Invoice:    "CIN-20260825094500-1A2B3C4D",
			TotalMinor: 2678,
			QRPayload:  "eyJpbnZvaWNlIjoi...",
		}},
		starts: starts,
	}
	f.handler = NewSaleEmailHandler(f.producer, f.users, f.fns, f.films, f.receipts)
	f.event = eventbus.Event{
		Type:          eventbus.TypeSaleConfirmed,
		FunctionID:    uuid.NewString(),
		UserID:        uuid.NewString(),
		TransactionID: uuid.NewString(),
		Seats:         []string{"A1", "B1"},
	}
	return f
}

func TestSaleEmailHandlerHydratesNotification(t *testing.T) {
	f := newEmailHandlerFixture(t)

	require.NoError(t, f.handler(context.Background(), f.event))
	require.Len(t, f.producer.published, 1)

	n := f.producer.published[0]
	require.NoError(t, n.Validate())
	assert.Equal(t, KindTicketConfirmation, n.Kind)
	assert.Equal(t, "ana@example.com", n.To)
	assert.Equal(t, "Ana Reyes", n.RecipientName)
	assert.Equal(t, "CIN-20260825094500-1A2B3C4D", n.Invoice)
	assert.Equal(t, "Nebula Drift", n.FilmTitle)
	assert.Equal(t, "Sala 2", n.HallName)
	assert.Equal(t, f.starts, n.StartsAt)
	assert.Equal(t, []string{"A1", "B1"}, n.Seats)
	assert.Equal(t, int64(2678), n.TotalMinor)
	assert.NotEmpty(t, n.QRPayload)
	assert.NotEmpty(t, n.ID)
}

func TestSaleEmailHandlerIgnoresOtherEventTypes(t *testing.T) {
	f := newEmailHandlerFixture(t)

	for _, typ := range []string{eventbus.TypeSeatHeld, eventbus.TypeSeatReleased, eventbus.TypeHoldExpired, eventbus.TypeSaleFailed} {
		event := f.event
		event.Type = typ
		require.NoError(t, f.handler(context.Background(), event))
	}
	assert.Empty(t, f.producer.published)
}

func TestSaleEmailHandlerDropsUnparseableEvents(t *testing.T) {
	f := newEmailHandlerFixture(t)

	for _, mutate := range []func(*eventbus.Event){
		func(e *eventbus.Event) { e.UserID = "nope" },
		func(e *eventbus.Event) { e.FunctionID = "nope" },
		func(e *eventbus.Event) { e.TransactionID = "" },
	} {
		event := f.event
		mutate(&event)
		assert.NoError(t, f.handler(context.Background(), event))
	}
	assert.Empty(t, f.producer.published)
}

func TestSaleEmailHandlerDropsUnknownEntities(t *testing.T) {
	f := newEmailHandlerFixture(t)
	f.fns.err = screenings.ErrScreeningNotFound
	assert.NoError(t, f.handler(context.Background(), f.event))

	f = newEmailHandlerFixture(t)
	f.receipts.err = transactions.ErrTransactionNotFound
	assert.NoError(t, f.handler(context.Background(), f.event))
	assert.Empty(t, f.producer.published)
}

func TestSaleEmailHandlerRetriesTransientFailures(t *testing.T) {
	f := newEmailHandlerFixture(t)
	f.users.err = errors.New("database unavailable")
	assert.Error(t, f.handler(context.Background(), f.event))

	f = newEmailHandlerFixture(t)
	f.films.err = errors.New("database unavailable")
	assert.Error(t, f.handler(context.Background(), f.event))

	f = newEmailHandlerFixture(t)
	f.producer.err = errors.New("broker unreachable")
	assert.Error(t, f.handler(context.Background(), f.event))
	assert.Empty(t, f.producer.published)
}

func TestEmailNotificationJSONRoundTrip(t *testing.T) {
	original := &EmailNotification{
		ID:         uuid.NewString(),
		Kind:       KindTicketConfirmation,
		To:         "ana@example.com",
		Invoice:    "CIN-20260825094500-1A2B3C4D",
		Seats:      []string{"A1"},
		TotalMinor: 1190,
		CreatedAt:  time.Date(2026, 8, 25, 9, 45, 0, 0, time.UTC),
	}

	data, err := original.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = FromJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestEmailNotificationValidate(t *testing.T) {
	n := &EmailNotification{ID: "n1", Kind: KindTicketConfirmation, To: "a@b.c", Invoice: "CIN-X"}
	assert.NoError(t, n.Validate())

	assert.Error(t, (&EmailNotification{Kind: KindTicketConfirmation, Invoice: "CIN-X"}).Validate())
	assert.Error(t, (&EmailNotification{To: "a@b.c", Invoice: "CIN-X"}).Validate())
	assert.Error(t, (&EmailNotification{To: "a@b.c", Kind: KindTicketConfirmation}).Validate())
}

func TestEmailNotificationPartitionKey(t *testing.T) {
	n := &EmailNotification{ID: "n1", To: "ana@example.com"}
	assert.Equal(t, "ana@example.com", n.PartitionKey())

	n.To = ""
	assert.Equal(t, "n1", n.PartitionKey())
}
