package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) (cache.Service, Publisher) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cacheService := cache.NewService(client)
	return cacheService, NewPublisher(cacheService)
}

// eventSink collects handled events behind a mutex.
type eventSink struct {
	mu     sync.Mutex
	events []Event
	failOn map[string]int
}

func (s *eventSink) handle(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.failOn[event.TransactionID]; ok && n > 0 {
		s.failOn[event.TransactionID] = n - 1
		return errors.New("transient handler failure")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *eventSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestEventValuesRoundTrip(t *testing.T) {
	event := Event{
		Type:          TypeSaleConfirmed,
		FunctionID:    "f1",
		UserID:        "u1",
		Seats:         []string{"A1", "A2"},
		TransactionID: "t1",
		Timestamp:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	got := eventFromValues(event.toValues())
	assert.Equal(t, event, got)
}

func TestEventValuesOmitEmptyFields(t *testing.T) {
	event := Event{Type: TypeHoldExpired, FunctionID: "f1", Seats: []string{"B3"}, Timestamp: time.Now().UTC()}
	values := event.toValues()

	_, hasUser := values["user"]
	assert.False(t, hasUser)
	_, hasTxn := values["transaction"]
	assert.False(t, hasTxn)
}

func TestConsumerDeliversPublishedEvents(t *testing.T) {
	cacheService, pub := newBus(t)
	ctx := context.Background()

	sink := &eventSink{}
	consumer := NewConsumer(cacheService, "metrics", "worker-1", sink.handle)
	require.NoError(t, consumer.Start(ctx))
	defer consumer.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, pub.Publish(ctx, Event{
			Type:          TypeSaleConfirmed,
			FunctionID:    "f1",
			UserID:        "u1",
			Seats:         []string{"A1"},
			TransactionID: string(rune('a' + i)),
		}))
	}

	require.Eventually(t, func() bool { return sink.count() == 3 }, 5*time.Second, 20*time.Millisecond)

	for _, event := range sink.all() {
		assert.Equal(t, TypeSaleConfirmed, event.Type)
		assert.Equal(t, []string{"A1"}, event.Seats)
	}
}

func TestEachGroupSeesEveryEvent(t *testing.T) {
	cacheService, pub := newBus(t)
	ctx := context.Background()

	metrics := &eventSink{}
	email := &eventSink{}

	mc := NewConsumer(cacheService, constants.BUS_GROUP_METRICS, "m-1", metrics.handle)
	ec := NewConsumer(cacheService, constants.BUS_GROUP_EMAIL, "e-1", email.handle)
	require.NoError(t, mc.Start(ctx))
	defer mc.Stop()
	require.NoError(t, ec.Start(ctx))
	defer ec.Stop()

	require.NoError(t, pub.Publish(ctx, Event{Type: TypeSaleConfirmed, FunctionID: "f1", TransactionID: "t1"}))

	require.Eventually(t, func() bool {
		return metrics.count() == 1 && email.count() == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFailedEventsAreRedeliveredOnRestart(t *testing.T) {
	cacheService, pub := newBus(t)
	ctx := context.Background()

	// The first consumer incarnation fails the event, leaving it pending.
	failing := &eventSink{failOn: map[string]int{"t1": 100}}
	first := NewConsumer(cacheService, "metrics", "worker-1", failing.handle)
	require.NoError(t, first.Start(ctx))

	require.NoError(t, pub.Publish(ctx, Event{Type: TypeSaleConfirmed, FunctionID: "f1", TransactionID: "t1"}))

	require.Eventually(t, func() bool {
		failing.mu.Lock()
		defer failing.mu.Unlock()
		return failing.failOn["t1"] < 100
	}, 5*time.Second, 20*time.Millisecond)
	first.Stop()

	// The replacement drains its pending entries before reading new ones.
	sink := &eventSink{}
	second := NewConsumer(cacheService, "metrics", "worker-1", sink.handle)
	require.NoError(t, second.Start(ctx))
	defer second.Stop()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "t1", sink.all()[0].TransactionID)
}

func TestPoisonPendingEntryDoesNotStallNewEvents(t *testing.T) {
	cacheService, pub := newBus(t)
	ctx := context.Background()

	// Two entries end up pending for worker-1.
	crashing := &eventSink{failOn: map[string]int{"t1": 1 << 20, "t2": 1 << 20}}
	first := NewConsumer(cacheService, "metrics", "worker-1", crashing.handle)
	require.NoError(t, first.Start(ctx))

	require.NoError(t, pub.Publish(ctx, Event{Type: TypeSaleConfirmed, FunctionID: "f1", TransactionID: "t1"}))
	require.NoError(t, pub.Publish(ctx, Event{Type: TypeSaleConfirmed, FunctionID: "f1", TransactionID: "t2"}))

	require.Eventually(t, func() bool {
		crashing.mu.Lock()
		defer crashing.mu.Unlock()
		return crashing.failOn["t1"] < 1<<20 && crashing.failOn["t2"] < 1<<20
	}, 5*time.Second, 20*time.Millisecond)
	first.Stop()

	// The replacement can never process t1, but the drain must bound its
	// retries, recover t2, and still deliver fresh events afterwards.
	sink := &eventSink{failOn: map[string]int{"t1": 1 << 20}}
	second := NewConsumer(cacheService, "metrics", "worker-1", sink.handle)
	require.NoError(t, second.Start(ctx))
	defer second.Stop()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, "t2", sink.all()[0].TransactionID)

	require.NoError(t, pub.Publish(ctx, Event{Type: TypeSaleConfirmed, FunctionID: "f1", TransactionID: "t3"}))
	require.Eventually(t, func() bool { return sink.count() == 2 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, "t3", sink.all()[1].TransactionID)
}

func TestPublishStampsTimestamp(t *testing.T) {
	cacheService, pub := newBus(t)
	ctx := context.Background()

	require.NoError(t, cacheService.XGroupCreateMkStream(ctx, constants.STREAM_EVENTS_SALES, "tap"))
	require.NoError(t, pub.Publish(ctx, Event{Type: TypeSeatHeld, FunctionID: "f1", Seats: []string{"A1"}}))

	msgs, err := cacheService.XReadGroup(ctx, constants.STREAM_EVENTS_SALES, "tap", "tap-1", ">", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	event := eventFromValues(msgs[0].Values)
	assert.False(t, event.Timestamp.IsZero())
}
