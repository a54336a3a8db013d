package stats

import (
	"context"
	"errors"
	"testing"

	"cinetix/internal/eventbus"
	"cinetix/internal/screenings"
	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetricsFunctionSource struct {
	screening *screenings.Screening
	err       error
}

func (f *fakeMetricsFunctionSource) GetScreening(_ context.Context, id uuid.UUID) (*screenings.Screening, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.screening == nil || f.screening.ID != id {
		return nil, screenings.ErrScreeningNotFound
	}
	return f.screening, nil
}

func newMetricsFixture(t *testing.T) (cache.Service, *fakeMetricsFunctionSource, *screenings.Screening) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	screening := &screenings.Screening{
		ID:     uuid.New(),
		FilmID: uuid.New(),
	}
	return cache.NewService(client), &fakeMetricsFunctionSource{screening: screening}, screening
}

func TestSalesMetricsHandlerBumpsRankingAndCounters(t *testing.T) {
	cacheService, functions, screening := newMetricsFixture(t)
	handler := NewSalesMetricsHandler(cacheService, functions)
	ctx := context.Background()

	event := eventbus.Event{
		Type:       eventbus.TypeSaleConfirmed,
		FunctionID: screening.ID.String(),
		Seats:      []string{"A1", "A2", "B1"},
	}
	require.NoError(t, handler(ctx, event))

	score, err := cacheService.ZScore(ctx, constants.KEY_RANKING_FILMS_SALES, screening.FilmID.String())
	require.NoError(t, err)
	assert.Equal(t, float64(3), score)

	fields, err := cacheService.HGetAll(ctx, constants.BuildFunctionStatsKey(screening.ID.String()))
	require.NoError(t, err)
	assert.Equal(t, "3", fields["tickets_sold"])

	// A second sale accumulates on top.
	event.Seats = []string{"C4"}
	require.NoError(t, handler(ctx, event))

	score, err = cacheService.ZScore(ctx, constants.KEY_RANKING_FILMS_SALES, screening.FilmID.String())
	require.NoError(t, err)
	assert.Equal(t, float64(4), score)
}

func TestSalesMetricsHandlerIgnoresOtherEventTypes(t *testing.T) {
	cacheService, functions, screening := newMetricsFixture(t)
	handler := NewSalesMetricsHandler(cacheService, functions)
	ctx := context.Background()

	for _, typ := range []string{eventbus.TypeSeatHeld, eventbus.TypeSeatReleased, eventbus.TypeHoldExpired, eventbus.TypeSaleFailed} {
		require.NoError(t, handler(ctx, eventbus.Event{
			Type:       typ,
			FunctionID: screening.ID.String(),
			Seats:      []string{"A1"},
		}))
	}

	_, err := cacheService.ZScore(ctx, constants.KEY_RANKING_FILMS_SALES, screening.FilmID.String())
	assert.Error(t, err, "no ranking entry should exist")
}

func TestSalesMetricsHandlerDropsUnresolvableEvents(t *testing.T) {
	cacheService, functions, _ := newMetricsFixture(t)
	handler := NewSalesMetricsHandler(cacheService, functions)
	ctx := context.Background()

	// Malformed ids and unknown functions would redeliver forever, so the
	// handler acks them by returning nil.
	assert.NoError(t, handler(ctx, eventbus.Event{
		Type:       eventbus.TypeSaleConfirmed,
		FunctionID: "not-a-uuid",
		Seats:      []string{"A1"},
	}))
	assert.NoError(t, handler(ctx, eventbus.Event{
		Type:       eventbus.TypeSaleConfirmed,
		FunctionID: uuid.NewString(),
		Seats:      []string{"A1"},
	}))
}

func TestSalesMetricsHandlerRetriesTransientLookupFailures(t *testing.T) {
	cacheService, functions, screening := newMetricsFixture(t)
	functions.err = errors.New("database unavailable")
	handler := NewSalesMetricsHandler(cacheService, functions)

	err := handler(context.Background(), eventbus.Event{
		Type:       eventbus.TypeSaleConfirmed,
		FunctionID: screening.ID.String(),
		Seats:      []string{"A1"},
	})
	assert.Error(t, err, "transient failures must leave the entry pending")
}

func TestSalesMetricsHandlerSkipsEmptySeatLists(t *testing.T) {
	cacheService, functions, screening := newMetricsFixture(t)
	handler := NewSalesMetricsHandler(cacheService, functions)
	ctx := context.Background()

	require.NoError(t, handler(ctx, eventbus.Event{
		Type:       eventbus.TypeSaleConfirmed,
		FunctionID: screening.ID.String(),
	}))

	_, err := cacheService.ZScore(ctx, constants.KEY_RANKING_FILMS_SALES, screening.FilmID.String())
	assert.Error(t, err)
}
