package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinetix/internal/films"
	"cinetix/internal/screenings"
	"cinetix/internal/shared/constants"
	"cinetix/internal/transactions"
	"cinetix/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFilmSource struct {
	films map[uuid.UUID]films.Film
	err   error
	calls int
}

func (f *fakeFilmSource) GetFilmsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]films.Film, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uuid.UUID]films.Film, len(ids))
	for _, id := range ids {
		if film, ok := f.films[id]; ok {
			out[id] = film
		}
	}
	return out, nil
}

type fakeSalesSource struct {
	totals transactions.SalesTotals
	err    error
	calls  int
}

func (f *fakeSalesSource) OverviewTotals(_ context.Context) (*transactions.SalesTotals, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	totals := f.totals
	return &totals, nil
}

type statsFixture struct {
	mr        *miniredis.Miniredis
	cache     cache.Service
	functions *fakeMetricsFunctionSource
	films     *fakeFilmSource
	sales     *fakeSalesSource
	service   Service
	screening *screenings.Screening
}

func newStatsFixture(t *testing.T) *statsFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	screening := &screenings.Screening{
		ID:          uuid.New(),
		FilmID:      uuid.New(),
		Rows:        4,
		SeatsPerRow: 5,
		TicketsSold: 3,
	}

	f := &statsFixture{
		mr:        mr,
		cache:     cache.NewService(client),
		functions: &fakeMetricsFunctionSource{screening: screening},
		films:     &fakeFilmSource{films: map[uuid.UUID]films.Film{}},
		sales:     &fakeSalesSource{},
		screening: screening,
	}
	f.service = NewService(f.cache, f.functions, f.films, f.sales)
	return f
}

func TestFunctionOccupancySplitsSoldAndHeld(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	// Five lit bits against three recorded sales: two live holds.
	require.NoError(t, f.cache.SetBits(ctx, constants.BitmapFunctionKey(f.screening.ID.String()), []int64{1, 2, 3, 4, 5}, 1))

	resp, err := f.service.FunctionOccupancy(ctx, f.screening.ID.String())
	require.NoError(t, err)

	assert.Equal(t, 20, resp.Capacity)
	assert.Equal(t, 5, resp.Occupied)
	assert.Equal(t, 3, resp.Sold)
	assert.Equal(t, 2, resp.Held)
	assert.Equal(t, 15, resp.Free)
	assert.Equal(t, 25.0, resp.OccupancyPct)
}

func TestFunctionOccupancyServedFromCache(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	first, err := f.service.FunctionOccupancy(ctx, f.screening.ID.String())
	require.NoError(t, err)

	// More bits light up, but the snapshot holds until its TTL lapses.
	require.NoError(t, f.cache.SetBits(ctx, constants.BitmapFunctionKey(f.screening.ID.String()), []int64{1, 2}, 1))

	cached, err := f.service.FunctionOccupancy(ctx, f.screening.ID.String())
	require.NoError(t, err)
	assert.Equal(t, first.Occupied, cached.Occupied)

	f.mr.FastForward(constants.TTL_STATS_OCCUPANCY + time.Second)

	fresh, err := f.service.FunctionOccupancy(ctx, f.screening.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Occupied)
}

func TestFunctionOccupancyUnknownFunction(t *testing.T) {
	f := newStatsFixture(t)

	_, err := f.service.FunctionOccupancy(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, screenings.ErrScreeningNotFound)

	_, err = f.service.FunctionOccupancy(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, screenings.ErrScreeningNotFound)
}

func TestFilmRankingHydratesAndOrders(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	leader := uuid.New()
	runnerUp := uuid.New()
	f.films.films[leader] = films.Film{Title: "Nebula Drift", PosterURL: "https://img.example/nebula.jpg"}
	f.films.films[runnerUp] = films.Film{Title: "Second Act"}

	_, err := f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 12, leader.String())
	require.NoError(t, err)
	_, err = f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 7, runnerUp.String())
	require.NoError(t, err)

	resp, err := f.service.FilmRanking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, resp.Films, 2)

	assert.Equal(t, 1, resp.Films[0].Rank)
	assert.Equal(t, "Nebula Drift", resp.Films[0].Title)
	assert.Equal(t, "https://img.example/nebula.jpg", resp.Films[0].PosterURL)
	assert.Equal(t, int64(12), resp.Films[0].TicketsSold)
	assert.Equal(t, 2, resp.Films[1].Rank)
	assert.Equal(t, int64(7), resp.Films[1].TicketsSold)
}

func TestFilmRankingSkipsMalformedMembers(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	valid := uuid.New()
	f.films.films[valid] = films.Film{Title: "Valid"}
	_, err := f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 5, valid.String())
	require.NoError(t, err)
	_, err = f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 9, "legacy-slug")
	require.NoError(t, err)

	resp, err := f.service.FilmRanking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, resp.Films, 1)
	assert.Equal(t, valid, resp.Films[0].FilmID)
}

func TestFilmRankingCachesPerLimit(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	id := uuid.New()
	f.films.films[id] = films.Film{Title: "Only One"}
	_, err := f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 3, id.String())
	require.NoError(t, err)

	_, err = f.service.FilmRanking(ctx, 5)
	require.NoError(t, err)
	_, err = f.service.FilmRanking(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, f.films.calls, "second read must come from cache")

	_, err = f.service.FilmRanking(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, f.films.calls, "a different limit is a different snapshot")
}

func TestFilmRankingEmptyLeaderboard(t *testing.T) {
	f := newStatsFixture(t)

	resp, err := f.service.FilmRanking(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, resp.Films)
	assert.Zero(t, f.films.calls)
}

func TestOverviewCombinesTotalsAndRanking(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	f.sales.totals = transactions.SalesTotals{ConfirmedCount: 4, TicketsSold: 9, RevenueMinor: 108000}
	id := uuid.New()
	f.films.films[id] = films.Film{Title: "Top Seller"}
	_, err := f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 9, id.String())
	require.NoError(t, err)

	resp, err := f.service.Overview(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), resp.ConfirmedSales)
	assert.Equal(t, int64(9), resp.TicketsSold)
	assert.Equal(t, int64(108000), resp.RevenueMinor)
	require.Len(t, resp.TopFilms, 1)
	assert.Equal(t, "Top Seller", resp.TopFilms[0].Title)

	// A second read is served from the cached snapshot.
	_, err = f.service.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sales.calls)
}

func TestOverviewSurvivesRankingFailure(t *testing.T) {
	f := newStatsFixture(t)
	ctx := context.Background()

	f.sales.totals = transactions.SalesTotals{ConfirmedCount: 1, TicketsSold: 2, RevenueMinor: 2400}
	id := uuid.New()
	_, err := f.cache.ZIncrBy(ctx, constants.KEY_RANKING_FILMS_SALES, 2, id.String())
	require.NoError(t, err)
	f.films.err = errors.New("catalog unavailable")

	resp, err := f.service.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ConfirmedSales)
	assert.Empty(t, resp.TopFilms)
}

func TestOverviewPropagatesTotalsFailure(t *testing.T) {
	f := newStatsFixture(t)
	f.sales.err = errors.New("database unavailable")

	_, err := f.service.Overview(context.Background())
	assert.Error(t, err)
}
