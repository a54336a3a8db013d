package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"cinetix/internal/films"
	"cinetix/internal/screenings"
	"cinetix/internal/shared/constants"
	"cinetix/internal/transactions"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultRankingSize = 10
	maxRankingSize     = 50
	overviewTopFilms   = 5
)

// FunctionSource resolves screenings for occupancy reads.
type FunctionSource interface {
	GetScreening(ctx context.Context, id uuid.UUID) (*screenings.Screening, error)
}

// FilmSource hydrates ranking members into displayable rows.
type FilmSource interface {
	GetFilmsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]films.Film, error)
}

// SalesSource supplies the confirmed-sale aggregates for the admin overview.
type SalesSource interface {
	OverviewTotals(ctx context.Context) (*transactions.SalesTotals, error)
}

type Service interface {
	FunctionOccupancy(ctx context.Context, functionID string) (*OccupancyResponse, error)
	FilmRanking(ctx context.Context, limit int) (*RankingResponse, error)
	Overview(ctx context.Context) (*OverviewResponse, error)
}

type service struct {
	cacheService cache.Service
	functions    FunctionSource
	films        FilmSource
	sales        SalesSource
	log          *logger.Logger
}

func NewService(cacheService cache.Service, functions FunctionSource, filmSource FilmSource, sales SalesSource) Service {
	return &service{
		cacheService: cacheService,
		functions:    functions,
		films:        filmSource,
		sales:        sales,
		log:          logger.GetDefault(),
	}
}

// FunctionOccupancy reports how full a function is right now. The
// occupied count comes straight from the seat bitmap, so it includes
// live holds; the sold rollup on the screening splits those out.
func (s *service) FunctionOccupancy(ctx context.Context, functionID string) (*OccupancyResponse, error) {
	fid, err := uuid.Parse(functionID)
	if err != nil {
		return nil, screenings.ErrScreeningNotFound
	}

	cacheKey := constants.BuildOccupancyKey(fid.String())
	var cached OccupancyResponse
	if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	screening, err := s.functions.GetScreening(ctx, fid)
	if err != nil {
		return nil, err
	}

	occupied64, err := s.cacheService.BitCount(ctx, constants.BitmapFunctionKey(fid.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to count occupied seats: %w", err)
	}

	capacity := screening.Capacity()
	occupied := int(occupied64)
	if occupied > capacity {
		occupied = capacity
	}
	// The sold rollup is bumped after the bitmap commit, so it can trail
	// by a beat. Clamp rather than report a negative hold count.
	sold := screening.TicketsSold
	if sold > occupied {
		sold = occupied
	}

	resp := &OccupancyResponse{
		FunctionID:  fid,
		Capacity:    capacity,
		Occupied:    occupied,
		Sold:        sold,
		Held:        occupied - sold,
		Free:        capacity - occupied,
		GeneratedAt: time.Now().UTC(),
	}
	if capacity > 0 {
		resp.OccupancyPct = math.Round(float64(occupied)/float64(capacity)*10000) / 100
	}

	if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTL_STATS_OCCUPANCY); err != nil {
		s.log.WithError(err).Debug("failed to cache occupancy snapshot")
	}
	return resp, nil
}

// FilmRanking returns the top films by tickets sold, read from the
// sales sorted set and hydrated with catalog data.
func (s *service) FilmRanking(ctx context.Context, limit int) (*RankingResponse, error) {
	if limit <= 0 {
		limit = defaultRankingSize
	}
	if limit > maxRankingSize {
		limit = maxRankingSize
	}

	cacheKey := fmt.Sprintf("%s:top:%d", constants.CACHE_KEY_FILM_RANKING, limit)
	var cached RankingResponse
	if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	members, err := s.cacheService.ZRevRangeWithScores(ctx, constants.KEY_RANKING_FILMS_SALES, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to read film ranking: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, parseErr := uuid.Parse(m.Member)
		if parseErr != nil {
			s.log.WithField("member", m.Member).Warn("Skipping malformed ranking member")
			continue
		}
		ids = append(ids, id)
	}

	var catalog map[uuid.UUID]films.Film
	if len(ids) > 0 {
		catalog, err = s.films.GetFilmsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate film ranking: %w", err)
		}
	}

	entries := make([]FilmRankingEntry, 0, len(members))
	for _, m := range members {
		id, parseErr := uuid.Parse(m.Member)
		if parseErr != nil {
			continue
		}
		entry := FilmRankingEntry{
			Rank:        len(entries) + 1,
			FilmID:      id,
			Title:       "unknown",
			TicketsSold: int64(m.Score),
		}
		if film, ok := catalog[id]; ok {
			entry.Title = film.Title
			entry.PosterURL = film.PosterURL
		}
		entries = append(entries, entry)
	}

	resp := &RankingResponse{Films: entries, GeneratedAt: time.Now().UTC()}

	if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTL_FILM_RANKING); err != nil {
		s.log.WithError(err).Debug("failed to cache film ranking")
	}
	return resp, nil
}

// Overview assembles the admin dashboard: confirmed totals from the
// transaction store plus the top of the film ranking.
func (s *service) Overview(ctx context.Context) (*OverviewResponse, error) {
	cacheKey := constants.CACHE_KEY_STATS_OVERVIEW
	var cached OverviewResponse
	if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	totals, err := s.sales.OverviewTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales totals: %w", err)
	}

	resp := &OverviewResponse{
		ConfirmedSales: totals.ConfirmedCount,
		TicketsSold:    totals.TicketsSold,
		RevenueMinor:   totals.RevenueMinor,
		GeneratedAt:    time.Now().UTC(),
	}

	ranking, err := s.FilmRanking(ctx, overviewTopFilms)
	if err != nil {
		// The dashboard is still useful without the leaderboard.
		s.log.WithError(err).Warn("Overview built without film ranking")
	} else {
		resp.TopFilms = ranking.Films
	}

	if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTL_STATS_OVERVIEW); err != nil {
		s.log.WithError(err).Debug("failed to cache stats overview")
	}
	return resp, nil
}
