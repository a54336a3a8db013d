package screenings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cinetix/internal/films"
	"cinetix/internal/halls"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrScreeningNotFound  = errors.New("function not found")
	ErrHallOccupied       = errors.New("hall already has a function in that time slot")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrFilmNotAvailable   = errors.New("film is not available on that date")
	ErrScreeningStarted   = errors.New("function has already started")
	ErrScreeningScheduled = errors.New("function still has upcoming projections")
)

// cleaningBuffer is added after the film runtime to compute the slot end.
const cleaningBuffer = 15 * time.Minute

// FilmSource provides film lookups without coupling to the films service.
type FilmSource interface {
	GetFilmsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]films.Film, error)
}

// HallSource provides hall lookups for screening creation.
type HallSource interface {
	GetHall(ctx context.Context, id uuid.UUID) (*halls.Hall, error)
}

type Service interface {
	CreateScreening(ctx context.Context, req CreateScreeningRequest) (*ScreeningResponse, error)
	GetScreeningByID(ctx context.Context, id string) (*ScreeningResponse, error)
	GetScreenings(ctx context.Context, query ScreeningListQuery) (*PaginatedScreenings, error)
	UpdateScreening(ctx context.Context, id string, req UpdateScreeningRequest) (*ScreeningResponse, error)
	UpdateState(ctx context.Context, id string, state string) (*ScreeningResponse, error)

	// GetScreening returns the raw model for the seat engine and the
	// purchase coordinator.
	GetScreening(ctx context.Context, id uuid.UUID) (*Screening, error)
	// RecordSale bumps the sales rollups after a confirmed purchase.
	RecordSale(ctx context.Context, id uuid.UUID, tickets int, revenueMinor int64) error
}

type service struct {
	repo         Repository
	filmSource   FilmSource
	hallSource   HallSource
	cacheService cache.Service
	config       *config.Config
	log          *logger.Logger
}

func NewService(repo Repository, filmSource FilmSource, hallSource HallSource, cacheService cache.Service, cfg *config.Config) Service {
	return &service{
		repo:         repo,
		filmSource:   filmSource,
		hallSource:   hallSource,
		cacheService: cacheService,
		config:       cfg,
		log:          logger.GetDefault(),
	}
}

func (s *service) CreateScreening(ctx context.Context, req CreateScreeningRequest) (*ScreeningResponse, error) {
	if req.StartsAt.Before(time.Now()) {
		return nil, fmt.Errorf("function start must be in the future")
	}

	filmID, err := uuid.Parse(req.FilmID)
	if err != nil {
		return nil, fmt.Errorf("invalid film ID: %w", err)
	}
	hallID, err := uuid.Parse(req.HallID)
	if err != nil {
		return nil, fmt.Errorf("invalid hall ID: %w", err)
	}

	filmMap, err := s.filmSource.GetFilmsByIDs(ctx, []uuid.UUID{filmID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up film: %w", err)
	}
	film, ok := filmMap[filmID]
	if !ok {
		return nil, fmt.Errorf("film not found")
	}
	if !film.IsAvailable(req.StartsAt) {
		return nil, ErrFilmNotAvailable
	}

	hall, err := s.hallSource.GetHall(ctx, hallID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up hall: %w", err)
	}
	if !hall.Active {
		return nil, fmt.Errorf("hall is not active")
	}

	endsAt := req.StartsAt.Add(time.Duration(film.DurationMin)*time.Minute + cleaningBuffer)

	occupied, err := s.repo.HasOverlap(ctx, hallID, req.StartsAt, endsAt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check hall schedule: %w", err)
	}
	if occupied {
		return nil, ErrHallOccupied
	}

	screening := &Screening{
		FilmID:         filmID,
		HallID:         hallID,
		StartsAt:       req.StartsAt,
		EndsAt:         endsAt,
		BasePriceMinor: req.BasePriceMinor,
		VIPPriceMinor:  req.VIPPriceMinor,
		State:          StateScheduled,
		Language:       req.Language,
		Subtitled:      req.Subtitled,

		HallName:        hall.Name,
		Rows:            hall.Rows,
		SeatsPerRow:     hall.SeatsPerRow,
		VIPRows:         hall.VIPRows,
		AccessibleSeats: hall.AccessibleSeats,
	}

	if err := s.repo.Create(ctx, screening); err != nil {
		return nil, fmt.Errorf("failed to create function: %w", err)
	}

	s.invalidateScreeningCache(ctx, nil)

	resp := s.toResponse(screening, film.Title)
	return &resp, nil
}

func (s *service) GetScreeningByID(ctx context.Context, id string) (*ScreeningResponse, error) {
	screeningID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}

	cacheKey := constants.BuildFunctionDetailKey(id)
	if s.cacheService != nil {
		var cached ScreeningResponse
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	screening, err := s.repo.GetByID(ctx, screeningID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScreeningNotFound
		}
		return nil, fmt.Errorf("failed to get function: %w", err)
	}

	title := s.filmTitle(ctx, screening.FilmID)
	resp := s.toResponse(screening, title)

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTL_FUNCTION_DETAIL); err != nil {
			s.log.WithError(err).Debug("failed to cache function detail")
		}
	}

	return &resp, nil
}

func (s *service) GetScreenings(ctx context.Context, query ScreeningListQuery) (*PaginatedScreenings, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	screenings, totalCount, err := s.repo.GetAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}

	// Hydrate film titles in one batch.
	filmIDs := make([]uuid.UUID, 0, len(screenings))
	seen := make(map[uuid.UUID]bool)
	for i := range screenings {
		if !seen[screenings[i].FilmID] {
			seen[screenings[i].FilmID] = true
			filmIDs = append(filmIDs, screenings[i].FilmID)
		}
	}

	titles := make(map[uuid.UUID]string)
	if filmMap, err := s.filmSource.GetFilmsByIDs(ctx, filmIDs); err == nil {
		for id, film := range filmMap {
			titles[id] = film.Title
		}
	}

	responses := make([]ScreeningResponse, 0, len(screenings))
	for i := range screenings {
		responses = append(responses, s.toResponse(&screenings[i], titles[screenings[i].FilmID]))
	}

	return &PaginatedScreenings{
		Screenings: responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(query.Limit))),
	}, nil
}

func (s *service) UpdateScreening(ctx context.Context, id string, req UpdateScreeningRequest) (*ScreeningResponse, error) {
	screeningID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}

	existing, err := s.repo.GetByID(ctx, screeningID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScreeningNotFound
		}
		return nil, fmt.Errorf("failed to get function: %w", err)
	}

	// Reschedules are only safe before anything is sold or the projection
	// begins: seat holds and sold tickets reference the original slot.
	if req.StartsAt != nil {
		if existing.State != StateScheduled {
			return nil, ErrScreeningStarted
		}
		if existing.TicketsSold > 0 {
			return nil, fmt.Errorf("cannot reschedule a function with sold tickets")
		}
	}

	updates := make(map[string]interface{})

	if req.StartsAt != nil {
		if req.StartsAt.Before(time.Now()) {
			return nil, fmt.Errorf("function start must be in the future")
		}
		duration := existing.EndsAt.Sub(existing.StartsAt)
		newEnd := req.StartsAt.Add(duration)

		occupied, err := s.repo.HasOverlap(ctx, existing.HallID, *req.StartsAt, newEnd, &screeningID)
		if err != nil {
			return nil, fmt.Errorf("failed to check hall schedule: %w", err)
		}
		if occupied {
			return nil, ErrHallOccupied
		}

		updates["starts_at"] = *req.StartsAt
		updates["ends_at"] = newEnd
	}

	if req.BasePriceMinor != nil {
		updates["base_price_minor"] = *req.BasePriceMinor
	}
	if req.VIPPriceMinor != nil {
		updates["vip_price_minor"] = *req.VIPPriceMinor
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.Subtitled != nil {
		updates["subtitled"] = *req.Subtitled
	}

	if len(updates) == 0 {
		title := s.filmTitle(ctx, existing.FilmID)
		resp := s.toResponse(existing, title)
		return &resp, nil
	}

	screening, err := s.repo.Update(ctx, screeningID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update function: %w", err)
	}

	s.invalidateScreeningCache(ctx, &screeningID)

	title := s.filmTitle(ctx, screening.FilmID)
	resp := s.toResponse(screening, title)
	return &resp, nil
}

func (s *service) UpdateState(ctx context.Context, id string, state string) (*ScreeningResponse, error) {
	screeningID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}
	if !IsValidState(state) {
		return nil, fmt.Errorf("invalid state: %s", state)
	}

	existing, err := s.repo.GetByID(ctx, screeningID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScreeningNotFound
		}
		return nil, fmt.Errorf("failed to get function: %w", err)
	}

	next := State(state)
	if !existing.State.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.State, next)
	}

	if err := s.repo.UpdateState(ctx, screeningID, next); err != nil {
		return nil, fmt.Errorf("failed to update function state: %w", err)
	}

	s.invalidateScreeningCache(ctx, &screeningID)

	existing.State = next
	title := s.filmTitle(ctx, existing.FilmID)
	resp := s.toResponse(existing, title)
	return &resp, nil
}

func (s *service) GetScreening(ctx context.Context, id uuid.UUID) (*Screening, error) {
	screening, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScreeningNotFound
		}
		return nil, fmt.Errorf("failed to get function: %w", err)
	}
	return screening, nil
}

func (s *service) RecordSale(ctx context.Context, id uuid.UUID, tickets int, revenueMinor int64) error {
	if err := s.repo.RecordSale(ctx, id, tickets, revenueMinor); err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	s.invalidateScreeningCache(ctx, &id)
	return nil
}

func (s *service) filmTitle(ctx context.Context, filmID uuid.UUID) string {
	filmMap, err := s.filmSource.GetFilmsByIDs(ctx, []uuid.UUID{filmID})
	if err != nil {
		return ""
	}
	if film, ok := filmMap[filmID]; ok {
		return film.Title
	}
	return ""
}

func (s *service) toResponse(screening *Screening, filmTitle string) ScreeningResponse {
	resp := screening.ToResponse(screening.IsSalesOpen(time.Now(), s.config.Sales.GraceWindow))
	resp.FilmTitle = filmTitle
	return resp
}

func (s *service) invalidateScreeningCache(ctx context.Context, screeningID *uuid.UUID) {
	if s.cacheService == nil {
		return
	}

	patterns := []string{constants.PATTERN_INVALIDATE_FUNCTIONS_ALL}
	if screeningID != nil {
		patterns = append(patterns, constants.BuildFunctionDetailKey(screeningID.String()))
	}

	for _, pattern := range patterns {
		if err := s.cacheService.DeletePattern(ctx, pattern); err != nil {
			s.log.WithError(err).Debug("failed to invalidate function cache")
		}
	}
}
