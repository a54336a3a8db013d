package films

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cinetix/internal/shared/constants"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrFilmNotFound      = errors.New("film not found")
	ErrFilmTitleConflict = errors.New("a film with this title already exists")
)

type Service interface {
	CreateFilm(ctx context.Context, req CreateFilmRequest) (*FilmResponse, error)
	GetFilmByID(ctx context.Context, id string) (*FilmResponse, error)
	GetFilms(ctx context.Context, query FilmListQuery) (*PaginatedFilms, error)
	UpdateFilm(ctx context.Context, id string, req UpdateFilmRequest) (*FilmResponse, error)
	DeleteFilm(ctx context.Context, id string) error

	// GetFilmsByIDs hydrates ranking entries and stats rows.
	GetFilmsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Film, error)

	// GetFilmTitle feeds the notification pipeline.
	GetFilmTitle(ctx context.Context, id uuid.UUID) (string, error)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	log          *logger.Logger
}

func NewService(repo Repository, cacheService cache.Service) Service {
	return &service{
		repo:         repo,
		cacheService: cacheService,
		log:          logger.GetDefault(),
	}
}

func (s *service) CreateFilm(ctx context.Context, req CreateFilmRequest) (*FilmResponse, error) {
	if !IsValidRating(req.Rating) {
		return nil, fmt.Errorf("invalid rating: %s", req.Rating)
	}
	if invalid := ValidateGenres(req.Genres); len(invalid) > 0 {
		return nil, fmt.Errorf("unknown genres: %v", invalid)
	}
	if req.AvailableTo != nil && req.AvailableTo.Before(req.AvailableFrom) {
		return nil, fmt.Errorf("available_to must be after available_from")
	}

	exists, err := s.repo.TitleExists(ctx, req.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to check film title: %w", err)
	}
	if exists {
		return nil, ErrFilmTitleConflict
	}

	film := &Film{
		Title:         req.Title,
		OriginalTitle: req.OriginalTitle,
		Synopsis:      req.Synopsis,
		Director:      req.Director,
		Cast:          req.Cast,
		Genres:        req.Genres,
		DurationMin:   req.DurationMin,
		Rating:        Rating(req.Rating),
		Language:      req.Language,
		Subtitles:     req.Subtitles,
		ReleaseDate:   req.ReleaseDate,
		AvailableFrom: req.AvailableFrom,
		AvailableTo:   req.AvailableTo,
		PosterURL:     req.PosterURL,
		TrailerURL:    req.TrailerURL,
		Active:        true,
	}

	if err := s.repo.Create(ctx, film); err != nil {
		return nil, fmt.Errorf("failed to create film: %w", err)
	}

	s.invalidateFilmCache(ctx, nil)

	resp := film.ToResponse()
	return &resp, nil
}

func (s *service) GetFilmByID(ctx context.Context, id string) (*FilmResponse, error) {
	filmID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid film ID: %w", err)
	}

	cacheKey := constants.BuildFilmDetailKey(id)
	if s.cacheService != nil {
		var cached FilmResponse
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	film, err := s.repo.GetByID(ctx, filmID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFilmNotFound
		}
		return nil, fmt.Errorf("failed to get film: %w", err)
	}

	resp := film.ToResponse()

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTL_FILM_DETAIL); err != nil {
			s.log.WithError(err).Debug("failed to cache film detail")
		}
	}

	return &resp, nil
}

func (s *service) GetFilms(ctx context.Context, query FilmListQuery) (*PaginatedFilms, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	// Only the unfiltered listing is cached; filtered queries go to the DB.
	cacheable := query.Search == "" && query.Genre == "" && query.Active == nil
	cacheKey := constants.BuildFilmsListKey(query.Page, query.Limit)

	if cacheable && s.cacheService != nil {
		var cached PaginatedFilms
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	films, totalCount, err := s.repo.GetAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list films: %w", err)
	}

	responses := make([]FilmResponse, 0, len(films))
	for i := range films {
		responses = append(responses, films[i].ToResponse())
	}

	result := &PaginatedFilms{
		Films:      responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(query.Limit))),
	}

	if cacheable && s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, result, constants.TTL_FILMS_LIST); err != nil {
			s.log.WithError(err).Debug("failed to cache films list")
		}
	}

	return result, nil
}

func (s *service) UpdateFilm(ctx context.Context, id string, req UpdateFilmRequest) (*FilmResponse, error) {
	filmID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid film ID: %w", err)
	}

	updates := make(map[string]interface{})

	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.OriginalTitle != nil {
		updates["original_title"] = *req.OriginalTitle
	}
	if req.Synopsis != nil {
		updates["synopsis"] = *req.Synopsis
	}
	if req.Director != nil {
		updates["director"] = *req.Director
	}
	if req.Cast != nil {
		updates["cast"] = *req.Cast
	}
	if req.Genres != nil {
		if invalid := ValidateGenres(*req.Genres); len(invalid) > 0 {
			return nil, fmt.Errorf("unknown genres: %v", invalid)
		}
		updates["genres"] = *req.Genres
	}
	if req.DurationMin != nil {
		updates["duration_min"] = *req.DurationMin
	}
	if req.Rating != nil {
		if !IsValidRating(*req.Rating) {
			return nil, fmt.Errorf("invalid rating: %s", *req.Rating)
		}
		updates["rating"] = *req.Rating
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if req.Subtitles != nil {
		updates["subtitles"] = *req.Subtitles
	}
	if req.ReleaseDate != nil {
		updates["release_date"] = *req.ReleaseDate
	}
	if req.AvailableFrom != nil {
		updates["available_from"] = *req.AvailableFrom
	}
	if req.AvailableTo != nil {
		updates["available_to"] = *req.AvailableTo
	}
	if req.PosterURL != nil {
		updates["poster_url"] = *req.PosterURL
	}
	if req.TrailerURL != nil {
		updates["trailer_url"] = *req.TrailerURL
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) == 0 {
		return s.GetFilmByID(ctx, id)
	}

	film, err := s.repo.Update(ctx, filmID, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFilmNotFound
		}
		return nil, fmt.Errorf("failed to update film: %w", err)
	}

	s.invalidateFilmCache(ctx, &filmID)

	resp := film.ToResponse()
	return &resp, nil
}

func (s *service) DeleteFilm(ctx context.Context, id string) error {
	filmID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid film ID: %w", err)
	}

	if _, err := s.repo.GetByID(ctx, filmID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFilmNotFound
		}
		return fmt.Errorf("failed to get film: %w", err)
	}

	if err := s.repo.Delete(ctx, filmID); err != nil {
		return fmt.Errorf("failed to delete film: %w", err)
	}

	s.invalidateFilmCache(ctx, &filmID)
	return nil
}

func (s *service) GetFilmsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Film, error) {
	films, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get films: %w", err)
	}

	result := make(map[uuid.UUID]Film, len(films))
	for i := range films {
		result[films[i].ID] = films[i]
	}
	return result, nil
}

func (s *service) GetFilmTitle(ctx context.Context, id uuid.UUID) (string, error) {
	film, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrFilmNotFound
		}
		return "", fmt.Errorf("failed to get film: %w", err)
	}
	return film.Title, nil
}

func (s *service) invalidateFilmCache(ctx context.Context, filmID *uuid.UUID) {
	if s.cacheService == nil {
		return
	}

	patterns := []string{constants.PATTERN_INVALIDATE_FILMS_ALL}
	if filmID != nil {
		patterns = append(patterns, constants.BuildFilmDetailKey(filmID.String()))
	}

	for _, pattern := range patterns {
		if err := s.cacheService.DeletePattern(ctx, pattern); err != nil {
			s.log.WithError(err).Debug("failed to invalidate film cache")
		}
	}
}
