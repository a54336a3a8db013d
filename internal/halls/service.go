package halls

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
	ErrHallNotFound     = errors.New("hall not found")
	ErrHallNameConflict = errors.New("a hall with this name already exists")
)

type Service interface {
	CreateHall(ctx context.Context, req CreateHallRequest) (*HallResponse, error)
	GetHallByID(ctx context.Context, id string) (*HallResponse, error)
	GetHalls(ctx context.Context, query HallListQuery) (*PaginatedHalls, error)
	GetHallLayout(ctx context.Context, id string) (*HallLayoutResponse, error)
	UpdateHall(ctx context.Context, id string, req UpdateHallRequest) (*HallResponse, error)
	DeleteHall(ctx context.Context, id string) error

	// GetHall returns the raw model for screening creation.
	GetHall(ctx context.Context, id uuid.UUID) (*Hall, error)
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

func (s *service) CreateHall(ctx context.Context, req CreateHallRequest) (*HallResponse, error) {
	hallType := req.Type
	if hallType == "" {
		hallType = string(HallTypeStandard)
	}
	if !IsValidHallType(hallType) {
		return nil, fmt.Errorf("invalid hall type: %s", hallType)
	}

	if err := validateLayout(req.Rows, req.SeatsPerRow, req.VIPRows, req.AccessibleSeats); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, req.Name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check hall name: %w", err)
	}
	if existing != nil {
		return nil, ErrHallNameConflict
	}

	hall := &Hall{
		Name:            req.Name,
		Type:            HallType(hallType),
		Rows:            req.Rows,
		SeatsPerRow:     req.SeatsPerRow,
		VIPRows:         req.VIPRows,
		AccessibleSeats: req.AccessibleSeats,
		Equipment:       req.Equipment,
		Active:          true,
	}

	if err := s.repo.Create(ctx, hall); err != nil {
		return nil, fmt.Errorf("failed to create hall: %w", err)
	}

	s.invalidateHallCache(ctx)

	resp := hall.ToResponse()
	return &resp, nil
}

func (s *service) GetHallByID(ctx context.Context, id string) (*HallResponse, error) {
	hallID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid hall ID: %w", err)
	}

	cacheKey := constants.BuildHallDetailKey(id)
	if s.cacheService != nil {
		var cached HallResponse
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	hall, err := s.repo.GetByID(ctx, hallID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHallNotFound
		}
		return nil, fmt.Errorf("failed to get hall: %w", err)
	}

	resp := hall.ToResponse()

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, resp, constants.TTL_HALL_DETAIL); err != nil {
			s.log.WithError(err).Debug("failed to cache hall detail")
		}
	}

	return &resp, nil
}

func (s *service) GetHalls(ctx context.Context, query HallListQuery) (*PaginatedHalls, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}
	if query.Limit > 100 {
		query.Limit = 100
	}

	halls, totalCount, err := s.repo.GetAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list halls: %w", err)
	}

	responses := make([]HallResponse, 0, len(halls))
	for i := range halls {
		responses = append(responses, halls[i].ToResponse())
	}

	return &PaginatedHalls{
		Halls:      responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(query.Limit))),
	}, nil
}

func (s *service) GetHallLayout(ctx context.Context, id string) (*HallLayoutResponse, error) {
	hallID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid hall ID: %w", err)
	}

	hall, err := s.repo.GetByID(ctx, hallID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHallNotFound
		}
		return nil, fmt.Errorf("failed to get hall: %w", err)
	}

	return &HallLayoutResponse{
		Hall:  hall.ToResponse(),
		Seats: hall.SeatGrid(),
	}, nil
}

func (s *service) UpdateHall(ctx context.Context, id string, req UpdateHallRequest) (*HallResponse, error) {
	hallID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid hall ID: %w", err)
	}

	existing, err := s.repo.GetByID(ctx, hallID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHallNotFound
		}
		return nil, fmt.Errorf("failed to get hall: %w", err)
	}

	updates := make(map[string]interface{})

	if req.Name != nil && *req.Name != existing.Name {
		nameExists, err := s.repo.GetByName(ctx, *req.Name)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check hall name: %w", err)
		}
		if nameExists != nil {
			return nil, ErrHallNameConflict
		}
		updates["name"] = *req.Name
	}

	if req.Type != nil {
		if !IsValidHallType(*req.Type) {
			return nil, fmt.Errorf("invalid hall type: %s", *req.Type)
		}
		updates["type"] = *req.Type
	}

	rows := existing.Rows
	seatsPerRow := existing.SeatsPerRow
	vipRows := existing.VIPRows
	accessible := existing.AccessibleSeats

	if req.Rows != nil {
		rows = *req.Rows
		updates["rows"] = *req.Rows
	}
	if req.SeatsPerRow != nil {
		seatsPerRow = *req.SeatsPerRow
		updates["seats_per_row"] = *req.SeatsPerRow
	}
	if req.VIPRows != nil {
		vipRows = *req.VIPRows
		updates["vip_rows"] = *req.VIPRows
	}
	if req.AccessibleSeats != nil {
		accessible = *req.AccessibleSeats
		updates["accessible_seats"] = *req.AccessibleSeats
	}
	if req.Equipment != nil {
		updates["equipment"] = *req.Equipment
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if err := validateLayout(rows, seatsPerRow, vipRows, accessible); err != nil {
		return nil, err
	}

	if len(updates) == 0 {
		resp := existing.ToResponse()
		return &resp, nil
	}

	hall, err := s.repo.Update(ctx, hallID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update hall: %w", err)
	}

	s.invalidateHallCache(ctx)

	resp := hall.ToResponse()
	return &resp, nil
}

func (s *service) DeleteHall(ctx context.Context, id string) error {
	hallID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid hall ID: %w", err)
	}

	if _, err := s.repo.GetByID(ctx, hallID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHallNotFound
		}
		return fmt.Errorf("failed to get hall: %w", err)
	}

	if err := s.repo.Delete(ctx, hallID); err != nil {
		return fmt.Errorf("failed to delete hall: %w", err)
	}

	s.invalidateHallCache(ctx)
	return nil
}

func (s *service) GetHall(ctx context.Context, id uuid.UUID) (*Hall, error) {
	hall, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHallNotFound
		}
		return nil, fmt.Errorf("failed to get hall: %w", err)
	}
	return hall, nil
}

func (s *service) invalidateHallCache(ctx context.Context) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_HALLS_ALL); err != nil {
		s.log.WithError(err).Debug("failed to invalidate hall cache")
	}
}

// validateLayout checks the seat grid invariants shared by create and update.
func validateLayout(rows, seatsPerRow int, vipRows, accessibleSeats string) error {
	if rows <= 0 || rows > MaxRows {
		return fmt.Errorf("rows must be between 1 and %d", MaxRows)
	}
	if seatsPerRow <= 0 || seatsPerRow > MaxSeatsPerRow {
		return fmt.Errorf("seats_per_row must be between 1 and %d", MaxSeatsPerRow)
	}

	for row := range splitSet(vipRows) {
		idx, err := RowIndex(row)
		if err != nil {
			return fmt.Errorf("invalid vip row %q", row)
		}
		if idx >= rows {
			return fmt.Errorf("vip row %q is outside the hall layout", row)
		}
	}

	for code := range splitSet(accessibleSeats) {
		row, number, err := ParseSeatCode(code)
		if err != nil {
			return fmt.Errorf("invalid accessible seat %q", code)
		}
		idx, err := RowIndex(row)
		if err != nil || idx >= rows || number > seatsPerRow {
			return fmt.Errorf("accessible seat %q is outside the hall layout", code)
		}
	}

	return nil
}
