package screenings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, screening *Screening) error
	GetByID(ctx context.Context, id uuid.UUID) (*Screening, error)
	GetAll(ctx context.Context, query ScreeningListQuery) ([]Screening, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Screening, error)
	UpdateState(ctx context.Context, id uuid.UUID, state State) error
	HasOverlap(ctx context.Context, hallID uuid.UUID, startsAt, endsAt time.Time, excludeID *uuid.UUID) (bool, error)
	RecordSale(ctx context.Context, id uuid.UUID, tickets int, revenueMinor int64) error
	GetActiveByFilm(ctx context.Context, filmID uuid.UUID) ([]Screening, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, screening *Screening) error {
	return r.db.WithContext(ctx).Create(screening).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Screening, error) {
	var screening Screening
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&screening).Error
	if err != nil {
		return nil, err
	}
	return &screening, nil
}

func (r *repository) GetAll(ctx context.Context, query ScreeningListQuery) ([]Screening, int64, error) {
	var screenings []Screening
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Screening{})

	if query.FilmID != "" {
		db = db.Where("film_id = ?", query.FilmID)
	}
	if query.HallID != "" {
		db = db.Where("hall_id = ?", query.HallID)
	}
	if query.State != "" {
		db = db.Where("state = ?", query.State)
	}

	if query.DateFrom != "" {
		if dateFrom, err := time.Parse("2006-01-02", query.DateFrom); err == nil {
			db = db.Where("starts_at >= ?", dateFrom)
		}
	}
	if query.DateTo != "" {
		if dateTo, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			dateTo = dateTo.Add(24 * time.Hour)
			db = db.Where("starts_at < ?", dateTo)
		}
	}

	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 20
	}

	offset := (query.Page - 1) * query.Limit

	err := db.Order("starts_at ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&screenings).Error

	return screenings, totalCount, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Screening, error) {
	var screening Screening

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&screening).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&screening).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&screening).Error; err != nil {
		return nil, err
	}

	return &screening, nil
}

func (r *repository) UpdateState(ctx context.Context, id uuid.UUID, state State) error {
	return r.db.WithContext(ctx).Model(&Screening{}).
		Where("id = ?", id).
		Update("state", state).Error
}

// HasOverlap reports whether another non-cancelled function occupies the
// hall during [startsAt, endsAt).
func (r *repository) HasOverlap(ctx context.Context, hallID uuid.UUID, startsAt, endsAt time.Time, excludeID *uuid.UUID) (bool, error) {
	var count int64

	db := r.db.WithContext(ctx).Model(&Screening{}).
		Where("hall_id = ?", hallID).
		Where("state <> ?", StateCancelled).
		Where("starts_at < ? AND ends_at > ?", endsAt, startsAt)

	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}

	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) RecordSale(ctx context.Context, id uuid.UUID, tickets int, revenueMinor int64) error {
	return r.db.WithContext(ctx).Model(&Screening{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tickets_sold":  gorm.Expr("tickets_sold + ?", tickets),
			"revenue_minor": gorm.Expr("revenue_minor + ?", revenueMinor),
		}).Error
}

func (r *repository) GetActiveByFilm(ctx context.Context, filmID uuid.UUID) ([]Screening, error) {
	var screenings []Screening
	err := r.db.WithContext(ctx).
		Where("film_id = ? AND state IN ?", filmID, []State{StateScheduled, StateRunning}).
		Order("starts_at ASC").
		Find(&screenings).Error
	return screenings, err
}
