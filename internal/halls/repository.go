package halls

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, hall *Hall) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hall, error)
	GetByName(ctx context.Context, name string) (*Hall, error)
	GetAll(ctx context.Context, query HallListQuery) ([]Hall, int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Hall, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, hall *Hall) error {
	return r.db.WithContext(ctx).Create(hall).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Hall, error) {
	var hall Hall
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&hall).Error
	if err != nil {
		return nil, err
	}
	return &hall, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*Hall, error) {
	var hall Hall
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&hall).Error
	if err != nil {
		return nil, err
	}
	return &hall, nil
}

func (r *repository) GetAll(ctx context.Context, query HallListQuery) ([]Hall, int64, error) {
	var halls []Hall
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Hall{})

	if query.Type != "" {
		db = db.Where("type = ?", query.Type)
	}
	if query.Active != nil {
		db = db.Where("active = ?", *query.Active)
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

	err := db.Order("name ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&halls).Error

	return halls, totalCount, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Hall, error) {
	var hall Hall

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&hall).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&hall).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&hall).Error; err != nil {
		return nil, err
	}

	return &hall, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Hall{}, "id = ?", id).Error
}
