package films

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, film *Film) error
	GetByID(ctx context.Context, id uuid.UUID) (*Film, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Film, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Film, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetAll(ctx context.Context, query FilmListQuery) ([]Film, int64, error)
	TitleExists(ctx context.Context, title string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, film *Film) error {
	return r.db.WithContext(ctx).Create(film).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Film, error) {
	var film Film
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&film).Error
	if err != nil {
		return nil, err
	}
	return &film, nil
}

func (r *repository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Film, error) {
	var films []Film
	if len(ids) == 0 {
		return films, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&films).Error
	return films, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Film, error) {
	var film Film

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&film).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&film).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&film).Error; err != nil {
		return nil, err
	}

	return &film, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Film{}, "id = ?", id).Error
}

func (r *repository) GetAll(ctx context.Context, query FilmListQuery) ([]Film, int64, error) {
	var films []Film
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Film{})

	if query.Search != "" {
		searchTerm := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(original_title) LIKE ? OR LOWER(director) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if query.Genre != "" {
		db = db.Where("LOWER(genres) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(query.Genre))+"%")
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
		query.Limit = 10
	}

	offset := (query.Page - 1) * query.Limit

	err := db.Order("release_date DESC, title ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&films).Error

	return films, totalCount, err
}

func (r *repository) TitleExists(ctx context.Context, title string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Film{}).
		Where("LOWER(title) = ?", strings.ToLower(title)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
