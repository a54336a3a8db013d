package cancellation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, record *Cancellation) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Cancellation, int64, error)
	GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*Cancellation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts the audit row. The cancel path retries on transient store
// failures, so a duplicate transaction id is treated as already recorded.
func (r *repository) Create(ctx context.Context, record *Cancellation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(record).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Cancellation, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&Cancellation{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []Cancellation
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *repository) GetByTransaction(ctx context.Context, transactionID uuid.UUID) (*Cancellation, error) {
	var record Cancellation
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
