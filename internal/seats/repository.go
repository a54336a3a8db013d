package seats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	CreateSelections(ctx context.Context, selections []SeatSelection) error
	CancelSelections(ctx context.Context, functionID, userID uuid.UUID, seatCodes []string) error
	ConfirmSelections(ctx context.Context, functionID, userID uuid.UUID, seatCodes []string) error
	ExpireSelections(ctx context.Context, functionID uuid.UUID, seatCodes []string) error

	ExpiredSelections(ctx context.Context, functionID uuid.UUID, now time.Time) ([]SeatSelection, error)
	ActiveSelections(ctx context.Context, functionID uuid.UUID, now time.Time) ([]SeatSelection, error)
	FunctionsWithExpiredHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateSelections mirrors fresh holds to the durable store. A leftover
// temporary row on the same seat (an expired hold not yet swept) is taken
// over in place, matching the partial unique index on active selections.
func (r *repository) CreateSelections(ctx context.Context, selections []SeatSelection) error {
	if len(selections) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "function_id"}, {Name: "seat_code"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Name: "status"}, Value: SelectionTemporary},
		}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "status", "expires_at", "created_at", "updated_at"}),
	}).Create(&selections).Error
	if err != nil {
		return fmt.Errorf("failed to create seat selections: %w", err)
	}
	return nil
}

func (r *repository) CancelSelections(ctx context.Context, functionID, userID uuid.UUID, seatCodes []string) error {
	return r.settleUserSelections(ctx, functionID, userID, seatCodes, SelectionCancelled)
}

func (r *repository) ConfirmSelections(ctx context.Context, functionID, userID uuid.UUID, seatCodes []string) error {
	return r.settleUserSelections(ctx, functionID, userID, seatCodes, SelectionConfirmed)
}

func (r *repository) settleUserSelections(ctx context.Context, functionID, userID uuid.UUID, seatCodes []string, status string) error {
	if len(seatCodes) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&SeatSelection{}).
		Where("function_id = ? AND user_id = ? AND seat_code IN ? AND status = ?",
			functionID, userID, seatCodes, SelectionTemporary).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to mark selections %s: %w", status, err)
	}
	return nil
}

// ExpireSelections settles swept seats regardless of holder; the sweep
// already established that their holds are gone.
func (r *repository) ExpireSelections(ctx context.Context, functionID uuid.UUID, seatCodes []string) error {
	if len(seatCodes) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&SeatSelection{}).
		Where("function_id = ? AND seat_code IN ? AND status = ?",
			functionID, seatCodes, SelectionTemporary).
		Update("status", SelectionExpired).Error
	if err != nil {
		return fmt.Errorf("failed to mark selections expired: %w", err)
	}
	return nil
}

func (r *repository) ExpiredSelections(ctx context.Context, functionID uuid.UUID, now time.Time) ([]SeatSelection, error) {
	var selections []SeatSelection
	err := r.db.WithContext(ctx).
		Where("function_id = ? AND status = ? AND expires_at <= ?",
			functionID, SelectionTemporary, now).
		Find(&selections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get expired selections: %w", err)
	}
	return selections, nil
}

func (r *repository) ActiveSelections(ctx context.Context, functionID uuid.UUID, now time.Time) ([]SeatSelection, error) {
	var selections []SeatSelection
	err := r.db.WithContext(ctx).
		Where("function_id = ? AND status = ? AND expires_at > ?",
			functionID, SelectionTemporary, now).
		Find(&selections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active selections: %w", err)
	}
	return selections, nil
}

// FunctionsWithExpiredHolds lists functions the reaper should sweep, from
// the selections index rather than a cache scan.
func (r *repository) FunctionsWithExpiredHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&SeatSelection{}).
		Where("status = ? AND expires_at <= ?", SelectionTemporary, now).
		Distinct().
		Pluck("function_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list functions with expired holds: %w", err)
	}
	return ids, nil
}
