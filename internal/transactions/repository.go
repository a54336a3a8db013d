package transactions

import (
	"context"
	"errors"
	"time"

	"cinetix/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Transaction, int64, error)

	MarkPaymentStarted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCancelled(ctx context.Context, id, userID uuid.UUID, now time.Time) (bool, error)
	ExpireStaleProcessing(ctx context.Context, now time.Time) (int64, error)

	SavePayment(ctx context.Context, payment *Payment) error

	GetUser(ctx context.Context, userID uuid.UUID) (*users.User, error)
	AddUserPoints(ctx context.Context, userID uuid.UUID, points int64) error

	SoldSeatCodes(ctx context.Context, functionID uuid.UUID) ([]string, error)
	SalesTotals(ctx context.Context) (*SalesTotals, error)
}

// SalesTotals aggregates confirmed sales across all functions.
type SalesTotals struct {
	ConfirmedCount int64 `json:"confirmed_count"`
	TicketsSold    int64 `json:"tickets_sold"`
	RevenueMinor   int64 `json:"revenue_minor"`
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

// Create inserts the transaction together with its seat line items.
func (r *repository) Create(ctx context.Context, txn *Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var txn Transaction
	err := r.db.WithContext(ctx).
		Preload("Seats").
		Preload("Payment").
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Transaction, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var txns []Transaction
	err = r.db.WithContext(ctx).
		Preload("Seats").
		Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// MarkPaymentStarted stamps the payment marker. The guard on state and on
// the marker being unset is what makes cancellation racing the payment
// call safe: exactly one of the two guarded updates wins.
func (r *repository) MarkPaymentStarted(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND state = ? AND payment_started_at IS NULL", id, StateProcessing).
		Update("payment_started_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkConfirmed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND state = ?", id, StateProcessing).
		Updates(map[string]interface{}{
			"state":        StateConfirmed,
			"confirmed_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND state = ?", id, StateProcessing).
		Update("state", StateFailed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkCancelled(ctx context.Context, id, userID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("id = ? AND user_id = ? AND state IN ? AND payment_started_at IS NULL",
			id, userID, []State{StatePending, StateProcessing}).
		Updates(map[string]interface{}{
			"state":        StateCancelled,
			"cancelled_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpireStaleProcessing fails every transaction stuck in processing past
// its checkout window. Run by the reaper so crashed coordinators cannot
// leave transactions in flight forever.
func (r *repository) ExpireStaleProcessing(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("state = ? AND expires_at < ?", StateProcessing, now).
		Update("state", StateFailed)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) SavePayment(ctx context.Context, payment *Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) GetUser(ctx context.Context, userID uuid.UUID) (*users.User, error) {
	var user users.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserUnknown
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) AddUserPoints(ctx context.Context, userID uuid.UUID, points int64) error {
	if points <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&users.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", points)).Error
}

// SoldSeatCodes lists every seat sold for a function, the durable side of
// the seat-state rebuild.
func (r *repository) SoldSeatCodes(ctx context.Context, functionID uuid.UUID) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Table("transaction_seats").
		Joins("JOIN transactions ON transactions.id = transaction_seats.transaction_id").
		Where("transactions.function_id = ? AND transactions.state = ?", functionID, StateConfirmed).
		Pluck("transaction_seats.seat_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *repository) SalesTotals(ctx context.Context) (*SalesTotals, error) {
	var totals SalesTotals
	err := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Select("COUNT(*) AS confirmed_count, COALESCE(SUM(total_minor), 0) AS revenue_minor").
		Where("state = ?", StateConfirmed).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Table("transaction_seats").
		Joins("JOIN transactions ON transactions.id = transaction_seats.transaction_id").
		Where("transactions.state = ?", StateConfirmed).
		Count(&totals.TicketsSold).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
