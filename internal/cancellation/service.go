package cancellation

import (
	"context"
	"errors"
	"time"

	"cinetix/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCancellationNotFound = errors.New("cancellation not found")

const defaultPageSize = 10

// Record captures one owner-initiated cancellation for the audit trail.
type Record struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	FunctionID    uuid.UUID
	Invoice       string
	SeatCount     int
	Reason        string
	Channel       string
}

type Service interface {
	// Record is invoked by the purchase coordinator after a successful
	// cancel. Best-effort from the caller's point of view.
	Record(ctx context.Context, record Record) error

	ListMine(ctx context.Context, userID string, page, limit int) (*PaginatedCancellations, error)
	GetForTransaction(ctx context.Context, transactionID, userID string) (*CancellationResponse, error)
}

type service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.GetDefault(),
	}
}

func (s *service) Record(ctx context.Context, record Record) error {
	channel := record.Channel
	if channel == "" {
		channel = "web"
	}

	row := &Cancellation{
		ID:            uuid.New(),
		TransactionID: record.TransactionID,
		UserID:        record.UserID,
		FunctionID:    record.FunctionID,
		Invoice:       record.Invoice,
		SeatCount:     record.SeatCount,
		Reason:        record.Reason,
		Channel:       channel,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return err
	}

	s.log.Info("Cancellation recorded",
		"transaction_id", record.TransactionID.String(),
		"user_id", record.UserID.String(),
		"seats", record.SeatCount,
	)
	return nil
}

func (s *service) ListMine(ctx context.Context, userID string, page, limit int) (*PaginatedCancellations, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrCancellationNotFound
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	records, total, err := s.repo.ListByUser(ctx, uid, page, limit)
	if err != nil {
		return nil, err
	}

	resp := &PaginatedCancellations{
		Cancellations: make([]CancellationResponse, 0, len(records)),
		TotalCount:    total,
		Page:          page,
		Limit:         limit,
	}
	for i := range records {
		resp.Cancellations = append(resp.Cancellations, toResponse(&records[i]))
	}
	return resp, nil
}

func (s *service) GetForTransaction(ctx context.Context, transactionID, userID string) (*CancellationResponse, error) {
	tid, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, ErrCancellationNotFound
	}

	record, err := s.repo.GetByTransaction(ctx, tid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCancellationNotFound
		}
		return nil, err
	}
	// Foreign records read as absence.
	if record.UserID.String() != userID {
		return nil, ErrCancellationNotFound
	}

	resp := toResponse(record)
	return &resp, nil
}
