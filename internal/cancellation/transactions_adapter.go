package cancellation

import (
	"context"

	"cinetix/internal/transactions"
)

// TransactionAuditor adapts the cancellation service to the recorder
// surface the purchase coordinator expects.
type TransactionAuditor struct {
	service Service
}

func NewTransactionAuditor(service Service) *TransactionAuditor {
	return &TransactionAuditor{service: service}
}

func (a *TransactionAuditor) RecordCancellation(ctx context.Context, record transactions.CancellationRecord) error {
	return a.service.Record(ctx, Record{
		TransactionID: record.TransactionID,
		UserID:        record.UserID,
		FunctionID:    record.FunctionID,
		Invoice:       record.Invoice,
		SeatCount:     record.SeatCount,
		Channel:       record.Channel,
	})
}
