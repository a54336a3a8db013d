package transactions

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"cinetix/internal/eventbus"
	"cinetix/internal/payments"
	"cinetix/internal/screenings"
	"cinetix/internal/seats"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"
	"cinetix/internal/users"
	"cinetix/pkg/cache"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserUnknown         = errors.New("user unknown")
	ErrNotCancellable      = errors.New("transaction can no longer be cancelled")
	ErrPurchaseCancelled   = errors.New("transaction was cancelled")
	ErrInvalidPromo        = errors.New("unknown promo code")
	ErrPaymentUnavailable  = errors.New("payment capability unavailable")
)

// PaymentDeclinedError carries the gateway's client-visible diagnostic.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	return "payment declined: " + e.Reason
}

const (
	defaultHistoryPageSize = 10
	defaultChannel         = "web"

	storeRetryBase   = 100 * time.Millisecond
	storeRetryCap    = time.Second
	storeRetryJitter = 0.25
)

// SeatEngine is the slice of the seat inventory the coordinator drives.
type SeatEngine interface {
	TryHold(ctx context.Context, functionID, userID string, seats []string) (*seats.HoldResponse, error)
	Release(ctx context.Context, functionID, userID string, seats []string) (*seats.ReleaseResponse, error)
	Confirm(ctx context.Context, functionID, userID string, seats []string) error
}

// FunctionSource resolves screenings and records sale rollups on them.
type FunctionSource interface {
	GetScreening(ctx context.Context, id uuid.UUID) (*screenings.Screening, error)
	RecordSale(ctx context.Context, id uuid.UUID, tickets int, revenueMinor int64) error
}

// SaleAnnouncer pushes confirmed sales to realtime observers.
type SaleAnnouncer interface {
	SaleConfirmed(functionID, userID string, seats []string)
}

// CancellationRecord is the audit slice of an owner-initiated cancel.
type CancellationRecord struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	FunctionID    uuid.UUID
	Invoice       string
	SeatCount     int
	Channel       string
}

// CancellationRecorder keeps the audit trail of owner cancellations.
// Recording is best-effort; the cancel itself never waits on it.
type CancellationRecorder interface {
	RecordCancellation(ctx context.Context, record CancellationRecord) error
}

type Service interface {
	Purchase(ctx context.Context, userID string, req PurchaseRequest, meta RequestMeta) (*TransactionResponse, error)
	GetTransaction(ctx context.Context, transactionID, userID string) (*TransactionResponse, error)
	CancelTransaction(ctx context.Context, transactionID, userID string) (*TransactionResponse, error)
	ListMine(ctx context.Context, userID string, query HistoryQuery) (*PaginatedTransactions, error)

	SetCancellationRecorder(r CancellationRecorder)

	// Support surfaces for the seat engine, the reaper, the stats module
	// and the notification pipeline.
	Receipt(ctx context.Context, transactionID uuid.UUID) (*TransactionResponse, error)
	SoldSeatCodes(ctx context.Context, functionID uuid.UUID) ([]string, error)
	ExpireStale(ctx context.Context) (int, error)
	OverviewTotals(ctx context.Context) (*SalesTotals, error)

	SetSaleAnnouncer(a SaleAnnouncer)
}

type service struct {
	repo       Repository
	seatEngine SeatEngine
	functions  FunctionSource
	payments   payments.Provider
	bus        eventbus.Publisher
	cache      cache.Service
	cfg        *config.Config
	log        *logger.Logger
	announcer  SaleAnnouncer
	recorder   CancellationRecorder
}

func NewService(
	repo Repository,
	seatEngine SeatEngine,
	functions FunctionSource,
	provider payments.Provider,
	bus eventbus.Publisher,
	cacheService cache.Service,
	cfg *config.Config,
) Service {
	return &service{
		repo:       repo,
		seatEngine: seatEngine,
		functions:  functions,
		payments:   provider,
		bus:        bus,
		cache:      cacheService,
		cfg:        cfg,
		log:        logger.GetDefault(),
	}
}

// SetSaleAnnouncer wires the realtime hub in after construction. Called
// once during startup, before any request is served.
func (s *service) SetSaleAnnouncer(a SaleAnnouncer) {
	s.announcer = a
}

// SetCancellationRecorder wires the cancellation audit trail in after
// construction.
func (s *service) SetCancellationRecorder(r CancellationRecorder) {
	s.recorder = r
}

// Purchase runs the full checkout: resolve user and function, hold the
// seats, price them, persist the transaction, charge, then confirm or roll
// back. Every failure path after the hold releases the seats again.
func (s *service) Purchase(ctx context.Context, userID string, req PurchaseRequest, meta RequestMeta) (*TransactionResponse, error) {
	now := time.Now()

	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserUnknown
	}
	var user *users.User
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		user, err = s.repo.GetUser(ctx, uid)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}

	fid, err := uuid.Parse(req.FunctionID)
	if err != nil {
		return nil, screenings.ErrScreeningNotFound
	}
	var screening *screenings.Screening
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		screening, err = s.functions.GetScreening(ctx, fid)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}
	if !screening.IsSalesOpen(now, s.cfg.Sales.GraceWindow) {
		return nil, seats.ErrSalesClosed
	}

	codes, err := s.resolveSeatCodes(screening, req.Seats)
	if err != nil {
		return nil, err
	}

	promoBP := int64(0)
	promoCode := ""
	if strings.TrimSpace(req.Promo) != "" {
		bp, ok := PromoDiscountBP(req.Promo)
		if !ok {
			return nil, ErrInvalidPromo
		}
		promoBP = bp
		promoCode = strings.ToUpper(strings.TrimSpace(req.Promo))
	}

	functionID := fid.String()
	hold, err := s.seatEngine.TryHold(ctx, functionID, userID, codes)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Seats held for purchase",
		"function_id", functionID,
		"user_id", userID,
		"seats", codes,
		"hold_expires_at", hold.ExpiresAt,
	)

	quote, err := PriceSeats(screening, codes, user.Tier.DiscountBP(), promoBP, s.cfg.Sales.TaxRateBP)
	if err != nil {
		s.releaseSeats(ctx, functionID, userID, codes)
		return nil, fmt.Errorf("%w: %v", seats.ErrInvalidSeat, err)
	}

	txn := s.newTransaction(now, uid, fid, screening, quote, promoCode, codes, meta)
	if err := s.withStoreRetry(ctx, func() error {
		return s.repo.Create(ctx, txn)
	}); err != nil {
		s.releaseSeats(ctx, functionID, userID, codes)
		return nil, s.asStoreError(err)
	}

	// Stamp the payment marker. Losing this compare-and-set means the owner
	// cancelled concurrently; the cancel path has released the seats.
	paymentStartedAt := time.Now()
	var started bool
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		started, err = s.repo.MarkPaymentStarted(ctx, txn.ID, paymentStartedAt)
		return err
	}); err != nil {
		s.releaseSeats(ctx, functionID, userID, codes)
		s.failTransaction(context.WithoutCancel(ctx), txn.ID)
		return nil, s.asStoreError(err)
	}
	if !started {
		s.releaseSeats(ctx, functionID, userID, codes)
		return nil, ErrPurchaseCancelled
	}
	txn.PaymentStartedAt = &paymentStartedAt

	// The payment call is detached from the request context: a client
	// disconnect must not interrupt a charge in flight. Settlement after
	// payment runs detached too, so the outcome is always recorded.
	payCtx, cancelPay := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Payment.Timeout)
	defer cancelPay()
	result, payErr := s.payments.Pay(payCtx, payments.Request{
		AmountMinor: quote.TotalMinor,
		Method:      req.Method,
		ExternalRef: txn.ID.String(),
	})

	settleCtx := context.WithoutCancel(ctx)
	payment := s.newPayment(txn.ID, req)

	if payErr != nil {
		payment.FailureReason = "payment capability error"
		s.settleFailure(settleCtx, txn, payment, "payment capability error: "+payErr.Error())
		return nil, ErrPaymentUnavailable
	}
	if !result.OK {
		payment.FailureReason = result.Reason
		s.settleFailure(settleCtx, txn, payment, result.Reason)
		return nil, &PaymentDeclinedError{Reason: result.Reason}
	}
	payment.AuthCode = result.AuthCode

	// Confirm consumes the hold records, so it cannot be retried blindly:
	// a second call would read its own success as a lost hold. Only a busy
	// lock fails before any mutation and is safe to re-attempt once.
	confirmErr := s.seatEngine.Confirm(settleCtx, functionID, userID, codes)
	if errors.Is(confirmErr, seats.ErrLockBusy) {
		confirmErr = s.seatEngine.Confirm(settleCtx, functionID, userID, codes)
	}
	if confirmErr != nil {
		var lost *seats.HoldLostError
		if errors.As(confirmErr, &lost) {
			payment.FailureReason = "hold expired before confirmation"
			s.settleFailure(settleCtx, txn, payment, "hold lost")
			s.publish(settleCtx, eventbus.Event{
				Type:          eventbus.TypeSaleFailed,
				FunctionID:    functionID,
				UserID:        userID,
				Seats:         codes,
				TransactionID: txn.ID.String(),
			})
			return nil, confirmErr
		}
		payment.FailureReason = "seat confirmation failed"
		s.settleFailure(settleCtx, txn, payment, "seat confirmation failed")
		return nil, s.asStoreError(confirmErr)
	}

	confirmedAt := time.Now()
	var confirmed bool
	if err := s.withStoreRetry(settleCtx, func() error {
		var err error
		confirmed, err = s.repo.MarkConfirmed(settleCtx, txn.ID, confirmedAt)
		return err
	}); err != nil || !confirmed {
		// Seats are committed in the cache but the durable record could not
		// follow. The reaper fails the transaction at its checkout expiry;
		// until then this needs operator attention.
		s.log.WithError(err).Error("Confirmed sale could not be recorded",
			"transaction_id", txn.ID.String(),
			"function_id", functionID,
		)
		return nil, s.asStoreError(errors.New("transaction state update lost"))
	}
	txn.State = StateConfirmed
	txn.ConfirmedAt = &confirmedAt

	if err := s.withStoreRetry(settleCtx, func() error {
		return s.repo.SavePayment(settleCtx, payment)
	}); err != nil {
		s.log.WithError(err).Error("Failed to record payment detail", "transaction_id", txn.ID.String())
	}
	txn.Payment = payment

	s.afterConfirm(settleCtx, txn, quote, screening)

	resp := txn.ToResponse()
	return &resp, nil
}

// afterConfirm runs the post-commit side effects. All of them are
// best-effort: the sale already stands.
func (s *service) afterConfirm(ctx context.Context, txn *Transaction, quote Quote, screening *screenings.Screening) {
	functionID := txn.FunctionID.String()
	userID := txn.UserID.String()
	codes := txn.SeatCodes()

	if err := s.functions.RecordSale(ctx, txn.FunctionID, len(codes), quote.TotalMinor); err != nil {
		s.log.WithError(err).Error("Failed to record sale rollup", "function_id", functionID)
	}

	if points := quote.TotalMinor / s.cfg.Sales.MinorUnitScale; points > 0 {
		if err := s.repo.AddUserPoints(ctx, txn.UserID, points); err != nil {
			s.log.WithError(err).Error("Failed to accrue loyalty points", "user_id", userID)
		}
	}

	s.publish(ctx, eventbus.Event{
		Type:          eventbus.TypeSaleConfirmed,
		FunctionID:    functionID,
		UserID:        userID,
		Seats:         codes,
		TransactionID: txn.ID.String(),
	})

	if s.announcer != nil {
		s.announcer.SaleConfirmed(functionID, userID, codes)
	}

	s.invalidateUserHistory(ctx, userID)
	if err := s.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_STATS); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate stats cache")
	}

	s.log.LogPurchaseConfirmed(ctx, txn.ID.String(), txn.Invoice, functionID, userID, txn.TotalMinor)
}

// settleFailure rolls a charged-or-declined purchase into failed: give the
// seats back, flip the state, keep the payment detail for the audit trail.
func (s *service) settleFailure(ctx context.Context, txn *Transaction, payment *Payment, reason string) {
	functionID := txn.FunctionID.String()
	userID := txn.UserID.String()

	s.releaseSeats(ctx, functionID, userID, txn.SeatCodes())
	s.failTransaction(ctx, txn.ID)
	txn.State = StateFailed

	if err := s.withStoreRetry(ctx, func() error {
		return s.repo.SavePayment(ctx, payment)
	}); err != nil {
		s.log.WithError(err).Error("Failed to record payment detail", "transaction_id", txn.ID.String())
	}
	txn.Payment = payment

	s.invalidateUserHistory(ctx, userID)
	s.log.LogPurchaseFailed(ctx, txn.ID.String(), functionID, userID, reason)
}

func (s *service) failTransaction(ctx context.Context, id uuid.UUID) {
	if err := s.withStoreRetry(ctx, func() error {
		_, err := s.repo.MarkFailed(ctx, id)
		return err
	}); err != nil {
		// Still in processing; the reaper fails it at checkout expiry.
		s.log.WithError(err).Error("Failed to mark transaction failed", "transaction_id", id.String())
	}
}

// releaseSeats is the rollback arm of the purchase. Seats the user no
// longer holds are skipped by the engine, so calling it twice is safe.
func (s *service) releaseSeats(ctx context.Context, functionID, userID string, codes []string) {
	if _, err := s.seatEngine.Release(context.WithoutCancel(ctx), functionID, userID, codes); err != nil {
		s.log.WithError(err).Error("Failed to release seats after purchase failure",
			"function_id", functionID,
			"user_id", userID,
			"seats", codes,
		)
	}
}

func (s *service) GetTransaction(ctx context.Context, transactionID, userID string) (*TransactionResponse, error) {
	tid, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	cacheKey := constants.BuildTransactionDetailKey(tid.String())
	var cached TransactionResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		if cached.UserID != userID {
			return nil, ErrTransactionNotFound
		}
		return &cached, nil
	}

	var txn *Transaction
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		txn, err = s.repo.GetByID(ctx, tid)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}
	// Ownership failures read as absence so invoice ids cannot be probed.
	if txn.UserID.String() != userID {
		return nil, ErrTransactionNotFound
	}

	resp := txn.ToResponse()

	// In-flight states flip within seconds; only settled receipts are
	// worth caching.
	if txn.State != StatePending && txn.State != StateProcessing {
		if err := s.cache.Set(ctx, cacheKey, resp, constants.TTL_TRANSACTION_DETAIL); err != nil {
			s.log.WithError(err).Warn("Failed to cache transaction detail", "transaction_id", tid.String())
		}
	}
	return &resp, nil
}

func (s *service) CancelTransaction(ctx context.Context, transactionID, userID string) (*TransactionResponse, error) {
	tid, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, ErrTransactionNotFound
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrTransactionNotFound
	}

	var txn *Transaction
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		txn, err = s.repo.GetByID(ctx, tid)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}
	if txn.UserID != uid {
		return nil, ErrTransactionNotFound
	}

	now := time.Now()
	var cancelled bool
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		cancelled, err = s.repo.MarkCancelled(ctx, tid, uid, now)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}
	if !cancelled {
		return nil, ErrNotCancellable
	}

	s.releaseSeats(ctx, txn.FunctionID.String(), userID, txn.SeatCodes())

	txn.State = StateCancelled
	txn.CancelledAt = &now

	if s.recorder != nil {
		if err := s.recorder.RecordCancellation(context.WithoutCancel(ctx), CancellationRecord{
			TransactionID: txn.ID,
			UserID:        uid,
			FunctionID:    txn.FunctionID,
			Invoice:       txn.Invoice,
			SeatCount:     len(txn.Seats),
			Channel:       txn.Channel,
		}); err != nil {
			s.log.WithError(err).Warn("Failed to record cancellation", "transaction_id", tid.String())
		}
	}

	s.invalidateUserHistory(ctx, userID)
	if err := s.cache.Delete(ctx, constants.BuildTransactionDetailKey(tid.String())); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate transaction detail cache", "transaction_id", tid.String())
	}
	s.log.LogTransactionCancelled(ctx, tid.String(), userID)

	resp := txn.ToResponse()
	return &resp, nil
}

func (s *service) ListMine(ctx context.Context, userID string, query HistoryQuery) (*PaginatedTransactions, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUserUnknown
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultHistoryPageSize
	}

	// The history cache key carries the page only, so only default-sized
	// pages are cached.
	cacheable := limit == defaultHistoryPageSize
	cacheKey := constants.BuildUserTransactionsKey(userID, page)
	if cacheable {
		var cached PaginatedTransactions
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var txns []Transaction
	var total int64
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		txns, total, err = s.repo.ListByUser(ctx, uid, page, limit)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}

	resp := &PaginatedTransactions{
		Transactions: make([]TransactionResponse, 0, len(txns)),
		TotalCount:   total,
		Page:         page,
		Limit:        limit,
		TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
	}
	for i := range txns {
		resp.Transactions = append(resp.Transactions, txns[i].ToResponse())
	}

	if cacheable {
		if err := s.cache.Set(ctx, cacheKey, resp, constants.TTL_USER_TRANSACTIONS); err != nil {
			s.log.WithError(err).Warn("Failed to cache transaction history", "user_id", userID)
		}
	}
	return resp, nil
}

// Receipt returns a transaction without an ownership check. It backs the
// notification pipeline, which acts on behalf of the owner.
func (s *service) Receipt(ctx context.Context, transactionID uuid.UUID) (*TransactionResponse, error) {
	var txn *Transaction
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		txn, err = s.repo.GetByID(ctx, transactionID)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}
	resp := txn.ToResponse()
	return &resp, nil
}

// SoldSeatCodes feeds the seat-state rebuild with the durable sold set.
func (s *service) SoldSeatCodes(ctx context.Context, functionID uuid.UUID) ([]string, error) {
	return s.repo.SoldSeatCodes(ctx, functionID)
}

// ExpireStale fails transactions stuck in processing past their checkout
// window. Invoked from the reaper tick.
func (s *service) ExpireStale(ctx context.Context) (int, error) {
	n, err := s.repo.ExpireStaleProcessing(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("Expired stale processing transactions", "count", n)
	}
	return int(n), nil
}

func (s *service) OverviewTotals(ctx context.Context) (*SalesTotals, error) {
	var totals *SalesTotals
	if err := s.withStoreRetry(ctx, func() error {
		var err error
		totals, err = s.repo.SalesTotals(ctx)
		return err
	}); err != nil {
		return nil, s.asStoreError(err)
	}
	return totals, nil
}

func (s *service) newTransaction(now time.Time, uid, fid uuid.UUID, screening *screenings.Screening, quote Quote, promoCode string, codes []string, meta RequestMeta) *Transaction {
	channel := meta.Channel
	if channel == "" {
		channel = defaultChannel
	}

	txn := &Transaction{
		ID:                 uuid.New(),
		Invoice:            NewInvoiceNumber(now),
		UserID:             uid,
		FunctionID:         fid,
		FilmID:             screening.FilmID,
		SubtotalMinor:      quote.SubtotalMinor,
		CustomerDiscountBP: quote.CustomerDiscountBP,
		PromoCode:          promoCode,
		PromoDiscountBP:    quote.PromoDiscountBP,
		DiscountMinor:      quote.DiscountMinor,
		TaxMinor:           quote.TaxMinor,
		TotalMinor:         quote.TotalMinor,
		State:              StateProcessing,
		OriginIP:           meta.OriginIP,
		UserAgent:          meta.UserAgent,
		Channel:            channel,
		ExpiresAt:          now.Add(s.cfg.Sales.CheckoutWindow),
		Seats:              make([]TransactionSeat, 0, len(quote.Lines)),
	}
	txn.QRPayload = BuildQRPayload(txn.Invoice, fid, uid, codes)

	for _, line := range quote.Lines {
		txn.Seats = append(txn.Seats, TransactionSeat{
			TransactionID:   txn.ID,
			SeatCode:        line.Code,
			Row:             line.Row,
			Number:          line.Number,
			Tier:            line.Tier,
			UnitPriceMinor:  line.UnitPriceMinor,
			DiscountMinor:   line.DiscountMinor,
			FinalPriceMinor: line.FinalPriceMinor,
		})
	}
	return txn
}

func (s *service) newPayment(transactionID uuid.UUID, req PurchaseRequest) *Payment {
	processedAt := time.Now()
	payment := &Payment{
		TransactionID: transactionID,
		Method:        req.Method,
		ExternalRef:   transactionID.String(),
		ProcessedAt:   &processedAt,
	}
	if req.Card != nil {
		payment.Last4 = req.Card.Last4
		payment.Issuer = req.Card.Issuer
	}
	return payment
}

// resolveSeatCodes normalizes, deduplicates and validates the requested
// seat codes against the function's layout.
func (s *service) resolveSeatCodes(screening *screenings.Screening, raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	codes := make([]string, 0, len(raw))
	for _, code := range raw {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		if err := screening.ValidateSeatCode(code); err != nil {
			return nil, fmt.Errorf("%w: %v", seats.ErrInvalidSeat, err)
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, seats.ErrNoSeats
	}
	if len(codes) > s.cfg.Sales.MaxSeatsPerHold {
		return nil, fmt.Errorf("%w: at most %d seats per purchase", seats.ErrTooManySeats, s.cfg.Sales.MaxSeatsPerHold)
	}
	return codes, nil
}

func (s *service) publish(ctx context.Context, event eventbus.Event) {
	if s.bus == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.WithError(err).Error("Failed to publish sales event", "type", event.Type)
	}
}

func (s *service) invalidateUserHistory(ctx context.Context, userID string) {
	if err := s.cache.DeletePattern(ctx, constants.BuildUserTransactionsPattern(userID)); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate transaction history cache", "user_id", userID)
	}
}

// withStoreRetry re-attempts transient store failures with the same backoff
// profile as the lock manager. Business outcomes pass through untouched.
func (s *service) withStoreRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.cfg.Sales.StoreRetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(storeBackoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = op(); err == nil {
			return nil
		}
		if isBusinessErr(err) {
			return err
		}
	}
	return err
}

// asStoreError maps persistent store failures to the retryable surface
// error while letting business errors through verbatim.
func (s *service) asStoreError(err error) error {
	if isBusinessErr(err) {
		return err
	}
	if errors.Is(err, seats.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", seats.ErrStoreUnavailable, err)
}

func isBusinessErr(err error) bool {
	var unavailable *seats.SeatUnavailableError
	var lost *seats.HoldLostError
	var declined *PaymentDeclinedError
	return errors.Is(err, ErrUserUnknown) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrNotCancellable) ||
		errors.Is(err, ErrPurchaseCancelled) ||
		errors.Is(err, ErrInvalidPromo) ||
		errors.Is(err, screenings.ErrScreeningNotFound) ||
		errors.Is(err, seats.ErrInvalidSeat) ||
		errors.Is(err, seats.ErrNoSeats) ||
		errors.Is(err, seats.ErrTooManySeats) ||
		errors.Is(err, seats.ErrSalesClosed) ||
		errors.As(err, &unavailable) ||
		errors.As(err, &lost) ||
		errors.As(err, &declined)
}

func storeBackoff(attempt int) time.Duration {
	backoff := storeRetryBase << (attempt - 1)
	if backoff > storeRetryCap {
		backoff = storeRetryCap
	}
	jitter := 1 + (rand.Float64()*2-1)*storeRetryJitter
	return time.Duration(float64(backoff) * jitter)
}
