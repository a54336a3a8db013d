package transactions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinetix/internal/eventbus"
	"cinetix/internal/payments"
	"cinetix/internal/screenings"
	"cinetix/internal/seats"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"
	"cinetix/internal/users"
	"cinetix/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTxnRepo is an in-memory Repository for driving the coordinator.
type fakeTxnRepo struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*Transaction
	user *users.User

	payments []*Payment
	points   int64

	denyPaymentStart bool
	soldCodes        []string
}

func newFakeTxnRepo(user *users.User) *fakeTxnRepo {
	return &fakeTxnRepo{txns: make(map[uuid.UUID]*Transaction), user: user}
}

func (f *fakeTxnRepo) Create(_ context.Context, txn *Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *txn
	f.txns[txn.ID] = &clone
	return nil
}

func (f *fakeTxnRepo) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	clone := *txn
	return &clone, nil
}

func (f *fakeTxnRepo) ListByUser(_ context.Context, userID uuid.UUID, page, pageSize int) ([]Transaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []Transaction
	for _, txn := range f.txns {
		if txn.UserID == userID {
			all = append(all, *txn)
		}
	}
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeTxnRepo) MarkPaymentStarted(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyPaymentStart {
		return false, nil
	}
	txn, ok := f.txns[id]
	if !ok || txn.State != StateProcessing || txn.PaymentStartedAt != nil {
		return false, nil
	}
	txn.PaymentStartedAt = &now
	return true, nil
}

func (f *fakeTxnRepo) MarkConfirmed(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || !txn.State.CanTransitionTo(StateConfirmed) {
		return false, nil
	}
	txn.State = StateConfirmed
	txn.ConfirmedAt = &now
	return true, nil
}

func (f *fakeTxnRepo) MarkFailed(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || !txn.State.CanTransitionTo(StateFailed) {
		return false, nil
	}
	txn.State = StateFailed
	return true, nil
}

func (f *fakeTxnRepo) MarkCancelled(_ context.Context, id, userID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || txn.UserID != userID {
		return false, nil
	}
	if txn.PaymentStartedAt != nil || !txn.State.CanTransitionTo(StateCancelled) {
		return false, nil
	}
	txn.State = StateCancelled
	txn.CancelledAt = &now
	return true, nil
}

func (f *fakeTxnRepo) ExpireStaleProcessing(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, txn := range f.txns {
		if txn.State == StateProcessing && now.After(txn.ExpiresAt) {
			txn.State = StateFailed
			n++
		}
	}
	return n, nil
}

func (f *fakeTxnRepo) SavePayment(_ context.Context, payment *Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, payment)
	return nil
}

func (f *fakeTxnRepo) GetUser(_ context.Context, userID uuid.UUID) (*users.User, error) {
	if f.user == nil || f.user.ID != userID {
		return nil, ErrUserUnknown
	}
	return f.user, nil
}

func (f *fakeTxnRepo) AddUserPoints(_ context.Context, _ uuid.UUID, points int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points += points
	return nil
}

func (f *fakeTxnRepo) SoldSeatCodes(_ context.Context, _ uuid.UUID) ([]string, error) {
	return f.soldCodes, nil
}

func (f *fakeTxnRepo) SalesTotals(_ context.Context) (*SalesTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := &SalesTotals{}
	for _, txn := range f.txns {
		if txn.State == StateConfirmed {
			totals.ConfirmedCount++
			totals.TicketsSold += int64(len(txn.Seats))
			totals.RevenueMinor += txn.TotalMinor
		}
	}
	return totals, nil
}

func (f *fakeTxnRepo) get(id uuid.UUID) *Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txns[id]
}

// fakeSeatEngine records engine calls and returns scripted outcomes.
type fakeSeatEngine struct {
	mu       sync.Mutex
	held     [][]string
	released [][]string

	holdErr    error
	confirmErr error
}

func (f *fakeSeatEngine) TryHold(_ context.Context, _, _ string, codes []string) (*seats.HoldResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.holdErr != nil {
		return nil, f.holdErr
	}
	f.held = append(f.held, codes)
	return &seats.HoldResponse{Seats: codes, ExpiresAt: time.Now().Add(5 * time.Minute), TTLSeconds: 300}, nil
}

func (f *fakeSeatEngine) Release(_ context.Context, _, _ string, codes []string) (*seats.ReleaseResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, codes)
	return &seats.ReleaseResponse{Released: codes}, nil
}

func (f *fakeSeatEngine) Confirm(_ context.Context, _, _ string, _ []string) error {
	return f.confirmErr
}

func (f *fakeSeatEngine) releaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.released)
}

type fakeTxnFunctionSource struct {
	mu        sync.Mutex
	screening *screenings.Screening
	sales     []int64
}

func (f *fakeTxnFunctionSource) GetScreening(_ context.Context, id uuid.UUID) (*screenings.Screening, error) {
	if f.screening == nil || f.screening.ID != id {
		return nil, screenings.ErrScreeningNotFound
	}
	return f.screening, nil
}

func (f *fakeTxnFunctionSource) RecordSale(_ context.Context, _ uuid.UUID, _ int, revenueMinor int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, revenueMinor)
	return nil
}

type fakeProvider struct {
	result *payments.Result
	err    error
	called bool
}

func (f *fakeProvider) Pay(_ context.Context, _ payments.Request) (*payments.Result, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeAnnouncer struct {
	mu    sync.Mutex
	sales [][]string
}

func (f *fakeAnnouncer) SaleConfirmed(_, _ string, codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales = append(f.sales, codes)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []CancellationRecord
}

func (f *fakeRecorder) RecordCancellation(_ context.Context, record CancellationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

type coordinatorFixture struct {
	service   Service
	repo      *fakeTxnRepo
	engine    *fakeSeatEngine
	functions *fakeTxnFunctionSource
	provider  *fakeProvider
	announcer *fakeAnnouncer
	recorder  *fakeRecorder
	cache     cache.Service
	user      *users.User
	screening *screenings.Screening
}

func newCoordinator(t *testing.T) *coordinatorFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cacheService := cache.NewService(client)

	cfg := &config.Config{}
	cfg.Sales.HoldWindow = 5 * time.Minute
	cfg.Sales.CheckoutWindow = 10 * time.Minute
	cfg.Sales.GraceWindow = 30 * time.Minute
	cfg.Sales.TaxRateBP = 1900
	cfg.Sales.MinorUnitScale = 100
	cfg.Sales.MaxSeatsPerHold = 6
	cfg.Sales.StoreRetryMax = 0
	cfg.Payment.Timeout = 2 * time.Second

	user := &users.User{
		ID:        uuid.New(),
		FirstName: "Lucia",
		LastName:  "Vega",
		Email:     "lucia@example.com",
		Tier:      users.TierFrequent,
		Active:    true,
	}
	screening := &screenings.Screening{
		ID:             uuid.New(),
		FilmID:         uuid.New(),
		StartsAt:       time.Now().Add(2 * time.Hour),
		State:          screenings.StateScheduled,
		BasePriceMinor: 1000,
		VIPPriceMinor:  1500,
		Rows:           3,
		SeatsPerRow:    4,
		VIPRows:        "A",
	}

	repo := newFakeTxnRepo(user)
	engine := &fakeSeatEngine{}
	functions := &fakeTxnFunctionSource{screening: screening}
	provider := &fakeProvider{result: &payments.Result{OK: true, AuthCode: "AUTH-1"}}
	announcer := &fakeAnnouncer{}
	recorder := &fakeRecorder{}

	svc := NewService(repo, engine, functions, provider, eventbus.NewPublisher(cacheService), cacheService, cfg)
	svc.SetSaleAnnouncer(announcer)
	svc.SetCancellationRecorder(recorder)

	return &coordinatorFixture{
		service:   svc,
		repo:      repo,
		engine:    engine,
		functions: functions,
		provider:  provider,
		announcer: announcer,
		recorder:  recorder,
		cache:     cacheService,
		user:      user,
		screening: screening,
	}
}

func (fx *coordinatorFixture) purchaseReq(seats ...string) PurchaseRequest {
	return PurchaseRequest{
		FunctionID: fx.screening.ID.String(),
		Seats:      seats,
		Method:     MethodCreditCard,
		Card:       &CardInfo{Last4: "4242", Issuer: "visa"},
	}
}

func TestPurchaseHappyPath(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	// Subscribe before the purchase so the confirmed event is observable.
	require.NoError(t, fx.cache.XGroupCreateMkStream(ctx, constants.STREAM_EVENTS_SALES, "test"))

	resp, err := fx.service.Purchase(ctx, fx.user.ID.String(), fx.purchaseReq("a1", "B1"), RequestMeta{OriginIP: "10.0.0.1", Channel: "web"})
	require.NoError(t, err)

	assert.Equal(t, string(StateConfirmed), resp.State)
	assert.Regexp(t, `^CIN-\d{14}-[0-9A-F]{8}$`, resp.Invoice)
	assert.NotEmpty(t, resp.QRPayload)

	// Frequent tier, no promo: 2500 - 10% = 2250, +19% tax = 2678 total.
	assert.Equal(t, int64(2500), resp.SubtotalMinor)
	assert.Equal(t, int64(250), resp.DiscountMinor)
	assert.Equal(t, int64(2678), resp.TotalMinor)

	stored := fx.repo.get(uuid.MustParse(resp.ID))
	require.NotNil(t, stored)
	assert.Equal(t, StateConfirmed, stored.State)
	require.NotNil(t, stored.PaymentStartedAt)

	// Side effects: rollup, loyalty points, realtime announce, stream event.
	assert.Equal(t, []int64{2678}, fx.functions.sales)
	assert.Equal(t, int64(26), fx.repo.points)
	require.Len(t, fx.announcer.sales, 1)
	assert.Equal(t, []string{"A1", "B1"}, fx.announcer.sales[0])

	msgs, err := fx.cache.XReadGroup(ctx, constants.STREAM_EVENTS_SALES, "test", "t", ">", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, eventbus.TypeSaleConfirmed, msgs[0].Values["type"])

	// Nothing was rolled back.
	assert.Zero(t, fx.engine.releaseCount())
}

func TestPurchaseDeclinedReleasesSeats(t *testing.T) {
	fx := newCoordinator(t)
	fx.provider.result = &payments.Result{OK: false, Reason: "insufficient funds"}

	_, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})

	var declined *PaymentDeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "insufficient funds", declined.Reason)

	assert.Equal(t, 1, fx.engine.releaseCount())

	// The attempt is kept as failed with its payment detail.
	require.Len(t, fx.repo.payments, 1)
	assert.Equal(t, "insufficient funds", fx.repo.payments[0].FailureReason)
	for _, txn := range fx.repo.txns {
		assert.Equal(t, StateFailed, txn.State)
	}
}

func TestPurchaseProviderErrorReleasesSeats(t *testing.T) {
	fx := newCoordinator(t)
	fx.provider.err = errors.New("gateway timeout")

	_, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})
	assert.ErrorIs(t, err, ErrPaymentUnavailable)
	assert.Equal(t, 1, fx.engine.releaseCount())
}

func TestPurchaseSeatConflictPropagates(t *testing.T) {
	fx := newCoordinator(t)
	fx.engine.holdErr = &seats.SeatUnavailableError{Conflicts: []seats.SeatConflict{{Code: "B1", State: seats.SeatHeld}}}

	_, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})

	var unavailable *seats.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.False(t, fx.provider.called, "no charge without a hold")
	assert.Empty(t, fx.repo.txns, "nothing persisted without a hold")
}

func TestPurchaseHoldLostAfterPayment(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()
	fx.engine.confirmErr = &seats.HoldLostError{Seats: []string{"B1"}}

	require.NoError(t, fx.cache.XGroupCreateMkStream(ctx, constants.STREAM_EVENTS_SALES, "test"))

	_, err := fx.service.Purchase(ctx, fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})

	var lost *seats.HoldLostError
	require.ErrorAs(t, err, &lost)

	assert.Equal(t, 1, fx.engine.releaseCount())
	for _, txn := range fx.repo.txns {
		assert.Equal(t, StateFailed, txn.State)
	}

	msgs, err := fx.cache.XReadGroup(ctx, constants.STREAM_EVENTS_SALES, "test", "t", ">", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, eventbus.TypeSaleFailed, msgs[0].Values["type"])
}

func TestPurchaseLosesRaceToCancel(t *testing.T) {
	fx := newCoordinator(t)
	fx.repo.denyPaymentStart = true

	_, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})
	assert.ErrorIs(t, err, ErrPurchaseCancelled)
	assert.False(t, fx.provider.called, "a cancelled purchase must not charge")
	assert.Equal(t, 1, fx.engine.releaseCount())
}

func TestPurchaseRejectsUnknownPromo(t *testing.T) {
	fx := newCoordinator(t)

	req := fx.purchaseReq("B1")
	req.Promo = "NOSUCHCODE"

	_, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), req, RequestMeta{})
	assert.ErrorIs(t, err, ErrInvalidPromo)
	assert.Empty(t, fx.engine.held, "promo validation happens before the hold")
}

func TestPurchaseAppliesPromo(t *testing.T) {
	fx := newCoordinator(t)

	req := fx.purchaseReq("B1")
	req.Promo = "cine2024"

	resp, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), req, RequestMeta{})
	require.NoError(t, err)

	// 1000 - 15% (tier 10% + promo 5%) = 850, +19% tax (161.5 -> 162).
	assert.Equal(t, "CINE2024", resp.PromoCode)
	assert.Equal(t, int64(150), resp.DiscountMinor)
	assert.Equal(t, int64(1012), resp.TotalMinor)
}

func TestPurchaseRejectsClosedSales(t *testing.T) {
	fx := newCoordinator(t)
	fx.screening.StartsAt = time.Now().Add(-2 * time.Hour)

	_, err := fx.service.Purchase(context.Background(), fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})
	assert.ErrorIs(t, err, seats.ErrSalesClosed)
}

func TestPurchaseRejectsUnknownUser(t *testing.T) {
	fx := newCoordinator(t)

	_, err := fx.service.Purchase(context.Background(), uuid.NewString(), fx.purchaseReq("B1"), RequestMeta{})
	assert.ErrorIs(t, err, ErrUserUnknown)
}

func TestGetTransactionHidesForeignReceipts(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	resp, err := fx.service.Purchase(ctx, fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})
	require.NoError(t, err)

	got, err := fx.service.GetTransaction(ctx, resp.ID, fx.user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, resp.Invoice, got.Invoice)

	// Another user probing the id reads absence, not denial.
	_, err = fx.service.GetTransaction(ctx, resp.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestCancelBeforePayment(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	// A processing transaction whose payment has not started yet.
	txn := &Transaction{
		ID:         uuid.New(),
		Invoice:    NewInvoiceNumber(time.Now()),
		UserID:     fx.user.ID,
		FunctionID: fx.screening.ID,
		FilmID:     fx.screening.FilmID,
		State:      StateProcessing,
		Channel:    "web",
		ExpiresAt:  time.Now().Add(10 * time.Minute),
		Seats:      []TransactionSeat{{SeatCode: "B1"}},
	}
	require.NoError(t, fx.repo.Create(ctx, txn))

	resp, err := fx.service.CancelTransaction(ctx, txn.ID.String(), fx.user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(StateCancelled), resp.State)

	assert.Equal(t, 1, fx.engine.releaseCount())
	require.Len(t, fx.recorder.records, 1)
	assert.Equal(t, txn.ID, fx.recorder.records[0].TransactionID)
	assert.Equal(t, 1, fx.recorder.records[0].SeatCount)
}

func TestCancelRejectedOncePaymentStarted(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	resp, err := fx.service.Purchase(ctx, fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})
	require.NoError(t, err)

	_, err = fx.service.CancelTransaction(ctx, resp.ID, fx.user.ID.String())
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Empty(t, fx.recorder.records)
}

func TestExpireStaleFailsOverdueProcessing(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	stale := &Transaction{
		ID:        uuid.New(),
		UserID:    fx.user.ID,
		State:     StateProcessing,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, fx.repo.Create(ctx, stale))

	n, err := fx.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, StateFailed, fx.repo.get(stale.ID).State)
}

func TestListMinePaginates(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := fx.service.Purchase(ctx, fx.user.ID.String(), fx.purchaseReq("B1"), RequestMeta{})
		require.NoError(t, err)
		// Seats are released between purchases by the fake engine contract;
		// the coordinator only sees hold success here.
	}

	page, err := fx.service.ListMine(ctx, fx.user.ID.String(), HistoryQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Len(t, page.Transactions, 2)
	assert.Equal(t, 2, page.TotalPages)
}

func TestOverviewTotals(t *testing.T) {
	fx := newCoordinator(t)
	ctx := context.Background()

	_, err := fx.service.Purchase(ctx, fx.user.ID.String(), fx.purchaseReq("A1", "B1"), RequestMeta{})
	require.NoError(t, err)

	totals, err := fx.service.OverviewTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.ConfirmedCount)
	assert.Equal(t, int64(2), totals.TicketsSold)
	assert.Equal(t, int64(2678), totals.RevenueMinor)
}
