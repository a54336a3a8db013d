package seats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinetix/internal/halls"
	"cinetix/internal/screenings"
	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"
	"cinetix/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidSeat      = errors.New("invalid seat code")
	ErrTooManySeats     = errors.New("too many seats requested")
	ErrNoSeats          = errors.New("no seats requested")
	ErrSalesClosed      = errors.New("sales are closed for this function")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Broadcaster pushes seat-state changes to realtime observers. Calls happen
// inside the per-function critical section, so observers see events in the
// same order the state changed.
type Broadcaster interface {
	SeatsHeld(functionID, userID string, seats []string, expiresAt time.Time)
	SeatsReleased(functionID, userID string, seats []string)
	HoldsExpired(functionID string, seats []string)
}

// FunctionSource resolves the function whose seats are being operated on.
// Satisfied by the screenings service.
type FunctionSource interface {
	GetScreening(ctx context.Context, id uuid.UUID) (*screenings.Screening, error)
}

// SoldSeatSource lists the seat codes of confirmed sales for a function.
// Satisfied by the transactions service; wired after construction to avoid
// a dependency loop.
type SoldSeatSource interface {
	SoldSeatCodes(ctx context.Context, functionID uuid.UUID) ([]string, error)
}

type Service interface {
	QueryMap(ctx context.Context, functionID, viewerID string) (*SeatMapResponse, error)
	TryHold(ctx context.Context, functionID, userID string, seats []string) (*HoldResponse, error)
	Release(ctx context.Context, functionID, userID string, seats []string) (*ReleaseResponse, error)
	Confirm(ctx context.Context, functionID, userID string, seats []string) error
	SweepExpired(ctx context.Context, functionID uuid.UUID) (int, error)
	Rebuild(ctx context.Context, functionID string) (*RebuildResponse, error)
	FunctionsWithExpiredHolds(ctx context.Context) ([]uuid.UUID, error)

	SetBroadcaster(b Broadcaster)
	SetSoldSeatSource(src SoldSeatSource)
}

type service struct {
	repo        Repository
	atomic      *AtomicSeatOps
	locker      *FunctionLocker
	functions   FunctionSource
	config      *config.Config
	log         *logger.Logger
	broadcaster Broadcaster
	soldSource  SoldSeatSource
}

func NewService(repo Repository, atomicOps *AtomicSeatOps, locker *FunctionLocker, functions FunctionSource, cfg *config.Config) Service {
	return &service{
		repo:      repo,
		atomic:    atomicOps,
		locker:    locker,
		functions: functions,
		config:    cfg,
		log:       logger.GetDefault(),
	}
}

func (s *service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func (s *service) SetSoldSeatSource(src SoldSeatSource) {
	s.soldSource = src
}

// QueryMap returns a point-in-time snapshot of the seat grid. It takes no
// lock: a hold acquired mid-read may be missed, but a sold seat is never
// reported free because its bit was already set while it was held.
func (s *service) QueryMap(ctx context.Context, functionID, viewerID string) (*SeatMapResponse, error) {
	fid, err := uuid.Parse(functionID)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}

	screening, err := s.functions.GetScreening(ctx, fid)
	if err != nil {
		return nil, err
	}

	grid := screening.SeatGrid()
	refs := make([]seatRef, 0, len(grid))
	for _, desc := range grid {
		offset, err := screening.SeatBitOffset(desc.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to map seat %s: %w", desc.Code, err)
		}
		refs = append(refs, seatRef{Code: desc.Code, Offset: offset, HoldKey: constants.HoldKey(functionID, desc.Code)})
	}

	bits, holds, err := s.atomic.SeatStates(ctx, constants.BitmapFunctionKey(functionID), refs)
	if err != nil {
		return nil, err
	}

	var free, held, sold int
	seats := make([]SeatStatusResponse, 0, len(grid))
	for i, desc := range grid {
		state := SeatFree
		mine := false
		switch {
		case bits[i] == 1 && holds[i] != nil:
			state = SeatHeld
			held++
			mine = viewerID != "" && holds[i].User == viewerID
		case bits[i] == 1:
			state = SeatSold
			sold++
		default:
			free++
		}

		price := screening.BasePriceMinor
		if desc.Type == halls.SeatTypeVIP {
			price = screening.VIPPriceMinor
		}

		seats = append(seats, SeatStatusResponse{
			Code:       desc.Code,
			Row:        desc.Row,
			Number:     desc.Number,
			Type:       desc.Type,
			State:      state,
			Mine:       mine,
			PriceMinor: price,
		})
	}

	return &SeatMapResponse{
		FunctionID:  functionID,
		Capacity:    len(grid),
		Free:        free,
		Held:        held,
		Sold:        sold,
		Seats:       seats,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// TryHold atomically reserves a batch of seats for a user. All or nothing:
// any seat taken by someone else rejects the whole batch with the conflict
// set. Seats the user already holds are reused, so repeating a request
// within the hold window is a no-op success.
func (s *service) TryHold(ctx context.Context, functionID, userID string, seats []string) (*HoldResponse, error) {
	fid, err := uuid.Parse(functionID)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	screening, err := s.functions.GetScreening(ctx, fid)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !screening.IsSalesOpen(now, s.config.Sales.GraceWindow) {
		return nil, ErrSalesClosed
	}

	refs, err := s.resolveSeats(screening, functionID, seats)
	if err != nil {
		return nil, err
	}
	if len(refs) > s.config.Sales.MaxSeatsPerHold {
		return nil, fmt.Errorf("%w: %d exceeds the limit of %d", ErrTooManySeats, len(refs), s.config.Sales.MaxSeatsPerHold)
	}

	lock, err := s.locker.Acquire(ctx, functionID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, lock)

	payload, err := json.Marshal(HoldRecord{User: userID, CreatedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode hold record: %w", err)
	}

	bitmapKey := constants.BitmapFunctionKey(functionID)
	outcome, err := s.atomic.HoldSeats(ctx, bitmapKey, refs, userID, string(payload), s.config.Sales.HoldWindow)
	if err != nil {
		return nil, err
	}

	if len(outcome.Fresh) > 0 {
		freshExpiry := now.Add(s.config.Sales.HoldWindow)
		selections := make([]SeatSelection, 0, len(outcome.Fresh))
		for _, ref := range outcome.Fresh {
			selections = append(selections, SeatSelection{
				FunctionID: fid,
				UserID:     uid,
				SeatCode:   ref.Code,
				Status:     SelectionTemporary,
				ExpiresAt:  freshExpiry,
			})
		}
		if err := s.withStoreRetry(ctx, func() error {
			return s.repo.CreateSelections(ctx, selections)
		}); err != nil {
			// The hold is not usable without its durable mirror. Undo the
			// fresh seats; anything missed here is swept by the reaper.
			if _, rbErr := s.atomic.ReleaseSeats(ctx, bitmapKey, outcome.Fresh, userID); rbErr != nil {
				s.log.WithError(rbErr).Error("failed to roll back holds after store failure")
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		codes := seatCodes(outcome.Fresh)
		if s.broadcaster != nil {
			s.broadcaster.SeatsHeld(functionID, userID, codes, freshExpiry)
		}
		s.log.LogSeatsHeld(ctx, functionID, userID, codes)
	}

	return &HoldResponse{
		FunctionID: functionID,
		Seats:      seatCodes(refs),
		ExpiresAt:  now.Add(outcome.ExpiresIn).UTC(),
		TTLSeconds: int(outcome.ExpiresIn.Seconds()),
	}, nil
}

// Release frees the caller's holds on the given seats. Seats the caller does
// not hold are skipped silently, which makes double releases safe.
func (s *service) Release(ctx context.Context, functionID, userID string, seats []string) (*ReleaseResponse, error) {
	fid, err := uuid.Parse(functionID)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	screening, err := s.functions.GetScreening(ctx, fid)
	if err != nil {
		return nil, err
	}

	refs, err := s.resolveSeats(screening, functionID, seats)
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.Acquire(ctx, functionID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, lock)

	released, err := s.atomic.ReleaseSeats(ctx, constants.BitmapFunctionKey(functionID), refs, userID)
	if err != nil {
		return nil, err
	}

	codes := seatCodes(released)
	if len(released) > 0 {
		if err := s.withStoreRetry(ctx, func() error {
			return s.repo.CancelSelections(ctx, fid, uid, codes)
		}); err != nil {
			// Bits are already cleared; the stale rows settle as expired on
			// the next sweep.
			s.log.WithError(err).Error("failed to mark selections cancelled")
		}
		if s.broadcaster != nil {
			s.broadcaster.SeatsReleased(functionID, userID, codes)
		}
		s.log.LogSeatsReleased(ctx, functionID, userID, codes)
	}

	return &ReleaseResponse{FunctionID: functionID, Released: codes}, nil
}

// Confirm turns the caller's holds into permanent sales. Fails atomically
// with HoldLostError when any requested seat is no longer held by the
// caller; the purchase must then be treated as failed.
func (s *service) Confirm(ctx context.Context, functionID, userID string, seats []string) error {
	fid, err := uuid.Parse(functionID)
	if err != nil {
		return fmt.Errorf("invalid function ID: %w", err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}

	screening, err := s.functions.GetScreening(ctx, fid)
	if err != nil {
		return err
	}

	refs, err := s.resolveSeats(screening, functionID, seats)
	if err != nil {
		return err
	}

	lock, err := s.locker.Acquire(ctx, functionID)
	if err != nil {
		return err
	}
	defer s.releaseLock(ctx, lock)

	if err := s.atomic.ConfirmSeats(ctx, refs, userID); err != nil {
		return err
	}

	if err := s.withStoreRetry(ctx, func() error {
		return s.repo.ConfirmSelections(ctx, fid, uid, seatCodes(refs))
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SweepExpired settles holds whose TTL has elapsed: the hold key is already
// gone, so the bitmap bit is cleared and the selection marked expired.
// Candidates come from the durable index, never from a cache scan.
func (s *service) SweepExpired(ctx context.Context, functionID uuid.UUID) (int, error) {
	screening, err := s.functions.GetScreening(ctx, functionID)
	if err != nil {
		return 0, err
	}

	rows, err := s.repo.ExpiredSelections(ctx, functionID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	fid := functionID.String()
	refs := make([]seatRef, 0, len(rows))
	for _, row := range rows {
		offset, err := screening.SeatBitOffset(row.SeatCode)
		if err != nil {
			s.log.WithError(err).Warn("selection references a seat outside the layout", "seat", row.SeatCode)
			continue
		}
		refs = append(refs, seatRef{Code: row.SeatCode, Offset: offset, HoldKey: constants.HoldKey(fid, row.SeatCode)})
	}
	if len(refs) == 0 {
		return 0, nil
	}

	lock, err := s.locker.Acquire(ctx, fid)
	if err != nil {
		return 0, err
	}
	defer s.releaseLock(ctx, lock)

	swept, err := s.atomic.SweepSeats(ctx, constants.BitmapFunctionKey(fid), refs)
	if err != nil {
		return 0, err
	}
	if len(swept) == 0 {
		return 0, nil
	}

	codes := seatCodes(swept)
	if err := s.withStoreRetry(ctx, func() error {
		return s.repo.ExpireSelections(ctx, functionID, codes)
	}); err != nil {
		// Rows stay temporary and are picked up again next tick.
		s.log.WithError(err).Error("failed to mark selections expired")
	}

	if s.broadcaster != nil {
		s.broadcaster.HoldsExpired(fid, codes)
	}
	s.log.LogHoldExpired(ctx, fid, codes)
	return len(swept), nil
}

// Rebuild rewrites a function's bitmap and hold keys from the durable
// record: confirmed sales plus non-expired temporary selections. Used after
// a cache loss.
func (s *service) Rebuild(ctx context.Context, functionID string) (*RebuildResponse, error) {
	fid, err := uuid.Parse(functionID)
	if err != nil {
		return nil, fmt.Errorf("invalid function ID: %w", err)
	}
	if s.soldSource == nil {
		return nil, fmt.Errorf("sold seat source not configured")
	}

	screening, err := s.functions.GetScreening(ctx, fid)
	if err != nil {
		return nil, err
	}

	lock, err := s.locker.Acquire(ctx, functionID)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock(ctx, lock)

	soldCodes, err := s.soldSource.SoldSeatCodes(ctx, fid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := time.Now()
	rows, err := s.repo.ActiveSelections(ctx, fid, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sold := make([]seatRef, 0, len(soldCodes))
	for _, code := range soldCodes {
		offset, err := screening.SeatBitOffset(code)
		if err != nil {
			s.log.WithError(err).Warn("sold seat outside the layout", "seat", code)
			continue
		}
		sold = append(sold, seatRef{Code: code, Offset: offset, HoldKey: constants.HoldKey(functionID, code)})
	}

	holds := make([]rebuildHold, 0, len(rows))
	for _, row := range rows {
		offset, err := screening.SeatBitOffset(row.SeatCode)
		if err != nil {
			s.log.WithError(err).Warn("held seat outside the layout", "seat", row.SeatCode)
			continue
		}
		payload, err := json.Marshal(HoldRecord{User: row.UserID.String(), CreatedAt: row.CreatedAt})
		if err != nil {
			return nil, fmt.Errorf("failed to encode hold record: %w", err)
		}
		holds = append(holds, rebuildHold{
			Ref:       seatRef{Code: row.SeatCode, Offset: offset, HoldKey: constants.HoldKey(functionID, row.SeatCode)},
			Payload:   string(payload),
			ExpiresIn: row.ExpiresAt.Sub(now),
		})
	}

	if err := s.atomic.RebuildFunction(ctx, constants.BitmapFunctionKey(functionID), sold, holds); err != nil {
		return nil, err
	}

	s.log.InfoWithContext(ctx, "seat state rebuilt", map[string]interface{}{
		"function_id": functionID,
		"sold":        len(sold),
		"held":        len(holds),
	})

	return &RebuildResponse{FunctionID: functionID, SoldSeats: len(sold), HeldSeats: len(holds)}, nil
}

func (s *service) FunctionsWithExpiredHolds(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.FunctionsWithExpiredHolds(ctx, time.Now())
}

// resolveSeats normalizes, deduplicates and maps seat codes against the
// function's layout snapshot. Row letters are case-insensitive.
func (s *service) resolveSeats(screening *screenings.Screening, functionID string, codes []string) ([]seatRef, error) {
	if len(codes) == 0 {
		return nil, ErrNoSeats
	}

	seen := make(map[string]bool, len(codes))
	refs := make([]seatRef, 0, len(codes))
	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if seen[code] {
			continue
		}
		seen[code] = true

		offset, err := screening.SeatBitOffset(code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSeat, err)
		}
		refs = append(refs, seatRef{Code: code, Offset: offset, HoldKey: constants.HoldKey(functionID, code)})
	}
	return refs, nil
}

// withStoreRetry re-attempts transient store failures with the same backoff
// profile as the lock. Business errors are never retried here; callers pass
// only low-level store writes.
func (s *service) withStoreRetry(ctx context.Context, op func() error) error {
	backoff := lockBackoffBase
	var err error
	for attempt := 0; attempt <= s.config.Sales.StoreRetryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitteredBackoff(backoff)):
			}
			backoff *= lockBackoffFactor
			if backoff > lockBackoffCap {
				backoff = lockBackoffCap
			}
		}
		if err = op(); err == nil {
			return nil
		}
	}
	return err
}

// releaseLock lets go of the function lock even when the request context is
// already cancelled; the TTL would clean it up anyway, this is just faster.
func (s *service) releaseLock(ctx context.Context, lock *Lock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
		s.log.WithError(err).Warn("failed to release function lock")
	}
}

func seatCodes(refs []seatRef) []string {
	codes := make([]string, 0, len(refs))
	for _, ref := range refs {
		codes = append(codes, ref.Code)
	}
	return codes
}
