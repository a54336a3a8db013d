package seats

import (
	"context"
	"errors"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/pkg/logger"
)

// StaleTransactionExpirer force-fails purchases stuck in processing past
// their checkout deadline. Satisfied by the transactions service.
type StaleTransactionExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Reaper periodically settles expired holds and stale transactions. Hold
// candidates come from the selections index, so no cache scan is needed.
type Reaper struct {
	service Service
	expirer StaleTransactionExpirer
	tick    time.Duration
	log     *logger.Logger
	done    chan struct{}
}

func NewReaper(service Service, cfg *config.Config) *Reaper {
	return &Reaper{
		service: service,
		tick:    cfg.Sales.ReaperTick,
		log:     logger.GetDefault(),
		done:    make(chan struct{}),
	}
}

func (r *Reaper) SetTransactionExpirer(e StaleTransactionExpirer) {
	r.expirer = e
}

// Start launches the reaper loop. Stop it via Stop or by cancelling ctx.
func (r *Reaper) Start(ctx context.Context) {
	go r.run(ctx)
	r.log.Info("seat reaper started", "tick", r.tick.String())
}

func (r *Reaper) Stop() {
	close(r.done)
	r.log.Info("seat reaper stopped")
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reap(ctx)
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	functions, err := r.service.FunctionsWithExpiredHolds(ctx)
	if err != nil {
		r.log.WithError(err).Error("reaper failed to list functions with expired holds")
	} else {
		for _, functionID := range functions {
			if _, err := r.service.SweepExpired(ctx, functionID); err != nil {
				// A busy function just waits for the next tick.
				if errors.Is(err, ErrLockBusy) {
					continue
				}
				r.log.WithError(err).Error("reaper failed to sweep function", "function_id", functionID.String())
			}
		}
	}

	if r.expirer != nil {
		if _, err := r.expirer.ExpireStale(ctx); err != nil {
			r.log.WithError(err).Error("reaper failed to expire stale transactions")
		}
	}
}
