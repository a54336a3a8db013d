package seats

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy means the per-function lock could not be acquired within the
// wait budget. Callers may retry; the seat state was not touched.
var ErrLockBusy = errors.New("function is busy, try again")

const (
	lockBackoffBase   = 100 * time.Millisecond
	lockBackoffFactor = 2
	lockBackoffCap    = time.Second
	lockJitter        = 0.25
)

// Delete only when the token still belongs to the caller, so a lock that
// expired and was re-acquired by someone else is never released by accident.
const luaUnlock = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

const luaRenewLock = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
end
return 0
`

var (
	unlockScript = redis.NewScript(luaUnlock)
	renewScript  = redis.NewScript(luaRenewLock)
)

// FunctionLocker serializes mutations of one function's seat state across
// processes. The lock is a plain SETNX key with a TTL, so a crashed holder
// loses it within LOCK_TTL.
type FunctionLocker struct {
	redis   *redis.Client
	ttl     time.Duration
	waitMax time.Duration
}

func NewFunctionLocker(redisClient *redis.Client, cfg *config.Config) *FunctionLocker {
	return &FunctionLocker{
		redis:   redisClient,
		ttl:     cfg.Sales.LockTTL,
		waitMax: cfg.Sales.LockWaitMax,
	}
}

// Lock is one acquired per-function lock. Release and Renew only act while
// the stored token still matches.
type Lock struct {
	locker     *FunctionLocker
	key        string
	token      string
	acquiredAt time.Time
}

// Acquire takes the per-function lock, retrying with exponential backoff and
// jitter until the wait budget runs out, then fails with ErrLockBusy.
func (l *FunctionLocker) Acquire(ctx context.Context, functionID string) (*Lock, error) {
	if l.redis == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	key := constants.LockFunctionKey(functionID)
	token := uuid.New().String()
	deadline := time.Now().Add(l.waitMax)
	backoff := lockBackoffBase

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire function lock: %w", err)
		}
		if ok {
			return &Lock{locker: l, key: key, token: token, acquiredAt: time.Now()}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockBusy
		}

		sleep := jitteredBackoff(backoff)
		if remaining := time.Until(deadline); sleep > remaining {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}

		backoff *= lockBackoffFactor
		if backoff > lockBackoffCap {
			backoff = lockBackoffCap
		}
	}
}

// Release deletes the lock if this holder still owns it.
func (lk *Lock) Release(ctx context.Context) error {
	if err := unlockScript.Run(ctx, lk.locker.redis, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("failed to release function lock: %w", err)
	}
	return nil
}

// Renew extends the lock TTL once more than half of it has elapsed. Cheap
// no-op otherwise, so long critical sections can call it between steps.
func (lk *Lock) Renew(ctx context.Context) error {
	if time.Since(lk.acquiredAt) <= lk.locker.ttl/2 {
		return nil
	}

	seconds := strconv.Itoa(int(lk.locker.ttl.Seconds()))
	extended, err := renewScript.Run(ctx, lk.locker.redis, []string{lk.key}, lk.token, seconds).Int64()
	if err != nil {
		return fmt.Errorf("failed to renew function lock: %w", err)
	}
	if extended == 0 {
		return fmt.Errorf("function lock no longer held")
	}
	lk.acquiredAt = time.Now()
	return nil
}

func jitteredBackoff(base time.Duration) time.Duration {
	spread := (rand.Float64()*2 - 1) * lockJitter
	return time.Duration(float64(base) * (1 + spread))
}
