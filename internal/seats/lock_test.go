package seats

import (
	"context"
	"testing"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/internal/shared/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T, ttl, waitMax time.Duration) (*FunctionLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Sales.LockTTL = ttl
	cfg.Sales.LockWaitMax = waitMax
	return NewFunctionLocker(client, cfg), mr
}

func TestLockAcquireAndRelease(t *testing.T) {
	locker, mr := newLocker(t, 5*time.Second, 200*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(constants.LockFunctionKey(testFunctionID)))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists(constants.LockFunctionKey(testFunctionID)))

	// The function is free again.
	lock2, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)
	require.NoError(t, lock2.Release(ctx))
}

func TestLockBusyAfterWaitBudget(t *testing.T) {
	locker, _ := newLocker(t, 5*time.Second, 150*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)
	defer lock.Release(ctx)

	start := time.Now()
	_, err = locker.Acquire(ctx, testFunctionID)
	assert.ErrorIs(t, err, ErrLockBusy)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestLockAcquireHonorsContextCancel(t *testing.T) {
	locker, _ := newLocker(t, 5*time.Second, 10*time.Second)

	lock, err := locker.Acquire(context.Background(), testFunctionID)
	require.NoError(t, err)
	defer lock.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, testFunctionID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockReleaseOnlyDeletesOwnToken(t *testing.T) {
	locker, mr := newLocker(t, time.Second, 100*time.Millisecond)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)

	// The TTL expires and another process takes the lock.
	mr.FastForward(2 * time.Second)
	fresh, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)

	// The stale holder's release must not free the new holder's lock.
	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists(constants.LockFunctionKey(testFunctionID)))

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, mr.Exists(constants.LockFunctionKey(testFunctionID)))
}

func TestLockRenewExtendsTTL(t *testing.T) {
	locker, mr := newLocker(t, 4*time.Second, 100*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)
	defer lock.Release(ctx)

	// Within the first half of the TTL, renew is a no-op.
	require.NoError(t, lock.Renew(ctx))

	// Past the halfway point the TTL is reset.
	lock.acquiredAt = time.Now().Add(-3 * time.Second)
	mr.FastForward(3 * time.Second)
	require.NoError(t, lock.Renew(ctx))
	assert.Equal(t, 4*time.Second, mr.TTL(constants.LockFunctionKey(testFunctionID)))
}

func TestLockRenewFailsWhenLost(t *testing.T) {
	locker, mr := newLocker(t, time.Second, 100*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, testFunctionID)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	lock.acquiredAt = time.Now().Add(-time.Second)
	assert.Error(t, lock.Renew(ctx))
}
