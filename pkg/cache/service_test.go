package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewService(client), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, svc.Set(ctx, "cinetix:test:item", payload{Name: "sala-1", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, svc.Get(ctx, "cinetix:test:item", &got))
	assert.Equal(t, "sala-1", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestGetMiss(t *testing.T) {
	svc, _ := newTestService(t)

	var got map[string]string
	err := svc.Get(context.Background(), "cinetix:test:absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDeletePattern(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "cinetix:functions:a", "x", time.Minute))
	require.NoError(t, svc.Set(ctx, "cinetix:functions:b", "y", time.Minute))
	require.NoError(t, svc.Set(ctx, "cinetix:films:c", "z", time.Minute))

	require.NoError(t, svc.DeletePattern(ctx, "cinetix:functions:*"))

	assert.False(t, svc.Exists(ctx, "cinetix:functions:a"))
	assert.False(t, svc.Exists(ctx, "cinetix:functions:b"))
	assert.True(t, svc.Exists(ctx, "cinetix:films:c"))
}

func TestGetOrSetFetchesOnMiss(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	calls := 0
	fetcher := func() (interface{}, error) {
		calls++
		return map[string]int{"total": 42}, nil
	}

	var got map[string]int
	require.NoError(t, svc.GetOrSet(ctx, "cinetix:test:lazy", time.Minute, fetcher, &got))
	assert.Equal(t, 42, got["total"])
	assert.Equal(t, 1, calls)
}

func TestGetOrSetSkipsFetcherOnHit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "cinetix:test:warm", map[string]int{"total": 7}, time.Minute))

	var got map[string]int
	err := svc.GetOrSet(ctx, "cinetix:test:warm", time.Minute, func() (interface{}, error) {
		t.Fatal("fetcher should not run on a cache hit")
		return nil, nil
	}, &got)
	require.NoError(t, err)
	assert.Equal(t, 7, got["total"])
}

func TestSetNX(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ok, err := svc.SetNX(ctx, "lock:function:f1", "token-a", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.SetNX(ctx, "lock:function:f1", "token-b", time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the lock is held")
}

func TestBitmapOperations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	key := "bitmap:function:f1"

	require.NoError(t, svc.SetBits(ctx, key, []int64{1, 5, 12}, 1))

	bits, err := svc.GetBits(ctx, key, []int64{1, 2, 5, 12})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0, 1, 1}, bits)

	count, err := svc.BitCount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Clearing a bit frees the seat again.
	require.NoError(t, svc.SetBit(ctx, key, 5, 0))
	bit, err := svc.GetBit(ctx, key, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bit)
}

func TestSetBitsEmptyOffsetsIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.SetBits(context.Background(), "bitmap:function:f1", nil, 1))
}

func TestSortedSetRanking(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	key := "cinetix:ranking:films"

	_, err := svc.ZIncrBy(ctx, key, 2, "film-a")
	require.NoError(t, err)
	_, err = svc.ZIncrBy(ctx, key, 5, "film-b")
	require.NoError(t, err)
	_, err = svc.ZIncrBy(ctx, key, 3, "film-a")
	require.NoError(t, err)

	top, err := svc.ZRevRangeWithScores(ctx, key, 0, 1)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "film-a", top[0].Member)
	assert.Equal(t, float64(5), top[0].Score)

	score, err := svc.ZScore(ctx, key, "film-b")
	require.NoError(t, err)
	assert.Equal(t, float64(5), score)

	_, err = svc.ZScore(ctx, key, "film-missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestHashCounters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	key := "cinetix:metrics:function:f1"

	n, err := svc.HIncrBy(ctx, key, "tickets_sold", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.HIncrBy(ctx, key, "tickets_sold", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	all, err := svc.HGetAll(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "5", all["tickets_sold"])
}

func TestStreamGroupRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	stream := "events:sales"
	group := "metrics"

	require.NoError(t, svc.XGroupCreateMkStream(ctx, stream, group))
	// Creating the same group twice is not an error.
	require.NoError(t, svc.XGroupCreateMkStream(ctx, stream, group))

	id, err := svc.XAdd(ctx, stream, map[string]interface{}{"type": "sale_confirmed", "function_id": "f1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := svc.XReadGroup(ctx, stream, group, "worker-1", ">", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "sale_confirmed", msgs[0].Values["type"])

	require.NoError(t, svc.XAck(ctx, stream, group, id))

	// Pending list is drained after the ack.
	pending, err := svc.XReadGroup(ctx, stream, group, "worker-1", "0", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTTLAndExpire(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "hold:f1:A1", "x", time.Minute))
	ttl, err := svc.TTL(ctx, "hold:f1:A1")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	require.NoError(t, svc.Expire(ctx, "hold:f1:A1", time.Second))
	mr.FastForward(2 * time.Second)
	assert.False(t, svc.Exists(ctx, "hold:f1:A1"))
}
