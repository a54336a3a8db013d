// cachecheck exercises every Redis primitive the seat engine depends on
// (bitmaps, TTL'd keys, SETNX locks, sorted sets, streams) against a live
// server. Run it after changing Redis config or upgrading the server to
// confirm the instance still behaves the way the engine assumes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"cinetix/internal/shared/config"
	"cinetix/pkg/cache"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cachecheck:"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	svc := cache.NewService(client)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		log.Fatalf("❌ Redis connection failed (%s): %v", cfg.Redis.Addr, err)
	}
	fmt.Printf("✅ Redis connection: OK (%s)\n", cfg.Redis.Addr)

	checks := []struct {
		name string
		fn   func(context.Context, cache.Service) error
	}{
		{"bitmap set/get/count", checkBitmap},
		{"hold key TTL", checkHoldTTL},
		{"SETNX lock handoff", checkLock},
		{"sorted set ranking", checkRanking},
		{"stream group round trip", checkStream},
	}

	failed := 0
	for _, c := range checks {
		start := time.Now()
		if err := c.fn(ctx, svc); err != nil {
			failed++
			fmt.Printf("❌ %-24s %v\n", c.name, err)
			continue
		}
		fmt.Printf("✅ %-24s %s\n", c.name, time.Since(start).Round(time.Microsecond))
	}

	// Leave nothing behind.
	if err := svc.DeletePattern(ctx, keyPrefix+"*"); err != nil {
		fmt.Printf("⚠️  cleanup failed: %v\n", err)
	}

	if failed > 0 {
		fmt.Printf("\n%d check(s) failed\n", failed)
		os.Exit(1)
	}
	fmt.Println("\n🎉 All checks passed")
}

func checkBitmap(ctx context.Context, svc cache.Service) error {
	key := keyPrefix + "bitmap"
	offsets := []int64{1, 13, 240}

	if err := svc.SetBits(ctx, key, offsets, 1); err != nil {
		return err
	}
	vals, err := svc.GetBits(ctx, key, []int64{1, 2, 13, 240})
	if err != nil {
		return err
	}
	want := []int64{1, 0, 1, 1}
	for i, v := range vals {
		if v != want[i] {
			return fmt.Errorf("bit %d: got %d, want %d", i, v, want[i])
		}
	}
	count, err := svc.BitCount(ctx, key)
	if err != nil {
		return err
	}
	if count != int64(len(offsets)) {
		return fmt.Errorf("bitcount: got %d, want %d", count, len(offsets))
	}
	return nil
}

func checkHoldTTL(ctx context.Context, svc cache.Service) error {
	key := keyPrefix + "hold"
	if err := svc.Set(ctx, key, map[string]string{"user": uuid.NewString()}, 2*time.Second); err != nil {
		return err
	}
	ttl, err := svc.TTL(ctx, key)
	if err != nil {
		return err
	}
	if ttl <= 0 || ttl > 2*time.Second {
		return fmt.Errorf("ttl out of range: %s", ttl)
	}
	return nil
}

func checkLock(ctx context.Context, svc cache.Service) error {
	key := keyPrefix + "lock"
	token := uuid.NewString()

	ok, err := svc.SetNX(ctx, key, token, time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("first acquire should succeed")
	}
	ok, err = svc.SetNX(ctx, key, uuid.NewString(), time.Second)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("second acquire should be rejected while held")
	}
	if err := svc.Delete(ctx, key); err != nil {
		return err
	}
	ok, err = svc.SetNX(ctx, key, uuid.NewString(), time.Second)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("acquire after release should succeed")
	}
	return nil
}

func checkRanking(ctx context.Context, svc cache.Service) error {
	key := keyPrefix + "ranking"
	if _, err := svc.ZIncrBy(ctx, key, 3, "film-a"); err != nil {
		return err
	}
	if _, err := svc.ZIncrBy(ctx, key, 7, "film-b"); err != nil {
		return err
	}
	top, err := svc.ZRevRangeWithScores(ctx, key, 0, 1)
	if err != nil {
		return err
	}
	if len(top) != 2 || top[0].Member != "film-b" {
		return fmt.Errorf("unexpected ranking: %+v", top)
	}
	return nil
}

func checkStream(ctx context.Context, svc cache.Service) error {
	stream := keyPrefix + "stream"
	group := "cachecheck"

	if err := svc.XGroupCreateMkStream(ctx, stream, group); err != nil {
		return err
	}
	id, err := svc.XAdd(ctx, stream, map[string]interface{}{"kind": "check"})
	if err != nil {
		return err
	}
	msgs, err := svc.XReadGroup(ctx, stream, group, "check-1", ">", 10, 100*time.Millisecond)
	if err != nil {
		return err
	}
	if len(msgs) != 1 || msgs[0].ID != id {
		return fmt.Errorf("expected the appended entry back, got %d message(s)", len(msgs))
	}
	if msgs[0].Values["kind"] != "check" {
		return fmt.Errorf("payload lost in round trip: %v", msgs[0].Values)
	}
	return svc.XAck(ctx, stream, group, id)
}
