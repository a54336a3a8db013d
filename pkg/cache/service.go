package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinetix/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// StreamMessage is one entry read from a stream consumer group.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

// RankedMember is one member of a sorted set with its score.
type RankedMember struct {
	Member string
	Score  float64
}

type Service interface {
	// Generic cache operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, key string) bool
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Batch operations
	MGet(ctx context.Context, keys []string, dest interface{}) error
	MSet(ctx context.Context, items map[string]interface{}, ttl time.Duration) error

	// Cache-aside pattern helpers
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error

	// Counters and flags
	Incr(ctx context.Context, key string) (int64, error)
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Hash operations
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)

	// Bitmap operations
	SetBit(ctx context.Context, key string, offset int64, value int) error
	GetBit(ctx context.Context, key string, offset int64) (int64, error)
	GetBits(ctx context.Context, key string, offsets []int64) ([]int64, error)
	SetBits(ctx context.Context, key string, offsets []int64, value int) error
	BitCount(ctx context.Context, key string) (int64, error)

	// Sorted set operations
	ZIncrBy(ctx context.Context, key string, incr float64, member string) (float64, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]RankedMember, error)

	// Set operations
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	// Stream operations (append-only log with consumer groups)
	XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error)
	XGroupCreateMkStream(ctx context.Context, stream, group string) error
	XReadGroup(ctx context.Context, stream, group, consumer, from string, count int64, block time.Duration) ([]StreamMessage, error)
	XAck(ctx context.Context, stream, group string, ids ...string) error

	// Health check
	Ping(ctx context.Context) error
}

type service struct {
	client *redis.Client
	log    *logger.Logger
}

func NewService(client *redis.Client) Service {
	return &service{client: client, log: logger.GetDefault()}
}

func (s *service) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

func (s *service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}

func (s *service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (s *service) DeletePattern(ctx context.Context, pattern string) error {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("cache keys error: %w", err)
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache delete pattern error: %w", err)
		}
	}

	return nil
}

func (s *service) Exists(ctx context.Context, key string) bool {
	result, err := s.client.Exists(ctx, key).Result()
	return err == nil && result > 0
}

func (s *service) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("cache expire error: %w", err)
	}
	return nil
}

func (s *service) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache ttl error: %w", err)
	}
	return ttl, nil
}

func (s *service) MGet(ctx context.Context, keys []string, dest interface{}) error {
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("cache mget error: %w", err)
	}

	results := make([]interface{}, len(values))
	for i, val := range values {
		if val != nil {
			var item interface{}
			if err := json.Unmarshal([]byte(val.(string)), &item); err != nil {
				return fmt.Errorf("cache unmarshal error: %w", err)
			}
			results[i] = item
		}
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("cache marshal results error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

func (s *service) MSet(ctx context.Context, items map[string]interface{}, ttl time.Duration) error {
	pipe := s.client.Pipeline()

	for key, value := range items {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cache marshal error for key %s: %w", key, err)
		}
		pipe.Set(ctx, key, data, ttl)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache mset error: %w", err)
	}

	return nil
}

func (s *service) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	// Try to get from cache first
	err := s.Get(ctx, key, dest)
	if err == nil {
		return nil // Cache hit
	}

	if err != ErrCacheMiss {
		// Some other error occurred, log it but continue to fetch
		s.log.WithError(err).Warn("Cache get failed, falling through to fetcher", "key", key)
	}

	// Cache miss, fetch data
	data, err := fetcher()
	if err != nil {
		return fmt.Errorf("fetcher error: %w", err)
	}

	// Store in cache (fire and forget - don't fail the request if cache set fails)
	go func() {
		if setErr := s.Set(context.Background(), key, data, ttl); setErr != nil {
			s.log.WithError(setErr).Warn("Cache backfill failed", "key", key)
		}
	}()

	// Marshal and unmarshal to ensure dest gets the right data structure
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal fetched data error: %w", err)
	}

	return json.Unmarshal(jsonData, dest)
}

func (s *service) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr error: %w", err)
	}
	return n, nil
}

func (s *service) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache setnx error: %w", err)
	}
	return ok, nil
}

func (s *service) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	if err := s.client.HSet(ctx, key, values).Err(); err != nil {
		return fmt.Errorf("cache hset error: %w", err)
	}
	return nil
}

func (s *service) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache hgetall error: %w", err)
	}
	return values, nil
}

func (s *service) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	n, err := s.client.HIncrBy(ctx, key, field, incr).Result()
	if err != nil {
		return 0, fmt.Errorf("cache hincrby error: %w", err)
	}
	return n, nil
}

func (s *service) SetBit(ctx context.Context, key string, offset int64, value int) error {
	if err := s.client.SetBit(ctx, key, offset, value).Err(); err != nil {
		return fmt.Errorf("cache setbit error: %w", err)
	}
	return nil
}

func (s *service) GetBit(ctx context.Context, key string, offset int64) (int64, error) {
	bit, err := s.client.GetBit(ctx, key, offset).Result()
	if err != nil {
		return 0, fmt.Errorf("cache getbit error: %w", err)
	}
	return bit, nil
}

func (s *service) GetBits(ctx context.Context, key string, offsets []int64) ([]int64, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(offsets))
	for i, offset := range offsets {
		cmds[i] = pipe.GetBit(ctx, key, offset)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("cache getbits error: %w", err)
	}

	bits := make([]int64, len(offsets))
	for i, cmd := range cmds {
		bits[i] = cmd.Val()
	}
	return bits, nil
}

func (s *service) SetBits(ctx context.Context, key string, offsets []int64, value int) error {
	if len(offsets) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, offset := range offsets {
		pipe.SetBit(ctx, key, offset, value)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache setbits error: %w", err)
	}
	return nil
}

func (s *service) BitCount(ctx context.Context, key string) (int64, error) {
	count, err := s.client.BitCount(ctx, key, nil).Result()
	if err != nil {
		return 0, fmt.Errorf("cache bitcount error: %w", err)
	}
	return count, nil
}

func (s *service) ZIncrBy(ctx context.Context, key string, incr float64, member string) (float64, error) {
	score, err := s.client.ZIncrBy(ctx, key, incr, member).Result()
	if err != nil {
		return 0, fmt.Errorf("cache zincrby error: %w", err)
	}
	return score, nil
}

func (s *service) ZScore(ctx context.Context, key, member string) (float64, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("cache zscore error: %w", err)
	}
	return score, nil
}

func (s *service) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]RankedMember, error) {
	entries, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("cache zrevrange error: %w", err)
	}

	members := make([]RankedMember, len(entries))
	for i, entry := range entries {
		members[i] = RankedMember{
			Member: fmt.Sprintf("%v", entry.Member),
			Score:  entry.Score,
		}
	}
	return members, nil
}

func (s *service) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("cache sadd error: %w", err)
	}
	return nil
}

func (s *service) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("cache srem error: %w", err)
	}
	return nil
}

func (s *service) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache smembers error: %w", err)
	}
	return members, nil
}

func (s *service) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("cache xadd error: %w", err)
	}
	return id, nil
}

func (s *service) XGroupCreateMkStream(ctx context.Context, stream, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		// Group may already exist from a previous run
		if isBusyGroupErr(err) {
			return nil
		}
		return fmt.Errorf("cache xgroup create error: %w", err)
	}
	return nil
}

func (s *service) XReadGroup(ctx context.Context, stream, group, consumer, from string, count int64, block time.Duration) ([]StreamMessage, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, from},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache xreadgroup error: %w", err)
	}

	var messages []StreamMessage
	for _, s := range streams {
		for _, m := range s.Messages {
			messages = append(messages, StreamMessage{ID: m.ID, Values: m.Values})
		}
	}
	return messages, nil
}

func (s *service) XAck(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return fmt.Errorf("cache xack error: %w", err)
	}
	return nil
}

func (s *service) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 9 && err.Error()[:9] == "BUSYGROUP"
}

// Error definitions
var (
	ErrCacheMiss = fmt.Errorf("cache miss")
)
