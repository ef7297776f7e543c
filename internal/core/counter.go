package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresthedesigner/videodaddychat/internal/store"
)

// UsageCounter stores the daily message counters. dayStart is the UTC
// midnight (ms) of the current day; counts from earlier days read as zero.
type UsageCounter interface {
	Count(ctx context.Context, key store.UsageKey, dayStart int64) (int64, error)
	Increment(ctx context.Context, key store.UsageKey, dayStart int64) error
	// Consume increments the counter only when it is below limit and reports
	// whether it did, atomically.
	Consume(ctx context.Context, key store.UsageKey, limit, dayStart int64) (bool, error)
}

// StoreCounter keeps counters in the users and anonymous_usage tables.
type StoreCounter struct {
	store store.Store
}

func NewStoreCounter(s store.Store) *StoreCounter {
	return &StoreCounter{store: s}
}

func (c *StoreCounter) Count(ctx context.Context, key store.UsageKey, dayStart int64) (int64, error) {
	rec, err := c.store.GetUsage(ctx, key)
	if err != nil {
		return 0, err
	}
	if rec.Reset < dayStart {
		return 0, nil
	}
	return rec.Count, nil
}

func (c *StoreCounter) Increment(ctx context.Context, key store.UsageKey, dayStart int64) error {
	return c.store.IncrementUsage(ctx, key, dayStart)
}

func (c *StoreCounter) Consume(ctx context.Context, key store.UsageKey, limit, dayStart int64) (bool, error) {
	return c.store.ConsumeUsage(ctx, key, limit, dayStart)
}

const redisCounterTTL = 48 * time.Hour

var consumeScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
	return 0
end
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

// RedisCounter keeps one key per counter per UTC day, so a new day starts
// from an absent key.
type RedisCounter struct {
	rdb redis.UniversalClient
}

func NewRedisCounter(rdb redis.UniversalClient) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func redisUsageKey(key store.UsageKey, dayStart int64) string {
	day := time.UnixMilli(dayStart).UTC().Format(time.DateOnly)
	return fmt.Sprintf("usage:%s:%s:%s", key.Kind, key.ID, day)
}

func (c *RedisCounter) Count(ctx context.Context, key store.UsageKey, dayStart int64) (int64, error) {
	n, err := c.rdb.Get(ctx, redisUsageKey(key, dayStart)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return n, nil
}

func (c *RedisCounter) Increment(ctx context.Context, key store.UsageKey, dayStart int64) error {
	k := redisUsageKey(key, dayStart)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, redisCounterTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return nil
}

func (c *RedisCounter) Consume(ctx context.Context, key store.UsageKey, limit, dayStart int64) (bool, error) {
	k := redisUsageKey(key, dayStart)
	n, err := consumeScript.Run(ctx, c.rdb, []string{k}, limit, redisCounterTTL.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to consume usage counter: %w", err)
	}
	return n == 1, nil
}
