package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long an idle shared timestamp survives.
const DefaultRedisTTL = time.Minute

// RedisStore shares the dispatch timestamp between processes through Redis,
// so several workers using the same API key stay under one throttle.
// Read and write are separate commands; concurrent processes get
// best-effort spacing, not a strict guarantee.
type RedisStore struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

// NewRedisStore creates a store using RedisKeyLastDispatch.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		key:   RedisKeyLastDispatch,
		ttl:   DefaultRedisTTL,
	}
}

// WithKey returns a copy storing the timestamp under key, e.g. one key per API key.
func (s *RedisStore) WithKey(key string) *RedisStore {
	cp := *s
	cp.key = key
	return &cp
}

// LastDispatch implements Store.
func (s *RedisStore) LastDispatch(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.redis.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get last dispatch: %w", err)
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last dispatch %q: %w", raw, err)
	}
	return time.Unix(0, nanos), true, nil
}

// SetLastDispatch implements Store.
func (s *RedisStore) SetLastDispatch(ctx context.Context, t time.Time) error {
	if err := s.redis.Set(ctx, s.key, strconv.FormatInt(t.UnixNano(), 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("store last dispatch in redis: %w", err)
	}
	return nil
}
