package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promogate/promogate/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RateLimitStore implements domain.RateLimitStore on Redis fixed-window
// counters. Every failure to reach Redis is wrapped in domain.ErrUnavailable
// so the limiter can surface an indeterminate decision instead of denying.
type RateLimitStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRateLimitStore creates a new Redis rate limit store.
func NewRateLimitStore(client *redis.Client, logger *slog.Logger) *RateLimitStore {
	return &RateLimitStore{
		client: client,
		logger: logger.With("component", "ratelimit_store"),
	}
}

// Incr increments the window counter for key. The TTL is attached when the
// key is first created; INCR and EXPIRE NX run in one pipeline so a crash
// between them cannot leave an immortal counter.
func (s *RateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("%w: failed to increment counter: %w", domain.ErrUnavailable, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

// Peek reads the counter without consuming quota. A missing key reads as zero
// with a full window remaining.
func (s *RateLimitStore) Peek(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("%w: failed to read counter: %w", domain.ErrUnavailable, err)
	}

	count, err := get.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, window, nil
		}
		return 0, 0, fmt.Errorf("%w: failed to parse counter: %w", domain.ErrUnavailable, err)
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return count, remaining, nil
}
