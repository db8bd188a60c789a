package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/domain/mocks"
)

func TestRateLimiter_Allow(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := domain.RatePolicy{MaxRequests: 2, Window: time.Minute}

	t.Run("allows within the window and denies past it", func(t *testing.T) {
		limiter := NewRateLimiter(&mocks.MockRateLimitStore{}, logger, nil)

		first := limiter.Allow(context.Background(), "key", policy)
		if first.Outcome != domain.RateAllowed || first.Remaining != 1 {
			t.Errorf("expected allowed with 1 remaining, got %s/%d", first.Outcome, first.Remaining)
		}

		second := limiter.Allow(context.Background(), "key", policy)
		if second.Outcome != domain.RateAllowed || second.Remaining != 0 {
			t.Errorf("expected allowed with 0 remaining, got %s/%d", second.Outcome, second.Remaining)
		}

		third := limiter.Allow(context.Background(), "key", policy)
		if third.Outcome != domain.RateDenied {
			t.Errorf("expected denied, got %s", third.Outcome)
		}
		if third.Permitted() {
			t.Error("denied decision must not be permitted")
		}
		if third.RetryAfter() <= 0 {
			t.Error("expected a positive retry-after on denial")
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(&mocks.MockRateLimitStore{}, logger, nil)

		for i := 0; i < policy.MaxRequests; i++ {
			limiter.Allow(context.Background(), "a", policy)
		}
		if d := limiter.Allow(context.Background(), "a", policy); d.Outcome != domain.RateDenied {
			t.Fatalf("expected key a to be denied, got %s", d.Outcome)
		}
		if d := limiter.Allow(context.Background(), "b", policy); d.Outcome != domain.RateAllowed {
			t.Fatalf("expected key b to be allowed, got %s", d.Outcome)
		}
	})

	t.Run("store failure fails open as indeterminate", func(t *testing.T) {
		store := &mocks.MockRateLimitStore{IncrErr: errors.New("connection refused")}
		limiter := NewRateLimiter(store, logger, nil)

		d := limiter.Allow(context.Background(), "key", policy)
		if d.Outcome != domain.RateIndeterminate {
			t.Errorf("expected indeterminate, got %s", d.Outcome)
		}
		if !d.Permitted() {
			t.Error("indeterminate decision must be permitted")
		}
	})

	t.Run("nil store is indeterminate", func(t *testing.T) {
		limiter := NewRateLimiter(nil, logger, nil)

		d := limiter.Allow(context.Background(), "key", policy)
		if d.Outcome != domain.RateIndeterminate || !d.Permitted() {
			t.Errorf("expected permitted indeterminate, got %s", d.Outcome)
		}
	})
}

func TestRateLimiter_TwoPhase(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := domain.RatePolicy{MaxRequests: 1, Window: time.Minute}

	t.Run("check does not consume quota", func(t *testing.T) {
		limiter := NewRateLimiter(&mocks.MockRateLimitStore{}, logger, nil)

		for i := 0; i < 5; i++ {
			if d := limiter.Check(context.Background(), "key", policy); d.Outcome != domain.RateAllowed {
				t.Fatalf("check %d: expected allowed, got %s", i, d.Outcome)
			}
		}
	})

	t.Run("record consumes quota for later checks", func(t *testing.T) {
		limiter := NewRateLimiter(&mocks.MockRateLimitStore{}, logger, nil)

		if d := limiter.Check(context.Background(), "key", policy); d.Outcome != domain.RateAllowed {
			t.Fatalf("expected initial check to pass, got %s", d.Outcome)
		}
		limiter.Record(context.Background(), "key", policy)
		if d := limiter.Check(context.Background(), "key", policy); d.Outcome != domain.RateDenied {
			t.Fatalf("expected check after record to deny, got %s", d.Outcome)
		}
	})

	t.Run("check failure fails open", func(t *testing.T) {
		store := &mocks.MockRateLimitStore{PeekErr: errors.New("connection refused")}
		limiter := NewRateLimiter(store, logger, nil)

		if d := limiter.Check(context.Background(), "key", policy); d.Outcome != domain.RateIndeterminate {
			t.Fatalf("expected indeterminate, got %s", d.Outcome)
		}
	})

	t.Run("record swallows store failures", func(t *testing.T) {
		store := &mocks.MockRateLimitStore{IncrErr: errors.New("connection refused")}
		limiter := NewRateLimiter(store, logger, nil)

		// Must not panic or surface anything.
		limiter.Record(context.Background(), "key", policy)
	})
}
