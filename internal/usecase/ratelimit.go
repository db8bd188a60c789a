package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/promogate/promogate/internal/adapter/metrics"
	"github.com/promogate/promogate/internal/domain"
)

// RateLimiter applies fixed-window policies against a shared counter store.
//
// Decisions are tri-state: when the store is unreachable or unconfigured the
// outcome is Indeterminate, which the policy boundary treats as allowed
// (fail-open, availability over strict abuse prevention) while keeping the
// distinction observable in metrics and tests.
type RateLimiter struct {
	store   domain.RateLimitStore // nil when no counter store is configured
	logger  *slog.Logger
	metrics *metrics.PlatformMetrics
}

// NewRateLimiter creates a new RateLimiter. A nil store is allowed and makes
// every decision Indeterminate.
func NewRateLimiter(store domain.RateLimitStore, logger *slog.Logger, m *metrics.PlatformMetrics) *RateLimiter {
	return &RateLimiter{
		store:   store,
		logger:  logger.With("component", "ratelimit"),
		metrics: m,
	}
}

// Allow consumes one unit of quota for the identifier and judges it against
// the policy. Used for the general public surface.
func (l *RateLimiter) Allow(ctx context.Context, identifier string, policy domain.RatePolicy) domain.RateDecision {
	if l.store == nil {
		return l.record(l.indeterminate(policy))
	}

	count, ttl, err := l.store.Incr(ctx, identifier, policy.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open", "identifier", identifier, "error", err)
		return l.record(l.indeterminate(policy))
	}

	d := domain.RateDecision{
		Outcome:   domain.RateAllowed,
		Limit:     policy.MaxRequests,
		Remaining: max(0, policy.MaxRequests-int(count)),
		ResetAt:   time.Now().Add(ttl),
	}
	if count > int64(policy.MaxRequests) {
		d.Outcome = domain.RateDenied
	}
	return l.record(d)
}

// Check peeks at the identifier's quota without consuming it. First phase of
// the two-phase variant used for issuance: a denied check stops the request,
// and quota is consumed by Record only after the guarded operation succeeds,
// so failed attempts do not burn the caller's budget.
func (l *RateLimiter) Check(ctx context.Context, identifier string, policy domain.RatePolicy) domain.RateDecision {
	if l.store == nil {
		return l.record(l.indeterminate(policy))
	}

	count, ttl, err := l.store.Peek(ctx, identifier, policy.Window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open", "identifier", identifier, "error", err)
		return l.record(l.indeterminate(policy))
	}

	d := domain.RateDecision{
		Outcome:   domain.RateAllowed,
		Limit:     policy.MaxRequests,
		Remaining: max(0, policy.MaxRequests-int(count)),
		ResetAt:   time.Now().Add(ttl),
	}
	if count >= int64(policy.MaxRequests) {
		d.Outcome = domain.RateDenied
	}
	return l.record(d)
}

// Record consumes one unit of quota after a successful guarded operation.
// Second phase of the two-phase variant; errors only degrade accounting, so
// they are logged and swallowed.
func (l *RateLimiter) Record(ctx context.Context, identifier string, policy domain.RatePolicy) {
	if l.store == nil {
		return
	}
	if _, _, err := l.store.Incr(ctx, identifier, policy.Window); err != nil {
		l.logger.Warn("failed to record rate limit usage", "identifier", identifier, "error", err)
	}
}

func (l *RateLimiter) indeterminate(policy domain.RatePolicy) domain.RateDecision {
	return domain.RateDecision{
		Outcome:   domain.RateIndeterminate,
		Limit:     policy.MaxRequests,
		Remaining: policy.MaxRequests,
		ResetAt:   time.Now().Add(policy.Window),
	}
}

func (l *RateLimiter) record(d domain.RateDecision) domain.RateDecision {
	if l.metrics != nil {
		l.metrics.RateLimitDecisions.WithLabelValues(string(d.Outcome)).Inc()
	}
	return d
}
