package domain

import "time"

// RatePolicy is a fixed-window rate limit: at most MaxRequests per Window.
type RatePolicy struct {
	MaxRequests int
	Window      time.Duration
}

// RateOutcome is the tri-state result of a rate limit check. Indeterminate
// means the counter store could not be consulted; the policy boundary maps
// it to "allowed" (fail-open) but the distinction stays visible for tests
// and metrics.
type RateOutcome string

const (
	RateAllowed       RateOutcome = "allowed"
	RateDenied        RateOutcome = "denied"
	RateIndeterminate RateOutcome = "indeterminate"
)

// RateDecision is the result of checking an identifier against a policy.
type RateDecision struct {
	Outcome   RateOutcome
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Permitted applies the fail-open policy: everything except an explicit
// denial lets the request through.
func (d RateDecision) Permitted() bool {
	return d.Outcome != RateDenied
}

// RetryAfter returns how long the caller should wait before retrying.
// Zero if the request was permitted.
func (d RateDecision) RetryAfter() time.Duration {
	if d.Permitted() {
		return 0
	}
	if wait := time.Until(d.ResetAt); wait > 0 {
		return wait
	}
	return 0
}
