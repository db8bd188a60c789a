package domain

import "errors"

// Sentinel errors forming the platform's error taxonomy. Operations return
// these (usually wrapped with context via fmt.Errorf and %w) instead of
// ad-hoc error strings, so callers can branch with errors.Is and the HTTP
// layer can map them to status codes.
var (
	// ErrNotFound indicates the referenced tenant, offer, grant or question
	// does not exist (or is not visible in the current scope).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or insufficient staff credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates malformed or semantically invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited indicates the caller exceeded its request quota.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates a uniqueness conflict that retrying did not
	// resolve, e.g. coupon code generation exhausting its attempts.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable indicates a backing store or service call failed.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Storage-level signals consumed by the issuance guard. Repositories
// translate driver-specific unique-violation errors into these so the
// guard can tell "regenerate the code" apart from "a concurrent request
// already issued to this recipient".
var (
	// ErrCodeTaken indicates the candidate coupon code collided with an
	// existing one. The guard regenerates and retries.
	ErrCodeTaken = errors.New("coupon code already taken")

	// ErrGrantExists indicates another active grant for the same
	// (tenant, offer, recipient) won a concurrent insert race. The guard
	// re-reads and returns the winner.
	ErrGrantExists = errors.New("active grant already exists")
)
