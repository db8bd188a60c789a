package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// TenantDirectory resolves tenants from their human-readable identifiers.
// It is deliberately unscoped: it runs before any tenant context exists.
type TenantDirectory interface {
	// FindActive looks up a tenant by slug or subdomain, restricted to
	// active tenants. Returns ErrNotFound on miss.
	FindActive(ctx context.Context, identifier string) (*Tenant, error)

	// Find looks up a tenant by slug or subdomain with no activity filter.
	// This is the fallback path that keeps deactivated tenants reachable
	// for staff flows. Returns ErrNotFound on miss.
	Find(ctx context.Context, identifier string) (*Tenant, error)

	// GetByID loads a tenant by primary key, active or not. Staff requests
	// carry a tenant id, not a slug.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// SetActive toggles the tenant-facing access gate.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// UpdateBranding updates display metadata (logo URL, theme).
	UpdateBranding(ctx context.Context, id uuid.UUID, logoURL *string, theme string) error
}

// TenantScope is a request-scoped data-access handle bound to exactly one
// tenant. Every query issued through it is filtered to that tenant's rows by
// the store's row-level security, not by application-side WHERE clauses.
type TenantScope interface {
	TenantID() uuid.UUID
	Offers() OfferRepository
	Grants() GrantRepository
	Surveys() SurveyRepository
}

// ScopeFactory constructs a TenantScope for a resolved tenant. It must be a
// pure function of its argument: no shared mutable state between requests.
type ScopeFactory func(tenantID uuid.UUID) TenantScope

// OfferRepository manages a tenant's coupon campaigns.
type OfferRepository interface {
	ListActive(ctx context.Context) ([]Offer, error)
	List(ctx context.Context) ([]Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*Offer, error)
	Create(ctx context.Context, offer *Offer) error
	Update(ctx context.Context, offer *Offer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OfferStats is a per-offer issuance/redemption rollup for the dashboard.
type OfferStats struct {
	OfferID  uuid.UUID `db:"offer_id" json:"offer_id"`
	Title    string    `db:"title" json:"title"`
	Issued   int       `db:"issued" json:"issued"`
	Redeemed int       `db:"redeemed" json:"redeemed"`
	Revoked  int       `db:"revoked" json:"revoked"`
}

// GrantRepository manages issued coupon codes within one tenant scope.
type GrantRepository interface {
	// LatestForRecipient returns the most recently created grant for the
	// (offer, recipient) pair, or ErrNotFound. A nil recipient matches
	// anonymous grants.
	LatestForRecipient(ctx context.Context, offerID uuid.UUID, recipient *string) (*Grant, error)

	// Insert stores a new grant. Returns ErrCodeTaken when the code
	// collides, ErrGrantExists when another active grant for the same
	// (offer, recipient) already exists.
	Insert(ctx context.Context, grant *Grant) error

	// GetByCode returns the grant carrying the given code, or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*Grant, error)

	// MarkExpired lazily applies time-based expiry to a grant.
	MarkExpired(ctx context.Context, id uuid.UUID) error

	// ApplyRedemption increments the redemption counter and flips status to
	// redeemed once the limit is reached, in one guarded update. Returns
	// false when the guard rejected the update (wrong status, expired, or
	// over the limit).
	ApplyRedemption(ctx context.Context, id uuid.UUID) (bool, error)

	// Revoke terminates a grant. Returns false when the grant was not in a
	// revocable state.
	Revoke(ctx context.Context, id uuid.UUID) (bool, error)

	// List returns the tenant's grants, most recent first.
	List(ctx context.Context, limit int) ([]Grant, error)

	// StatsByOffer aggregates issuance counts per offer.
	StatsByOffer(ctx context.Context) ([]OfferStats, error)
}

// SurveyRepository manages the survey gate within one tenant scope.
type SurveyRepository interface {
	ListQuestions(ctx context.Context, activeOnly bool) ([]Question, error)
	CreateQuestion(ctx context.Context, q *Question) error
	UpdateQuestion(ctx context.Context, q *Question) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error

	InsertResponses(ctx context.Context, responses []Response) error

	// UpsertOptIn records (or refreshes) survey-gate consent for an email.
	UpsertOptIn(ctx context.Context, email string, consentedAt time.Time) error
	HasOptIn(ctx context.Context, email string) (bool, error)
	ListOptIns(ctx context.Context) ([]OptIn, error)
}

// StaffKeyRepository authenticates admin requests by API key.
type StaffKeyRepository interface {
	// Identify maps a staff key to its identity. Returns ErrUnauthorized
	// for unknown, inactive or expired keys.
	Identify(ctx context.Context, key string) (*StaffIdentity, error)
}

// RateLimitStore is a shared counter store with per-key TTLs. Implementations
// must return ErrUnavailable (wrapped) when the store cannot be reached so
// the limiter can surface an indeterminate decision.
type RateLimitStore interface {
	// Incr increments the window counter for key, setting the TTL on first
	// touch. Returns the post-increment count and the remaining TTL.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Peek reads the counter without consuming quota. A missing key reads
	// as zero with a full window remaining.
	Peek(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// FileStore persists uploaded assets (tenant logos, offer images) and
// returns a public URL for serving them.
type FileStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// Notifier delivers best-effort side-channel notifications (email, wallet
// passes). Failures must never block the primary response; callers log and
// move on.
type Notifier interface {
	GrantIssued(ctx context.Context, tenant *Tenant, offer *Offer, grant *Grant) error
}
