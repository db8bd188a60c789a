package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/adapter/metrics"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/pkg/code"
	"github.com/promogate/promogate/internal/pkg/pii"
)

// maxCodeAttempts bounds the regenerate-and-retry loop on code collisions.
const maxCodeAttempts = 10

// IssueGrantUseCase implements idempotent coupon issuance: at most one
// active grant per (tenant, offer, recipient), safe under concurrent
// requests via the store's partial uniqueness index.
type IssueGrantUseCase struct {
	newScope   domain.ScopeFactory
	notifier   domain.Notifier
	logger     *slog.Logger
	metrics    *metrics.PlatformMetrics
	codeLength int
	grantTTL   time.Duration
}

// NewIssueGrantUseCase creates a new IssueGrantUseCase. The notifier is
// optional; grantTTL is the default grant expiry applied when the offer has
// no expiry of its own (zero disables it).
func NewIssueGrantUseCase(newScope domain.ScopeFactory, notifier domain.Notifier, logger *slog.Logger, m *metrics.PlatformMetrics, codeLength int, grantTTL time.Duration) *IssueGrantUseCase {
	return &IssueGrantUseCase{
		newScope:   newScope,
		notifier:   notifier,
		logger:     logger.With("component", "issuance"),
		metrics:    m,
		codeLength: codeLength,
		grantTTL:   grantTTL,
	}
}

// Issue returns the recipient's grant for the offer, creating one if no
// reusable grant exists. Calling it twice with the same arguments returns
// the same code (idempotent re-issue) as long as the first grant has not
// expired or been revoked.
func (uc *IssueGrantUseCase) Issue(ctx context.Context, tenant *domain.Tenant, offerID uuid.UUID, recipient *string) (grant *domain.Grant, err error) {
	start := time.Now()
	result := "error"
	defer func() {
		if uc.metrics != nil {
			uc.metrics.IssueDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
			uc.metrics.GrantsTotal.WithLabelValues(result).Inc()
		}
	}()

	scope := uc.newScope(tenant.ID)
	now := time.Now().UTC()

	offer, err := scope.Offers().Get(ctx, offerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result = "rejected"
			return nil, fmt.Errorf("%w: offer %s", domain.ErrNotFound, offerID)
		}
		return nil, fmt.Errorf("failed to load offer: %w", err)
	}
	if !offer.Claimable(now) {
		result = "rejected"
		return nil, fmt.Errorf("%w: offer is not open for claims", domain.ErrValidation)
	}

	existing, err := uc.reusableGrant(ctx, scope, offerID, recipient, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result = "reused"
		return existing, nil
	}

	grant, fresh, err := uc.insertNewGrant(ctx, scope, tenant, offer, recipient, now)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			result = "rejected"
		}
		return nil, err
	}
	if fresh {
		result = "issued"
		uc.notify(ctx, tenant, offer, grant)
	} else {
		// A concurrent request won the insert race; we returned its grant.
		result = "reused"
	}
	return grant, nil
}

// reusableGrant returns the existing grant when it still satisfies the
// request, applying lazy expiry along the way. A nil return with nil error
// means a fresh grant is needed.
func (uc *IssueGrantUseCase) reusableGrant(ctx context.Context, scope domain.TenantScope, offerID uuid.UUID, recipient *string, now time.Time) (*domain.Grant, error) {
	existing, err := scope.Grants().LatestForRecipient(ctx, offerID, recipient)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up existing grant: %w", err)
	}

	if existing.PastExpiry(now) && (existing.Status == domain.GrantIssued || existing.Status == domain.GrantRedeemed) {
		if err := scope.Grants().MarkExpired(ctx, existing.ID); err != nil {
			uc.logger.Warn("failed to apply lazy expiry", "grant_id", existing.ID, "error", err)
		}
		return nil, nil
	}

	if existing.Reusable(now) {
		return existing, nil
	}
	return nil, nil
}

func (uc *IssueGrantUseCase) insertNewGrant(ctx context.Context, scope domain.TenantScope, tenant *domain.Tenant, offer *domain.Offer, recipient *string, now time.Time) (*domain.Grant, bool, error) {
	expiresAt := offer.ExpiresAt
	if expiresAt == nil && uc.grantTTL > 0 {
		t := now.Add(uc.grantTTL)
		expiresAt = &t
	}

	grant := &domain.Grant{
		ID:             uuid.New(),
		TenantID:       tenant.ID,
		OfferID:        offer.ID,
		Recipient:      recipient,
		Status:         domain.GrantIssued,
		MaxRedemptions: offer.MaxRedemptions,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		c, err := code.New(uc.codeLength)
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate coupon code: %w", err)
		}
		grant.Code = c

		err = scope.Grants().Insert(ctx, grant)
		switch {
		case err == nil:
			return grant, true, nil
		case errors.Is(err, domain.ErrCodeTaken):
			uc.logger.Debug("coupon code collision, regenerating", "attempt", attempt)
			continue
		case errors.Is(err, domain.ErrGrantExists):
			// Lost the check-then-insert race: another request issued to
			// this recipient between our lookup and insert. Return theirs.
			winner, ferr := scope.Grants().LatestForRecipient(ctx, offer.ID, recipient)
			if ferr != nil {
				return nil, false, fmt.Errorf("failed to load concurrently issued grant: %w", ferr)
			}
			return winner, false, nil
		default:
			return nil, false, fmt.Errorf("failed to store grant: %w", err)
		}
	}

	return nil, false, fmt.Errorf("%w: exhausted %d code generation attempts", domain.ErrConflict, maxCodeAttempts)
}

// notify delivers the grant email best-effort; failures are logged, never
// propagated, so side calls cannot fail the issuance response.
func (uc *IssueGrantUseCase) notify(ctx context.Context, tenant *domain.Tenant, offer *domain.Offer, grant *domain.Grant) {
	if uc.notifier == nil || grant.Recipient == nil {
		return
	}
	if err := uc.notifier.GrantIssued(ctx, tenant, offer, grant); err != nil {
		uc.logger.Warn("grant notification failed",
			"grant_id", grant.ID,
			"recipient", pii.MaskEmailPtr(grant.Recipient),
			"error", err,
		)
	}
}
