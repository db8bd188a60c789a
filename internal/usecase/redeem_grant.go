package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promogate/promogate/internal/adapter/metrics"
	"github.com/promogate/promogate/internal/domain"
)

// RedeemGrantUseCase validates and applies coupon redemptions.
type RedeemGrantUseCase struct {
	newScope domain.ScopeFactory
	logger   *slog.Logger
	metrics  *metrics.PlatformMetrics
}

// NewRedeemGrantUseCase creates a new RedeemGrantUseCase.
func NewRedeemGrantUseCase(newScope domain.ScopeFactory, logger *slog.Logger, m *metrics.PlatformMetrics) *RedeemGrantUseCase {
	return &RedeemGrantUseCase{
		newScope: newScope,
		logger:   logger.With("component", "redemption"),
		metrics:  m,
	}
}

// Redeem increments the redemption counter for the grant carrying the code
// and flips it to redeemed once the limit is reached. The counter update and
// status flip happen in one guarded store update.
func (uc *RedeemGrantUseCase) Redeem(ctx context.Context, tenant *domain.Tenant, couponCode string) (grant *domain.Grant, err error) {
	result := "error"
	defer func() {
		if uc.metrics != nil {
			uc.metrics.RedemptionsTotal.WithLabelValues(result).Inc()
		}
	}()

	scope := uc.newScope(tenant.ID)
	now := time.Now().UTC()

	grant, err = scope.Grants().GetByCode(ctx, couponCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result = "rejected"
			return nil, fmt.Errorf("%w: unknown coupon code", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load grant: %w", err)
	}

	if rejectErr := uc.rejectionFor(ctx, scope, grant, now); rejectErr != nil {
		result = "rejected"
		return nil, rejectErr
	}

	applied, err := scope.Grants().ApplyRedemption(ctx, grant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply redemption: %w", err)
	}
	if !applied {
		// The guard in the update rejected it: a concurrent redemption used
		// up the remaining quota between our read and the write.
		result = "rejected"
		return nil, fmt.Errorf("%w: coupon has reached its maximum redemptions", domain.ErrConflict)
	}

	grant, err = scope.Grants().GetByCode(ctx, couponCode)
	if err != nil {
		return nil, fmt.Errorf("failed to reload grant: %w", err)
	}

	result = "redeemed"
	return grant, nil
}

// rejectionFor maps an unredeemable grant state to its typed error,
// applying lazy expiry first. Nil means redemption may proceed.
func (uc *RedeemGrantUseCase) rejectionFor(ctx context.Context, scope domain.TenantScope, grant *domain.Grant, now time.Time) error {
	if grant.PastExpiry(now) && (grant.Status == domain.GrantIssued || grant.Status == domain.GrantRedeemed) {
		if err := scope.Grants().MarkExpired(ctx, grant.ID); err != nil {
			uc.logger.Warn("failed to apply lazy expiry", "grant_id", grant.ID, "error", err)
		}
		return fmt.Errorf("%w: coupon has expired", domain.ErrValidation)
	}

	switch grant.Status {
	case domain.GrantRevoked:
		return fmt.Errorf("%w: coupon has been revoked", domain.ErrValidation)
	case domain.GrantExpired:
		return fmt.Errorf("%w: coupon has expired", domain.ErrValidation)
	}

	if grant.RedemptionsCount >= grant.MaxRedemptions {
		return fmt.Errorf("%w: coupon already used the maximum number of times", domain.ErrValidation)
	}
	return nil
}
