package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/domain/mocks"
)

func seedGrant(scope *mocks.MockScope, status domain.GrantStatus, count, max int, expiresAt *time.Time) domain.Grant {
	grant := domain.Grant{
		ID:               uuid.New(),
		TenantID:         scope.ID,
		OfferID:          uuid.New(),
		Code:             "TESTCODE2X",
		Status:           status,
		RedemptionsCount: count,
		MaxRedemptions:   max,
		ExpiresAt:        expiresAt,
		CreatedAt:        time.Now().UTC(),
	}
	scope.GrantRepo.Grants = append(scope.GrantRepo.Grants, grant)
	return grant
}

func TestRedeemGrantUseCase_Redeem(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("redeems and flips status at the limit", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		seedGrant(scope, domain.GrantIssued, 0, 2, nil)
		uc := NewRedeemGrantUseCase(staticScope(scope), logger, nil)

		grant, err := uc.Redeem(context.Background(), tenant, "TESTCODE2X")
		if err != nil {
			t.Fatalf("first redemption failed: %v", err)
		}
		if grant.RedemptionsCount != 1 || grant.Status != domain.GrantIssued {
			t.Errorf("expected count 1 and issued status, got %d/%s", grant.RedemptionsCount, grant.Status)
		}

		grant, err = uc.Redeem(context.Background(), tenant, "TESTCODE2X")
		if err != nil {
			t.Fatalf("second redemption failed: %v", err)
		}
		if grant.RedemptionsCount != 2 || grant.Status != domain.GrantRedeemed {
			t.Errorf("expected count 2 and redeemed status, got %d/%s", grant.RedemptionsCount, grant.Status)
		}

		if _, err := uc.Redeem(context.Background(), tenant, "TESTCODE2X"); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation past the limit, got %v", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		uc := NewRedeemGrantUseCase(staticScope(scope), logger, nil)

		if _, err := uc.Redeem(context.Background(), tenant, "NOPE"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("revoked grant", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		seedGrant(scope, domain.GrantRevoked, 0, 1, nil)
		uc := NewRedeemGrantUseCase(staticScope(scope), logger, nil)

		if _, err := uc.Redeem(context.Background(), tenant, "TESTCODE2X"); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("expired grant is marked lazily", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		past := time.Now().Add(-time.Hour)
		seedGrant(scope, domain.GrantIssued, 0, 1, &past)
		uc := NewRedeemGrantUseCase(staticScope(scope), logger, nil)

		if _, err := uc.Redeem(context.Background(), tenant, "TESTCODE2X"); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		if scope.GrantRepo.Grants[0].Status != domain.GrantExpired {
			t.Errorf("expected lazy expiry, got %s", scope.GrantRepo.Grants[0].Status)
		}
	})
}
