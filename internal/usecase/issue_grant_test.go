package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/promogate/promogate/internal/domain"
	"github.com/promogate/promogate/internal/domain/mocks"
)

func staticScope(scope *mocks.MockScope) domain.ScopeFactory {
	return func(uuid.UUID) domain.TenantScope { return scope }
}

func testTenant() *domain.Tenant {
	return &domain.Tenant{ID: uuid.New(), Slug: "acme", Name: "Acme", Active: true}
}

func seedOffer(scope *mocks.MockScope, maxRedemptions int) domain.Offer {
	offer := domain.Offer{
		ID:             uuid.New(),
		TenantID:       scope.ID,
		Title:          "Free Coffee",
		Discount:       "100%",
		MaxRedemptions: maxRedemptions,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	scope.OfferRepo.Offers = append(scope.OfferRepo.Offers, offer)
	return offer
}

func TestIssueGrantUseCase_Issue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	email := "visitor@example.com"

	t.Run("issues a fresh grant and notifies", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		notifier := &mocks.MockNotifier{}
		uc := NewIssueGrantUseCase(staticScope(scope), notifier, logger, nil, 10, 0)

		grant, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(grant.Code) != 10 {
			t.Errorf("expected 10-character code, got %q", grant.Code)
		}
		if grant.Status != domain.GrantIssued {
			t.Errorf("expected issued status, got %s", grant.Status)
		}
		if grant.MaxRedemptions != offer.MaxRedemptions {
			t.Error("expected per-grant limit copied from the offer")
		}
		if len(notifier.Notified) != 1 || notifier.Notified[0] != grant.Code {
			t.Errorf("expected one notification for %q, got %v", grant.Code, notifier.Notified)
		}
	})

	t.Run("repeat claim returns the same code", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		notifier := &mocks.MockNotifier{}
		uc := NewIssueGrantUseCase(staticScope(scope), notifier, logger, nil, 10, 0)

		first, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("first issue failed: %v", err)
		}
		second, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("second issue failed: %v", err)
		}
		if first.Code != second.Code {
			t.Errorf("expected idempotent re-issue, got %q then %q", first.Code, second.Code)
		}
		if len(scope.GrantRepo.Grants) != 1 {
			t.Errorf("expected a single stored grant, got %d", len(scope.GrantRepo.Grants))
		}
		if len(notifier.Notified) != 1 {
			t.Errorf("expected a single notification, got %d", len(notifier.Notified))
		}
	})

	t.Run("different recipients get different grants", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		other := "other@example.com"
		first, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("first issue failed: %v", err)
		}
		second, err := uc.Issue(context.Background(), tenant, offer.ID, &other)
		if err != nil {
			t.Fatalf("second issue failed: %v", err)
		}
		if first.Code == second.Code {
			t.Error("expected distinct codes for distinct recipients")
		}
	})

	t.Run("regenerates code on collision", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		scope.GrantRepo.InsertErrs = []error{domain.ErrCodeTaken, domain.ErrCodeTaken}
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		grant, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if grant.Code == "" {
			t.Error("expected a code after collisions")
		}
		if len(scope.GrantRepo.Grants) != 1 {
			t.Errorf("expected a single stored grant, got %d", len(scope.GrantRepo.Grants))
		}
	})

	t.Run("gives up after exhausting code attempts", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		for i := 0; i < maxCodeAttempts; i++ {
			scope.GrantRepo.InsertErrs = append(scope.GrantRepo.InsertErrs, domain.ErrCodeTaken)
		}
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		_, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("concurrent claims converge on one grant", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		const workers = 8
		codes := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				grant, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
				if err != nil {
					errs[i] = err
					return
				}
				codes[i] = grant.Code
			}(i)
		}
		wg.Wait()

		for i := range errs {
			if errs[i] != nil {
				t.Fatalf("worker %d failed: %v", i, errs[i])
			}
		}
		for i := 1; i < workers; i++ {
			if codes[i] != codes[0] {
				t.Fatalf("expected all workers to receive the same code, got %q and %q", codes[0], codes[i])
			}
		}
		if len(scope.GrantRepo.Grants) != 1 {
			t.Errorf("expected a single stored grant, got %d", len(scope.GrantRepo.Grants))
		}
	})

	t.Run("expired grant is replaced", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		past := time.Now().Add(-time.Hour)
		stale := domain.Grant{
			ID:             uuid.New(),
			TenantID:       tenant.ID,
			OfferID:        offer.ID,
			Recipient:      &email,
			Code:           "OLDCODE99X",
			Status:         domain.GrantIssued,
			MaxRedemptions: 1,
			ExpiresAt:      &past,
			CreatedAt:      past.Add(-time.Hour),
		}
		scope.GrantRepo.Grants = append(scope.GrantRepo.Grants, stale)
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		grant, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("expected re-issue after expiry, got %v", err)
		}
		if grant.Code == stale.Code {
			t.Error("expected a fresh code, got the expired one")
		}
		if scope.GrantRepo.Grants[0].Status != domain.GrantExpired {
			t.Errorf("expected lazy expiry to mark the old grant, got %s", scope.GrantRepo.Grants[0].Status)
		}
	})

	t.Run("applies the default grant TTL", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 24*time.Hour)

		grant, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if grant.ExpiresAt == nil {
			t.Fatal("expected expiry from the default TTL")
		}
	})

	t.Run("unknown offer", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		_, err := uc.Issue(context.Background(), tenant, uuid.New(), &email)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("inactive offer rejects claims", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		scope.OfferRepo.Offers[0].Active = false
		uc := NewIssueGrantUseCase(staticScope(scope), nil, logger, nil, 10, 0)

		_, err := uc.Issue(context.Background(), tenant, offer.ID, &email)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("notifier failure does not fail issuance", func(t *testing.T) {
		tenant := testTenant()
		scope := mocks.NewMockScope(tenant.ID)
		offer := seedOffer(scope, 1)
		notifier := &mocks.MockNotifier{Err: errors.New("smtp down")}
		uc := NewIssueGrantUseCase(staticScope(scope), notifier, logger, nil, 10, 0)

		if _, err := uc.Issue(context.Background(), tenant, offer.ID, &email); err != nil {
			t.Fatalf("expected issuance to succeed despite notifier failure, got %v", err)
		}
	})
}
