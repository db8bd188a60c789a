package usecase

import (
	"context"
	"fmt"

	"github.com/promogate/promogate/internal/domain"
)

// CatalogUseCase serves the visitor-facing offer listing.
type CatalogUseCase struct {
	newScope domain.ScopeFactory
}

// NewCatalogUseCase creates a new CatalogUseCase.
func NewCatalogUseCase(newScope domain.ScopeFactory) *CatalogUseCase {
	return &CatalogUseCase{newScope: newScope}
}

// ActiveOffers returns the tenant's claimable offers.
func (uc *CatalogUseCase) ActiveOffers(ctx context.Context, tenant *domain.Tenant) ([]domain.Offer, error) {
	offers, err := uc.newScope(tenant.ID).Offers().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active offers: %w", err)
	}
	return offers, nil
}
