package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/promogate/promogate/internal/domain"
)

// OfferRepository implements domain.OfferRepository on a tenant scope.
type OfferRepository struct {
	scope *Scope
}

const offerColumns = `id, tenant_id, title, discount, image_url, max_redemptions, expires_at, active, created_at, updated_at`

func (r *OfferRepository) ListActive(ctx context.Context) ([]domain.Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE active = TRUE AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC
	`

	var offers []domain.Offer
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &offers, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active offers: %w", err)
	}
	return offers, nil
}

func (r *OfferRepository) List(ctx context.Context) ([]domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers ORDER BY created_at DESC`

	var offers []domain.Offer
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &offers, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (r *OfferRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	var offer domain.Offer
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &offer, query, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &offer, nil
}

func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO offers (id, tenant_id, title, discount, image_url, max_redemptions, expires_at, active, created_at, updated_at)
		VALUES (:id, :tenant_id, :title, :discount, :image_url, :max_redemptions, :expires_at, :active, :created_at, :updated_at)
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, offer); err != nil {
			return fmt.Errorf("failed to insert offer: %w", err)
		}
		return nil
	})
}

func (r *OfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	query := `
		UPDATE offers
		SET title = :title, discount = :discount, image_url = :image_url,
		    max_redemptions = :max_redemptions, expires_at = :expires_at,
		    active = :active, updated_at = :updated_at
		WHERE id = :id
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, offer)
		if err != nil {
			return fmt.Errorf("failed to update offer: %w", err)
		}
		return requireRow(res)
	})
}

func (r *OfferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete offer: %w", err)
		}
		return requireRow(res)
	})
}

// requireRow maps a zero-row-affected result to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
