package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/promogate/promogate/internal/domain"
)

// GrantRepository implements domain.GrantRepository on a tenant scope.
type GrantRepository struct {
	scope *Scope
}

const grantColumns = `id, tenant_id, offer_id, recipient, code, status, redemptions_count, max_redemptions, expires_at, created_at, updated_at`

func (r *GrantRepository) LatestForRecipient(ctx context.Context, offerID uuid.UUID, recipient *string) (*domain.Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM grants
		WHERE offer_id = $1 AND recipient IS NOT DISTINCT FROM $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var grant domain.Grant
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &grant, query, offerID, recipient)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up grant: %w", err)
	}
	return &grant, nil
}

func (r *GrantRepository) Insert(ctx context.Context, grant *domain.Grant) error {
	query := `
		INSERT INTO grants (id, tenant_id, offer_id, recipient, code, status, redemptions_count, max_redemptions, expires_at, created_at, updated_at)
		VALUES (:id, :tenant_id, :offer_id, :recipient, :code, :status, :redemptions_count, :max_redemptions, :expires_at, :created_at, :updated_at)
	`

	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, query, grant)
		return err
	})
	if err != nil {
		return translateGrantConflict(err)
	}
	return nil
}

// translateGrantConflict maps the two uniqueness indexes on grants to their
// domain signals so the issuance guard can branch on them.
func translateGrantConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "grants_code_key":
			return domain.ErrCodeTaken
		case "grants_active_recipient_idx":
			return domain.ErrGrantExists
		}
	}
	return fmt.Errorf("failed to insert grant: %w", err)
}

func (r *GrantRepository) GetByCode(ctx context.Context, code string) (*domain.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE code = $1`

	var grant domain.Grant
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &grant, query, code)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get grant by code: %w", err)
	}
	return &grant, nil
}

func (r *GrantRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE grants
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status IN ('issued', 'redeemed')
	`

	return r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to mark grant expired: %w", err)
		}
		return nil
	})
}

// ApplyRedemption performs the counter increment and the conditional status
// flip in one guarded statement, so two concurrent redemptions cannot both
// consume the final slot.
func (r *GrantRepository) ApplyRedemption(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE grants
		SET redemptions_count = redemptions_count + 1,
		    status = CASE WHEN redemptions_count + 1 >= max_redemptions THEN 'redeemed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('issued', 'redeemed')
		  AND redemptions_count < max_redemptions
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var applied bool
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to apply redemption: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		applied = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *GrantRepository) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE grants
		SET status = 'revoked', updated_at = NOW()
		WHERE id = $1 AND status IN ('issued', 'redeemed')
	`

	var revoked bool
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to revoke grant: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		revoked = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *GrantRepository) List(ctx context.Context, limit int) ([]domain.Grant, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + grantColumns + ` FROM grants ORDER BY created_at DESC LIMIT $1`

	var grants []domain.Grant
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &grants, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

func (r *GrantRepository) StatsByOffer(ctx context.Context) ([]domain.OfferStats, error) {
	query := `
		SELECT o.id AS offer_id,
		       o.title AS title,
		       COUNT(g.id) AS issued,
		       COUNT(g.id) FILTER (WHERE g.status = 'redeemed') AS redeemed,
		       COUNT(g.id) FILTER (WHERE g.status = 'revoked') AS revoked
		FROM offers o
		LEFT JOIN grants g ON g.offer_id = o.id
		GROUP BY o.id, o.title
		ORDER BY issued DESC
	`

	var stats []domain.OfferStats
	err := r.scope.withTenantTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &stats, query)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate offer stats: %w", err)
	}
	return stats, nil
}
