package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/promogate/promogate/internal/domain"
)

// Scope is the tenant-scoped data-access handle. Every statement it issues
// runs inside a transaction that first sets the app.tenant_id configuration
// parameter, so the row-level security policies installed by the migrations
// filter all reads and writes to the tenant's rows. Application queries do
// not re-filter by tenant_id; isolation is the store's job.
type Scope struct {
	db       *sqlx.DB
	tenantID uuid.UUID
}

// NewScopeFactory returns a pure factory of per-request scopes. Scopes share
// only the connection pool; there is no per-tenant mutable state.
func NewScopeFactory(db *sqlx.DB) domain.ScopeFactory {
	return func(tenantID uuid.UUID) domain.TenantScope {
		return &Scope{db: db, tenantID: tenantID}
	}
}

func (s *Scope) TenantID() uuid.UUID { return s.tenantID }

func (s *Scope) Offers() domain.OfferRepository   { return &OfferRepository{scope: s} }
func (s *Scope) Grants() domain.GrantRepository   { return &GrantRepository{scope: s} }
func (s *Scope) Surveys() domain.SurveyRepository { return &SurveyRepository{scope: s} }

// withTenantTx runs fn in a transaction carrying the tenant RLS context.
// set_config's is_local flag scopes the setting to this transaction only.
func (s *Scope) withTenantTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.tenant_id', $1, true)`, s.tenantID.String()); err != nil {
		return fmt.Errorf("failed to set tenant context: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
