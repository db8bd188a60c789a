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

// TenantDirectory implements domain.TenantDirectory against the tenants table.
// The table carries no row-level security: resolution necessarily runs before
// any tenant context exists.
type TenantDirectory struct {
	db *sqlx.DB
}

func NewTenantDirectory(db *sqlx.DB) *TenantDirectory {
	return &TenantDirectory{db: db}
}

const tenantColumns = `id, slug, subdomain, name, logo_url, theme, active, created_at, updated_at`

func (d *TenantDirectory) FindActive(ctx context.Context, identifier string) (*domain.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE (slug = $1 OR subdomain = $1) AND active = TRUE
	`
	return d.findOne(ctx, query, identifier)
}

func (d *TenantDirectory) Find(ctx context.Context, identifier string) (*domain.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE slug = $1 OR subdomain = $1
	`
	return d.findOne(ctx, query, identifier)
}

func (d *TenantDirectory) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	var tenant domain.Tenant
	if err := d.db.GetContext(ctx, &tenant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return &tenant, nil
}

func (d *TenantDirectory) findOne(ctx context.Context, query, identifier string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := d.db.GetContext(ctx, &tenant, query, identifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up tenant: %w", err)
	}
	return &tenant, nil
}

func (d *TenantDirectory) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE tenants SET active = $2, updated_at = NOW() WHERE id = $1`

	res, err := d.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update tenant activity: %w", err)
	}
	return requireRow(res)
}

func (d *TenantDirectory) UpdateBranding(ctx context.Context, id uuid.UUID, logoURL *string, theme string) error {
	query := `
		UPDATE tenants
		SET logo_url = COALESCE($2, logo_url), theme = $3, updated_at = NOW()
		WHERE id = $1
	`

	res, err := d.db.ExecContext(ctx, query, id, logoURL, theme)
	if err != nil {
		return fmt.Errorf("failed to update tenant branding: %w", err)
	}
	return requireRow(res)
}
