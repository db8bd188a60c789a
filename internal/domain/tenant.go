package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated business running campaigns on the platform.
// It is the unit of data partitioning: every other entity belongs to exactly
// one tenant.
type Tenant struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Subdomain *string   `db:"subdomain" json:"subdomain,omitempty"`
	Name      string    `db:"name" json:"name"`
	LogoURL   *string   `db:"logo_url" json:"logo_url,omitempty"`
	Theme     string    `db:"theme" json:"theme"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StaffRole is the access level carried by a staff key.
type StaffRole string

const (
	RoleAdmin StaffRole = "admin"
	RoleStaff StaffRole = "staff"
)

// StaffIdentity is the authenticated principal behind an admin request.
type StaffIdentity struct {
	TenantID uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Role     StaffRole `db:"role" json:"role"`
}

// CanManage reports whether the identity may mutate tenant configuration
// (offers, questions, activation). Plain staff may only read and redeem.
func (s StaffIdentity) CanManage() bool {
	return s.Role == RoleAdmin
}
