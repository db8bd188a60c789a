package domain

import (
	"time"

	"github.com/google/uuid"
)

// Offer is a promotional coupon campaign owned by a single tenant.
type Offer struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	TenantID       uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Title          string     `db:"title" json:"title"`
	Discount       string     `db:"discount" json:"discount"`
	ImageURL       *string    `db:"image_url" json:"image_url,omitempty"`
	MaxRedemptions int        `db:"max_redemptions" json:"max_redemptions"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	Active         bool       `db:"active" json:"active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the offer itself has passed its expiry.
func (o *Offer) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// Claimable reports whether new grants may be issued against the offer.
func (o *Offer) Claimable(now time.Time) bool {
	return o.Active && !o.Expired(now)
}
