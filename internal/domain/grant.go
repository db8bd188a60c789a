package domain

import (
	"time"

	"github.com/google/uuid"
)

// GrantStatus is the lifecycle state of an issued coupon code.
//
// Transitions: issued -> redeemed (terminal once the redemption limit is hit),
// issued -> revoked (admin action, terminal), issued|redeemed -> expired
// (time-based, applied lazily on read).
type GrantStatus string

const (
	GrantIssued   GrantStatus = "issued"
	GrantRedeemed GrantStatus = "redeemed"
	GrantRevoked  GrantStatus = "revoked"
	GrantExpired  GrantStatus = "expired"
)

// Grant is one issued coupon code, tied to one offer and at most one recipient.
type Grant struct {
	ID               uuid.UUID   `db:"id" json:"id"`
	TenantID         uuid.UUID   `db:"tenant_id" json:"tenant_id"`
	OfferID          uuid.UUID   `db:"offer_id" json:"offer_id"`
	Recipient        *string     `db:"recipient" json:"recipient,omitempty"`
	Code             string      `db:"code" json:"code"`
	Status           GrantStatus `db:"status" json:"status"`
	RedemptionsCount int         `db:"redemptions_count" json:"redemptions_count"`
	MaxRedemptions   int         `db:"max_redemptions" json:"max_redemptions"`
	ExpiresAt        *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// PastExpiry reports whether the grant's expiry time has passed. The stored
// status may still read issued/redeemed; expiry is applied lazily on read.
func (g *Grant) PastExpiry(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// Reusable reports whether an existing grant satisfies a repeat issue request
// for the same (offer, recipient): still in a non-terminal-failure state, not
// past expiry, and not over its redemption limit.
func (g *Grant) Reusable(now time.Time) bool {
	if g.Status != GrantIssued && g.Status != GrantRedeemed {
		return false
	}
	if g.PastExpiry(now) {
		return false
	}
	return g.RedemptionsCount < g.MaxRedemptions
}

// Redeemable reports whether a redemption attempt may proceed.
func (g *Grant) Redeemable(now time.Time) bool {
	switch g.Status {
	case GrantIssued, GrantRedeemed:
	default:
		return false
	}
	if g.PastExpiry(now) {
		return false
	}
	return g.RedemptionsCount < g.MaxRedemptions
}
