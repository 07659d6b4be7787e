package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant represents an independent business selling date-bound packages on
// the shared platform. Tenants are never hard-deleted; Active is flipped off
// so historical bookings and commission records stay intact.
type Tenant struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug string    `gorm:"column:slug;not null;uniqueIndex:ux_tenants_slug"`
	Name string    `gorm:"column:name;not null"`

	// Active carries no struct-tag default: gorm drops zero-valued fields
	// with one from INSERTs, which would silently persist an inactive
	// tenant as active. The column default lives in the migration.
	Active         bool            `gorm:"column:active;not null"`
	DeactivatedAt  *time.Time      `gorm:"column:deactivated_at"`
	CommissionRate decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,2);not null"`

	// PaymentAccountID is the connected account on the external payment
	// processor; opaque to this system.
	PaymentAccountID string `gorm:"column:payment_account_id;not null"`
	// WebhookSecret signs inbound payment events for this tenant.
	WebhookSecret string `gorm:"column:webhook_secret;not null"`
	// APIKeyHash is the SHA-256 digest of the tenant's API key; the raw key
	// is never stored.
	APIKeyHash *string `gorm:"column:api_key_hash;uniqueIndex:ux_tenants_api_key_hash"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
