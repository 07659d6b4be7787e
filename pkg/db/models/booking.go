package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuehq/venuehq-backend/pkg/enums"
)

// TimeSlotFullDay is the sentinel slot for tenants that book one event per
// day. Tenants with intra-day granularity use their own slot labels, and the
// uniqueness key (tenant, date, slot) keeps both schemes conflict-safe.
const TimeSlotFullDay = "full-day"

// Booking reserves a (tenant, date, slot) for a package sale. The partial
// unique index across live rows is the arbiter for concurrent holds: between
// two simultaneous inserts for the same key, exactly one commits.
type Booking struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_bookings_tenant_slot,where:status <> 'cancelled',priority:1"`

	EventDate time.Time `gorm:"column:event_date;type:date;not null;uniqueIndex:ux_bookings_tenant_slot,where:status <> 'cancelled',priority:2"`
	TimeSlot  string    `gorm:"column:time_slot;not null;default:'full-day';uniqueIndex:ux_bookings_tenant_slot,where:status <> 'cancelled',priority:3"`

	Status      enums.BookingStatus `gorm:"column:status;type:text;not null;default:'held'"`
	PackageID   uuid.UUID           `gorm:"column:package_id;type:uuid;not null"`
	CustomerRef string              `gorm:"column:customer_ref;not null"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`

	// PaymentIntentRef is the external payment reference, nil until the
	// checkout flow initiates payment.
	PaymentIntentRef *string `gorm:"column:payment_intent_ref"`

	// ExpiresAt bounds how long a held booking blocks its slot.
	ExpiresAt   time.Time  `gorm:"column:expires_at;not null"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HoldLapsed reports whether a held booking's hold window has passed.
func (b Booking) HoldLapsed(now time.Time) bool {
	return b.Status == enums.BookingStatusHeld && now.After(b.ExpiresAt)
}

// Blocks reports whether the booking still occupies its date slot.
func (b Booking) Blocks(now time.Time) bool {
	switch b.Status {
	case enums.BookingStatusConfirmed:
		return true
	case enums.BookingStatusHeld:
		return !now.After(b.ExpiresAt)
	default:
		return false
	}
}
