package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/venuehq/venuehq-backend/pkg/enums"
)

// PaymentEvent is the durable receipt log for inbound payment webhooks. The
// (tenant_id, external_event_id) unique index guarantees an event is
// processed at most once no matter how many times the processor redelivers.
type PaymentEvent struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_payment_events_tenant_event,priority:1"`

	ExternalEventID string                   `gorm:"column:external_event_id;not null;uniqueIndex:ux_payment_events_tenant_event,priority:2"`
	EventType       enums.PaymentEventType   `gorm:"column:event_type;type:text;not null"`
	Status          enums.PaymentEventStatus `gorm:"column:status;type:text;not null;default:'received'"`

	BookingID   uuid.UUID `gorm:"column:booking_id;type:uuid;not null"`
	AmountCents int64     `gorm:"column:amount_cents;not null"`

	// PayloadChecksum is the SHA-256 digest of the raw signed payload,
	// retained for audit without storing the body itself.
	PayloadChecksum string `gorm:"column:payload_checksum;not null"`

	// DuplicateCount records redeliveries observed after the event reached a
	// terminal state; side effects run exactly once regardless.
	DuplicateCount  int     `gorm:"column:duplicate_count;not null;default:0"`
	ProcessingError *string `gorm:"column:processing_error"`

	ProcessedAt *time.Time `gorm:"column:processed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
