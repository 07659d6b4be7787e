package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/venuehq/venuehq-backend/pkg/enums"
)

// CommissionRecord captures the platform's cut of a settled booking. Rows are
// immutable once written; corrections are appended as adjustment rows.
type CommissionRecord struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index:ix_commission_records_tenant"`
	BookingID uuid.UUID `gorm:"column:booking_id;type:uuid;not null;index:ix_commission_records_booking"`

	Kind enums.CommissionRecordKind `gorm:"column:kind;type:text;not null;default:'settlement'"`

	GrossCents      int64           `gorm:"column:gross_cents;not null"`
	CommissionCents int64           `gorm:"column:commission_cents;not null"`
	NetCents        int64           `gorm:"column:net_cents;not null"`
	RatePercent     decimal.Decimal `gorm:"column:rate_percent;type:numeric(5,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
