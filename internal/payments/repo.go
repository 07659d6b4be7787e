package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
)

// Repository manages the durable payment event log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.PaymentEvent) error
	FindByExternalID(ctx context.Context, tenantID uuid.UUID, externalEventID string) (*models.PaymentEvent, error)
	IncrementDuplicate(ctx context.Context, tenantID uuid.UUID, externalEventID string) error
	MarkProcessed(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) error
	FindBookingOwner(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to payment event operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByExternalID(ctx context.Context, tenantID uuid.UUID, externalEventID string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND external_event_id = ?", tenantID, externalEventID).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) IncrementDuplicate(ctx context.Context, tenantID uuid.UUID, externalEventID string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("tenant_id = ? AND external_event_id = ?", tenantID, externalEventID).
		UpdateColumn("duplicate_count", gorm.Expr("duplicate_count + 1")).Error
}

// MarkProcessed promotes a non-terminal row to processed. The status guard
// makes concurrent deliveries of the same event race-safe; zero rows
// affected means another delivery already won.
func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ? AND status NOT IN ?", id, []enums.PaymentEventStatus{
			enums.PaymentEventStatusProcessed,
			enums.PaymentEventStatusDuplicate,
		}).
		Updates(map[string]any{
			"status":           enums.PaymentEventStatusProcessed,
			"processed_at":     now,
			"processing_error": nil,
			"updated_at":       now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("id = ? AND status NOT IN ?", id, []enums.PaymentEventStatus{
			enums.PaymentEventStatusProcessed,
			enums.PaymentEventStatusDuplicate,
		}).
		Updates(map[string]any{
			"status":           enums.PaymentEventStatusFailed,
			"processing_error": reason,
			"updated_at":       now,
		}).Error
}

// FindBookingOwner returns the tenant owning the referenced booking. This is
// the one deliberately unscoped read in the system; it exists so a webhook
// claiming another tenant's booking is rejected rather than reported missing.
func (r *repository) FindBookingOwner(ctx context.Context, bookingID uuid.UUID) (uuid.UUID, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).
		Select("id", "tenant_id").
		Where("id = ?", bookingID).
		First(&booking).Error; err != nil {
		return uuid.Nil, err
	}
	return booking.TenantID, nil
}

// DeleteTerminalBefore prunes terminal event rows older than the retention
// window. Rows still in flight are never touched.
func (r *repository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]enums.PaymentEventStatus{
				enums.PaymentEventStatusProcessed,
				enums.PaymentEventStatusDuplicate,
				enums.PaymentEventStatusFailed,
			}, cutoff).
		Delete(&models.PaymentEvent{})
	return res.RowsAffected, res.Error
}
