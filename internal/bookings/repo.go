package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
)

// Repository manages booking persistence. Every query is scoped by tenant id;
// there is no unscoped read path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Booking, error)
	FindLiveBySlot(ctx context.Context, tenantID uuid.UUID, eventDate time.Time, timeSlot string) (*models.Booking, error)
	ListLiveByDateRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Booking, error)
	ConfirmHeld(ctx context.Context, tenantID, id uuid.UUID, paymentRef string, now time.Time) (int64, error)
	CancelByID(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (int64, error)
	CancelLapsedHold(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (int64, error)
	CancelAllLapsedHolds(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to booking operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindLiveBySlot returns the booking currently occupying the slot, cancelled
// rows excluded. gorm.ErrRecordNotFound means the slot is open. On postgres
// the row is locked FOR UPDATE NOWAIT so a contended hold fails fast instead
// of queueing; sqlite serializes writers on its own.
func (r *repository) FindLiveBySlot(ctx context.Context, tenantID uuid.UUID, eventDate time.Time, timeSlot string) (*models.Booking, error) {
	var booking models.Booking
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND event_date = ? AND time_slot = ? AND status <> ?",
			tenantID, eventDate, timeSlot, enums.BookingStatusCancelled)
	if r.db.Dialector != nil && r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"})
	}
	if err := q.First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) ListLiveByDateRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND event_date >= ? AND event_date <= ? AND status <> ?",
			tenantID, from, to, enums.BookingStatusCancelled).
		Order("event_date ASC, time_slot ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// ConfirmHeld promotes a live hold to confirmed. The guard on status and
// expiry makes the update race-safe against the expiry sweep; zero rows
// affected means the hold was no longer confirmable.
func (r *repository) ConfirmHeld(ctx context.Context, tenantID, id uuid.UUID, paymentRef string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("tenant_id = ? AND id = ? AND status = ? AND expires_at > ?",
			tenantID, id, enums.BookingStatusHeld, now).
		Updates(map[string]any{
			"status":             enums.BookingStatusConfirmed,
			"confirmed_at":       now,
			"payment_intent_ref": paymentRef,
			"updated_at":         now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CancelByID(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("tenant_id = ? AND id = ? AND status <> ?", tenantID, id, enums.BookingStatusCancelled).
		Updates(map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// CancelLapsedHold cancels a single hold only while it is still held and past
// its expiry. Used inside the hold transaction to clear a lapsed blocker.
func (r *repository) CancelLapsedHold(ctx context.Context, tenantID, id uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("tenant_id = ? AND id = ? AND status = ? AND expires_at <= ?",
			tenantID, id, enums.BookingStatusHeld, now).
		Updates(map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// CancelAllLapsedHolds is the sweep used by the cron worker. It crosses
// tenant boundaries on purpose; the predicate alone decides eligibility.
func (r *repository) CancelAllLapsedHolds(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("status = ? AND expires_at <= ?", enums.BookingStatusHeld, now).
		Updates(map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}
