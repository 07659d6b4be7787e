package bookings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/venuehq/venuehq-backend/pkg/config"
	pkgdb "github.com/venuehq/venuehq-backend/pkg/db"
	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	"github.com/venuehq/venuehq-backend/pkg/logger"
	"github.com/venuehq/venuehq-backend/pkg/metrics"
)

const (
	holdResultHeld     = "held"
	holdResultConflict = "conflict"
	holdResultError    = "error"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the booking concurrency controller. At most one live booking
// exists per (tenant, date, slot); the partial unique index backs that up
// even when two holds race past the read check.
type Service interface {
	HoldDate(ctx context.Context, tenantID uuid.UUID, input HoldInput) (*models.Booking, error)
	Confirm(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID, paymentRef string) (*models.Booking, error)
	Cancel(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID) error
	GetByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error)
	ListBlocked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Booking, error)
	ExpireStaleHolds(ctx context.Context) (int64, error)
}

// HoldInput carries the fields a customer-initiated hold requires.
type HoldInput struct {
	EventDate   time.Time
	TimeSlot    string
	PackageID   uuid.UUID
	CustomerRef string
	AmountCents int64
}

// ServiceParams carries the dependencies for the booking service.
type ServiceParams struct {
	DB      txRunner
	Repo    Repository
	Config  config.BookingConfig
	Logger  *logger.Logger
	Metrics *metrics.BookingMetrics
	Now     func() time.Time
}

type service struct {
	db      txRunner
	repo    Repository
	cfg     config.BookingConfig
	logg    *logger.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

// NewService builds the booking controller with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.Config.HoldTTL <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "hold ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		cfg:     params.Config,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// HoldDate places a short-lived hold on a (date, slot). Contended requests
// fail fast with a date-unavailable error rather than queueing behind the
// winner's transaction.
func (s *service) HoldDate(ctx context.Context, tenantID uuid.UUID, input HoldInput) (*models.Booking, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.EventDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event date is required")
	}
	if input.PackageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}
	if strings.TrimSpace(input.CustomerRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference is required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	slot := strings.TrimSpace(input.TimeSlot)
	if slot == "" {
		slot = models.TimeSlotFullDay
	}
	eventDate := normalizeDate(input.EventDate)

	var booking *models.Booking
	attempt := func(ctx context.Context) error {
		b, err := s.holdOnce(ctx, tenantID, eventDate, slot, input)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		booking = b
		return nil
	}

	backoff := retry.WithMaxRetries(uint64(s.cfg.TxRetries), retry.NewConstant(s.cfg.TxRetryBackoff))
	if err := retry.Do(ctx, backoff, attempt); err != nil {
		// A slot still contended after the retry budget reads as taken.
		if isTransient(err) {
			err = unavailableErr(eventDate, slot)
		}
		s.recordHold(err)
		return nil, err
	}
	s.metrics.IncHold(holdResultHeld)

	lctx := s.logg.WithTenantID(ctx, tenantID.String())
	lctx = s.logg.WithBookingID(lctx, booking.ID.String())
	s.logg.Info(lctx, "booking hold placed")
	return booking, nil
}

func (s *service) holdOnce(ctx context.Context, tenantID uuid.UUID, eventDate time.Time, slot string, input HoldInput) (*models.Booking, error) {
	now := s.now()
	booking := &models.Booking{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EventDate:   eventDate,
		TimeSlot:    slot,
		Status:      enums.BookingStatusHeld,
		PackageID:   input.PackageID,
		CustomerRef: input.CustomerRef,
		AmountCents: input.AmountCents,
		ExpiresAt:   now.Add(s.cfg.HoldTTL),
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := pkgdb.ApplyLockTimeout(tx, s.cfg.LockWait); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set lock timeout")
		}
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindLiveBySlot(ctx, tenantID, eventDate, slot)
		switch {
		case err == nil:
			if existing.Blocks(now) {
				return unavailableErr(eventDate, slot)
			}
			// The blocker is a lapsed hold; cancel it in this transaction so
			// the replacement insert does not trip the unique index. Zero
			// rows means another request beat us to the slot.
			affected, cerr := repo.CancelLapsedHold(ctx, tenantID, existing.ID, now)
			if cerr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "cancel lapsed hold")
			}
			if affected == 0 {
				return unavailableErr(eventDate, slot)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// slot is open
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slot availability")
		}

		if err := repo.Create(ctx, booking); err != nil {
			if pkgdb.IsUniqueViolation(err, "ux_bookings_tenant_slot") {
				return unavailableErr(eventDate, slot)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking hold")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Confirm promotes a held booking after payment settles. It runs inside the
// caller's transaction so the confirmation and the settlement records commit
// or roll back together. Confirming an already confirmed booking is a no-op
// when the payment reference matches.
func (s *service) Confirm(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID, paymentRef string) (*models.Booking, error) {
	if tenantID == uuid.Nil || bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and booking id are required")
	}
	now := s.now()
	repo := s.repo.WithTx(tx)

	affected, err := repo.ConfirmHeld(ctx, tenantID, bookingID, paymentRef, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm booking")
	}
	if affected == 0 {
		existing, ferr := repo.FindByID(ctx, tenantID, bookingID)
		if ferr != nil {
			if errors.Is(ferr, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load booking")
		}
		if existing.Status == enums.BookingStatusConfirmed &&
			existing.PaymentIntentRef != nil && *existing.PaymentIntentRef == paymentRef {
			return existing, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeBookingExpired, "booking hold has expired").
			WithDetails(map[string]any{"booking_id": bookingID.String(), "status": existing.Status.String()})
	}

	booking, err := repo.FindByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload booking")
	}
	return booking, nil
}

// Cancel releases a booking's slot. Cancelling an already cancelled booking
// is a no-op. A non-nil tx runs the cancellation inside the caller's
// transaction so it commits or rolls back with the caller's other writes.
func (s *service) Cancel(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID) error {
	if tenantID == uuid.Nil || bookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id and booking id are required")
	}
	now := s.now()
	repo := s.repo.WithTx(tx)
	affected, err := repo.CancelByID(ctx, tenantID, bookingID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel booking")
	}
	if affected == 0 {
		if _, ferr := repo.FindByID(ctx, tenantID, bookingID); ferr != nil {
			if errors.Is(ferr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "load booking")
		}
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	if tenantID == uuid.Nil || bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id and booking id are required")
	}
	booking, err := s.repo.FindByID(ctx, tenantID, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

// ListBlocked returns the live bookings occupying slots in the date range.
// Lapsed holds the sweep has not reached yet are filtered out.
func (s *service) ListBlocked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	rows, err := s.repo.ListLiveByDateRange(ctx, tenantID, normalizeDate(from), normalizeDate(to))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	now := s.now()
	blocked := rows[:0]
	for _, b := range rows {
		if b.Blocks(now) {
			blocked = append(blocked, b)
		}
	}
	return blocked, nil
}

// ExpireStaleHolds cancels every hold past its expiry, across all tenants.
// Invoked by the cron worker.
func (s *service) ExpireStaleHolds(ctx context.Context) (int64, error) {
	affected, err := s.repo.CancelAllLapsedHolds(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale holds")
	}
	if affected > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired_holds", affected), "stale booking holds released")
	}
	return affected, nil
}

func (s *service) recordHold(err error) {
	if pkgerrors.HasCode(err, pkgerrors.CodeDateUnavailable) {
		s.metrics.IncHold(holdResultConflict)
		return
	}
	s.metrics.IncHold(holdResultError)
}

func unavailableErr(eventDate time.Time, slot string) error {
	return pkgerrors.New(pkgerrors.CodeDateUnavailable, "date is no longer available").
		WithDetails(map[string]any{
			"event_date": eventDate.Format("2006-01-02"),
			"time_slot":  slot,
		})
}

// isTransient reports whether a hold attempt failed for a reason that a
// short retry can fix. Slot conflicts are terminal; lock waits are not.
func isTransient(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if pkgdb.IsLockNotAvailable(e) || strings.Contains(e.Error(), "deadlock detected") {
			return true
		}
	}
	return false
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
