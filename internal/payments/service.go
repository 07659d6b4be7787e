package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/venuehq/venuehq-backend/pkg/db"
	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	"github.com/venuehq/venuehq-backend/pkg/logger"
	"github.com/venuehq/venuehq-backend/pkg/metrics"

	"github.com/venuehq/venuehq-backend/internal/commission"
)

// errAlreadyProcessed signals that a concurrent delivery reached the
// terminal state first and the losing transaction must roll back.
var errAlreadyProcessed = errors.New("payment event already processed")

type bookingService interface {
	Confirm(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID, paymentRef string) (*models.Booking, error)
	Cancel(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID) error
}

type commissionService interface {
	Settle(ctx context.Context, tx *gorm.DB, input commission.SettleInput) (*models.CommissionRecord, error)
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, tenantID, eventID string) (bool, error)
	Delete(ctx context.Context, tenantID, eventID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Event is the parsed webhook envelope sent by the payment processor.
type Event struct {
	ExternalEventID string    `json:"external_event_id"`
	Type            string    `json:"type"`
	BookingID       uuid.UUID `json:"booking_id"`
	PaymentIntentID string    `json:"payment_intent_id"`
	AmountCents     int64     `json:"amount_cents"`
}

// Outcome reports what a delivery did. Duplicate outcomes mean the event had
// already reached a terminal state and no side effects ran.
type Outcome struct {
	Status    enums.PaymentEventStatus
	EventID   uuid.UUID
	BookingID uuid.UUID
}

// Service ingests payment processor webhooks exactly once per tenant and
// event id.
type Service interface {
	Process(ctx context.Context, tenant *models.Tenant, payload []byte, signature string) (*Outcome, error)
	PruneTerminalEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// ServiceParams carries the dependencies for the payment webhook processor.
type ServiceParams struct {
	DB         txRunner
	Repo       Repository
	Bookings   bookingService
	Commission commissionService
	Guard      idempotencyGuard
	Logger     *logger.Logger
	Metrics    *metrics.WebhookMetrics
	Now        func() time.Time
}

type service struct {
	db         txRunner
	repo       Repository
	bookings   bookingService
	commission commissionService
	guard      idempotencyGuard
	logg       *logger.Logger
	metrics    *metrics.WebhookMetrics
	now        func() time.Time
}

// NewService builds the payment webhook processor.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment event repository required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "booking service required")
	}
	if params.Commission == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:         params.DB,
		repo:       params.Repo,
		bookings:   params.Bookings,
		commission: params.Commission,
		guard:      params.Guard,
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        now,
	}, nil
}

// Process verifies, deduplicates, and applies one webhook delivery. The
// signature and tenant ownership checks run before any state is written, so
// a rejected delivery leaves no trace.
func (s *service) Process(ctx context.Context, tenant *models.Tenant, payload []byte, signature string) (outcome *Outcome, err error) {
	start := s.now()
	defer func() {
		s.metrics.Observe(outcomeLabel(outcome, err), s.now().Sub(start))
	}()

	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant required")
	}
	if !VerifySignature(tenant.WebhookSecret, payload, signature) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "webhook signature verification failed")
	}

	event, err := parseEvent(payload)
	if err != nil {
		return nil, err
	}
	eventType, _ := enums.ParsePaymentEventType(event.Type)

	owner, err := s.repo.FindBookingOwner(ctx, event.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve booking owner")
	}
	if owner != tenant.ID {
		return nil, pkgerrors.New(pkgerrors.CodeTenantMismatch, "event references a booking of another tenant")
	}

	lctx := s.logg.WithTenantID(ctx, tenant.ID.String())
	lctx = s.logg.WithEventID(lctx, event.ExternalEventID)

	seen, err := s.guard.CheckAndMark(ctx, tenant.ID.String(), event.ExternalEventID)
	if err != nil {
		// Redis trouble never blocks ingestion; the unique index still
		// guarantees at-most-once processing.
		s.logg.Warn(lctx, "idempotency guard unavailable, falling through to database")
		seen = false
	}

	record := &models.PaymentEvent{
		ID:              uuid.New(),
		TenantID:        tenant.ID,
		ExternalEventID: event.ExternalEventID,
		EventType:       eventType,
		Status:          enums.PaymentEventStatusReceived,
		BookingID:       event.BookingID,
		AmountCents:     event.AmountCents,
		PayloadChecksum: Checksum(payload),
	}

	if seen {
		if out, ok, derr := s.resolveRedelivery(ctx, record); derr != nil {
			return nil, derr
		} else if ok {
			return out, nil
		}
	} else if cerr := s.repo.Create(ctx, record); cerr != nil {
		if !pkgdb.IsUniqueViolation(cerr, "ux_payment_events_tenant_event") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "record payment event")
		}
		if out, ok, derr := s.resolveRedelivery(ctx, record); derr != nil {
			return nil, derr
		} else if ok {
			return out, nil
		}
	}

	if perr := s.apply(lctx, tenant, record.ID, eventType, event); perr != nil {
		if errors.Is(perr, errAlreadyProcessed) {
			return &Outcome{
				Status:    enums.PaymentEventStatusDuplicate,
				EventID:   record.ID,
				BookingID: event.BookingID,
			}, nil
		}
		now := s.now()
		if merr := s.repo.MarkFailed(ctx, record.ID, perr.Error(), now); merr != nil {
			s.logg.Error(lctx, "mark payment event failed", merr)
		}
		// Clearing the seen mark lets the processor's retry reach the
		// database again, where the received row resumes processing.
		_ = s.guard.Delete(ctx, tenant.ID.String(), event.ExternalEventID)
		return nil, perr
	}

	s.logg.Info(lctx, "payment event processed")
	return &Outcome{
		Status:    enums.PaymentEventStatusProcessed,
		EventID:   record.ID,
		BookingID: event.BookingID,
	}, nil
}

// resolveRedelivery inspects the stored row for an event seen before. A
// terminal row short-circuits with a duplicate outcome; a row still in
// received or failed state resumes processing under its original id.
func (s *service) resolveRedelivery(ctx context.Context, record *models.PaymentEvent) (*Outcome, bool, error) {
	existing, err := s.repo.FindByExternalID(ctx, record.TenantID, record.ExternalEventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Guard mark without a row: the first delivery crashed before
			// insert. Proceed as a fresh delivery.
			if cerr := s.repo.Create(ctx, record); cerr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, cerr, "record payment event")
			}
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment event")
	}

	if existing.Status.IsTerminal() {
		if derr := s.repo.IncrementDuplicate(ctx, record.TenantID, record.ExternalEventID); derr != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, derr, "count duplicate delivery")
		}
		return &Outcome{
			Status:    enums.PaymentEventStatusDuplicate,
			EventID:   existing.ID,
			BookingID: existing.BookingID,
		}, true, nil
	}

	// received or failed: the earlier delivery never completed, retry it.
	record.ID = existing.ID
	return nil, false, nil
}

// apply runs the event's side effects in one transaction with the terminal
// status update, so confirmation, commission, and the processed mark commit
// together.
func (s *service) apply(ctx context.Context, tenant *models.Tenant, recordID uuid.UUID, eventType enums.PaymentEventType, event *Event) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		switch eventType {
		case enums.PaymentEventTypeCompleted:
			booking, err := s.bookings.Confirm(ctx, tx, tenant.ID, event.BookingID, event.PaymentIntentID)
			if err != nil {
				return err
			}
			if booking.AmountCents != event.AmountCents {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "settled amount does not match booking amount").
					WithDetails(map[string]any{
						"booking_amount_cents": booking.AmountCents,
						"event_amount_cents":   event.AmountCents,
					})
			}
			if _, err := s.commission.Settle(ctx, tx, commission.SettleInput{
				TenantID:    tenant.ID,
				BookingID:   event.BookingID,
				GrossCents:  event.AmountCents,
				RatePercent: tenant.CommissionRate,
			}); err != nil {
				return err
			}
		case enums.PaymentEventTypeFailed:
			// A failed payment releases the hold so the date can sell again.
			if err := s.bookings.Cancel(ctx, tx, tenant.ID, event.BookingID); err != nil {
				return err
			}
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "unsupported event type")
		}
		affected, err := s.repo.WithTx(tx).MarkProcessed(ctx, recordID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment event processed")
		}
		if affected == 0 {
			// Another delivery of this event finished first; roll back our
			// side effects and let the caller report a duplicate.
			return errAlreadyProcessed
		}
		return nil
	})
}

// PruneTerminalEvents removes terminal event rows older than the retention
// window. Invoked by the cron worker.
func (s *service) PruneTerminalEvents(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention must be positive")
	}
	cutoff := s.now().Add(-retention)
	affected, err := s.repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "prune payment events")
	}
	return affected, nil
}

func parseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment event")
	}
	event.ExternalEventID = strings.TrimSpace(event.ExternalEventID)
	if event.ExternalEventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external event id is required")
	}
	if _, err := enums.ParsePaymentEventType(event.Type); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown event type").
			WithDetails(map[string]any{"type": event.Type})
	}
	if event.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	if event.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return &event, nil
}

func outcomeLabel(outcome *Outcome, err error) string {
	if err == nil && outcome != nil {
		return outcome.Status.String()
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeInvalidSignature:
			return "invalid_signature"
		case pkgerrors.CodeTenantMismatch:
			return "tenant_mismatch"
		case pkgerrors.CodeValidation:
			return "malformed"
		}
	}
	return "failed"
}
