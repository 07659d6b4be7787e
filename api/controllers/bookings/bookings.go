package bookings

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/venuehq/venuehq-backend/api/middleware"
	"github.com/venuehq/venuehq-backend/api/responses"
	"github.com/venuehq/venuehq-backend/api/validators"
	internalbookings "github.com/venuehq/venuehq-backend/internal/bookings"
	"github.com/venuehq/venuehq-backend/pkg/db/models"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	"github.com/venuehq/venuehq-backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// HoldRequest is the payload for placing a hold on a date.
type HoldRequest struct {
	EventDate   string `json:"event_date" validate:"required,datetime=2006-01-02"`
	TimeSlot    string `json:"time_slot" validate:"omitempty,max=64"`
	PackageID   string `json:"package_id" validate:"required,uuid4"`
	CustomerRef string `json:"customer_ref" validate:"required,max=255"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
}

// BookingResponse is the public shape of a booking.
type BookingResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventDate   string     `json:"event_date"`
	TimeSlot    string     `json:"time_slot"`
	Status      string     `json:"status"`
	PackageID   uuid.UUID  `json:"package_id"`
	CustomerRef string     `json:"customer_ref"`
	AmountCents int64      `json:"amount_cents"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

func toResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		EventDate:   b.EventDate.Format(dateLayout),
		TimeSlot:    b.TimeSlot,
		Status:      b.Status.String(),
		PackageID:   b.PackageID,
		CustomerRef: b.CustomerRef,
		AmountCents: b.AmountCents,
		ExpiresAt:   b.ExpiresAt,
		ConfirmedAt: b.ConfirmedAt,
	}
}

// Hold places a short-lived hold on a date slot for the resolved tenant.
func Hold(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		tenant := middleware.TenantFromContext(r.Context())
		if tenant == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not resolved"))
			return
		}

		var req HoldRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventDate, err := time.Parse(dateLayout, req.EventDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event_date must be YYYY-MM-DD"))
			return
		}
		packageID, err := uuid.Parse(req.PackageID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "package_id must be a uuid"))
			return
		}

		booking, err := svc.HoldDate(r.Context(), tenant.ID, internalbookings.HoldInput{
			EventDate:   eventDate,
			TimeSlot:    req.TimeSlot,
			PackageID:   packageID,
			CustomerRef: req.CustomerRef,
			AmountCents: req.AmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toResponse(booking))
	}
}

// Detail returns a single booking owned by the resolved tenant.
func Detail(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		tenant := middleware.TenantFromContext(r.Context())
		if tenant == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not resolved"))
			return
		}
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.GetByID(r.Context(), tenant.ID, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponse(booking))
	}
}

// Cancel releases a booking's slot.
func Cancel(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		tenant := middleware.TenantFromContext(r.Context())
		if tenant == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not resolved"))
			return
		}
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), nil, tenant.ID, bookingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// Availability lists the occupied slots for a date range so storefronts can
// grey out sold dates.
func Availability(svc internalbookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		tenant := middleware.TenantFromContext(r.Context())
		if tenant == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not resolved"))
			return
		}

		from, err := parseDateQuery(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := parseDateQuery(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		blocked, err := svc.ListBlocked(r.Context(), tenant.ID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]map[string]string, 0, len(blocked))
		for _, b := range blocked {
			out = append(out, map[string]string{
				"event_date": b.EventDate.Format(dateLayout),
				"time_slot":  b.TimeSlot,
				"status":     b.Status.String(),
			})
		}
		responses.WriteSuccess(w, map[string]any{"blocked": out})
	}
}

func parseBookingID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "bookingId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id must be a uuid")
	}
	return id, nil
}

func parseDateQuery(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, name+" query parameter is required")
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, name+" must be YYYY-MM-DD")
	}
	return parsed, nil
}
