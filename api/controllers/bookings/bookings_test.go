package bookings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuehq/venuehq-backend/api/middleware"
	internalbookings "github.com/venuehq/venuehq-backend/internal/bookings"
	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
)

type fakeBookingService struct {
	booking  *models.Booking
	blocked  []models.Booking
	err      error
	tenantID uuid.UUID
	input    internalbookings.HoldInput
	cancels  int
}

func (f *fakeBookingService) HoldDate(ctx context.Context, tenantID uuid.UUID, input internalbookings.HoldInput) (*models.Booking, error) {
	f.tenantID = tenantID
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeBookingService) Confirm(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID, paymentRef string) (*models.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookingService) Cancel(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID) error {
	f.cancels++
	f.tenantID = tenantID
	return f.err
}

func (f *fakeBookingService) GetByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	f.tenantID = tenantID
	if f.err != nil {
		return nil, f.err
	}
	return f.booking, nil
}

func (f *fakeBookingService) ListBlocked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	f.tenantID = tenantID
	if f.err != nil {
		return nil, f.err
	}
	return f.blocked, nil
}

func (f *fakeBookingService) ExpireStaleHolds(ctx context.Context) (int64, error) {
	return 0, f.err
}

func testBooking(tenantID uuid.UUID) *models.Booking {
	return &models.Booking{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EventDate:   time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		TimeSlot:    "evening",
		Status:      enums.BookingStatusHeld,
		PackageID:   uuid.New(),
		CustomerRef: "cust-42",
		AmountCents: 99900,
		ExpiresAt:   time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC),
	}
}

func bookingRouter(tenant *models.Tenant, svc internalbookings.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithTenant(r.Context(), tenant)))
		})
	})
	r.Post("/bookings/holds", Hold(svc, nil))
	r.Get("/bookings/{bookingId}", Detail(svc, nil))
	r.Post("/bookings/{bookingId}/cancel", Cancel(svc, nil))
	r.Get("/availability", Availability(svc, nil))
	return r
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestHoldCreatesBooking(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	service := &fakeBookingService{booking: testBooking(tenant.ID)}
	router := bookingRouter(tenant, service)

	body := `{"event_date":"2026-09-12","time_slot":"evening","package_id":"` + service.booking.PackageID.String() + `","customer_ref":"cust-42","amount_cents":99900}`
	req := httptest.NewRequest(http.MethodPost, "/bookings/holds", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.tenantID != tenant.ID {
		t.Fatalf("tenant id must come from the resolved tenant, got %s", service.tenantID)
	}
	if got := service.input.EventDate; !got.Equal(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected event date %s", got)
	}
	if service.input.AmountCents != 99900 {
		t.Fatalf("unexpected amount %d", service.input.AmountCents)
	}

	var resp BookingResponse
	decodeData(t, rec, &resp)
	if resp.ID != service.booking.ID {
		t.Fatalf("unexpected booking id %s", resp.ID)
	}
	if resp.Status != "held" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	if resp.EventDate != "2026-09-12" {
		t.Fatalf("unexpected event date %q", resp.EventDate)
	}
}

func TestHoldValidatesPayload(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	service := &fakeBookingService{}
	router := bookingRouter(tenant, service)

	tests := []struct {
		name string
		body string
	}{
		{"missing event date", `{"package_id":"` + uuid.NewString() + `","customer_ref":"c","amount_cents":100}`},
		{"bad date format", `{"event_date":"12/09/2026","package_id":"` + uuid.NewString() + `","customer_ref":"c","amount_cents":100}`},
		{"bad package id", `{"event_date":"2026-09-12","package_id":"nope","customer_ref":"c","amount_cents":100}`},
		{"zero amount", `{"event_date":"2026-09-12","package_id":"` + uuid.NewString() + `","customer_ref":"c","amount_cents":0}`},
		{"unknown field", `{"event_date":"2026-09-12","package_id":"` + uuid.NewString() + `","customer_ref":"c","amount_cents":100,"tenant_id":"sneaky"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bookings/holds", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
	if service.tenantID != uuid.Nil {
		t.Fatalf("service must not be reached on validation failure")
	}
}

func TestHoldConflictSurfacesAsConflict(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	service := &fakeBookingService{err: pkgerrors.New(pkgerrors.CodeDateUnavailable, "date is no longer available")}
	router := bookingRouter(tenant, service)

	body := `{"event_date":"2026-09-12","package_id":"` + uuid.NewString() + `","customer_ref":"c","amount_cents":100}`
	req := httptest.NewRequest(http.MethodPost, "/bookings/holds", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDetailReturnsBooking(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	service := &fakeBookingService{booking: testBooking(tenant.ID)}
	router := bookingRouter(tenant, service)

	req := httptest.NewRequest(http.MethodGet, "/bookings/"+service.booking.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp BookingResponse
	decodeData(t, rec, &resp)
	if resp.CustomerRef != "cust-42" {
		t.Fatalf("unexpected customer ref %q", resp.CustomerRef)
	}
}

func TestDetailRejectsMalformedID(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	router := bookingRouter(tenant, &fakeBookingService{})

	req := httptest.NewRequest(http.MethodGet, "/bookings/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	service := &fakeBookingService{}
	router := bookingRouter(tenant, service)

	req := httptest.NewRequest(http.MethodPost, "/bookings/"+uuid.NewString()+"/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if service.cancels != 1 {
		t.Fatalf("expected one cancel call, got %d", service.cancels)
	}
	if service.tenantID != tenant.ID {
		t.Fatalf("cancel must be scoped to the resolved tenant")
	}
}

func TestAvailabilityListsBlockedSlots(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	service := &fakeBookingService{blocked: []models.Booking{
		*testBooking(tenant.ID),
	}}
	router := bookingRouter(tenant, service)

	req := httptest.NewRequest(http.MethodGet, "/availability?from=2026-09-01&to=2026-09-30", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Blocked []map[string]string `json:"blocked"`
	}
	decodeData(t, rec, &resp)
	if len(resp.Blocked) != 1 {
		t.Fatalf("expected one blocked slot, got %d", len(resp.Blocked))
	}
	if resp.Blocked[0]["event_date"] != "2026-09-12" || resp.Blocked[0]["time_slot"] != "evening" {
		t.Fatalf("unexpected blocked entry %v", resp.Blocked[0])
	}
}

func TestAvailabilityRequiresRange(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	router := bookingRouter(tenant, &fakeBookingService{})

	req := httptest.NewRequest(http.MethodGet, "/availability?from=2026-09-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a to bound, got %d", rec.Code)
	}
}
