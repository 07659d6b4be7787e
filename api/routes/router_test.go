package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	internalbookings "github.com/venuehq/venuehq-backend/internal/bookings"
	"github.com/venuehq/venuehq-backend/internal/payments"
	"github.com/venuehq/venuehq-backend/pkg/config"
	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/enums"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	"github.com/venuehq/venuehq-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubResolver struct {
	tenant *models.Tenant
}

func (s *stubResolver) ResolveBySubdomain(ctx context.Context, host string) (*models.Tenant, error) {
	if s.tenant == nil || !strings.HasPrefix(host, s.tenant.Slug+".") {
		return nil, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")
	}
	return s.tenant, nil
}

func (s *stubResolver) ResolveByAPIKey(ctx context.Context, rawKey string) (*models.Tenant, error) {
	if s.tenant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")
	}
	return s.tenant, nil
}

func (s *stubResolver) ResolveBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if s.tenant == nil || slug != s.tenant.Slug {
		return nil, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")
	}
	return s.tenant, nil
}

func (s *stubResolver) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.tenant, nil
}

func (s *stubResolver) Deactivate(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubBookingService struct {
	listCalls int
}

func (s *stubBookingService) HoldDate(ctx context.Context, tenantID uuid.UUID, input internalbookings.HoldInput) (*models.Booking, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDateUnavailable, "date is no longer available")
}

func (s *stubBookingService) Confirm(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID, paymentRef string) (*models.Booking, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
}

func (s *stubBookingService) Cancel(ctx context.Context, tx *gorm.DB, tenantID, bookingID uuid.UUID) error {
	return nil
}

func (s *stubBookingService) GetByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
}

func (s *stubBookingService) ListBlocked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]models.Booking, error) {
	s.listCalls++
	return nil, nil
}

func (s *stubBookingService) ExpireStaleHolds(ctx context.Context) (int64, error) {
	return 0, nil
}

type stubPaymentService struct {
	calls int
}

func (s *stubPaymentService) Process(ctx context.Context, tenant *models.Tenant, payload []byte, signature string) (*payments.Outcome, error) {
	s.calls++
	return &payments.Outcome{Status: enums.PaymentEventStatusProcessed}, nil
}

func (s *stubPaymentService) PruneTerminalEvents(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func testRouter(t *testing.T, dbErr error) (http.Handler, *stubBookingService, *stubPaymentService) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.BaseDomain = "venuehq.app"

	bookingService := &stubBookingService{}
	paymentService := &stubPaymentService{}
	resolver := &stubResolver{tenant: &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}}

	router := NewRouter(RouterParams{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		DBPinger: stubPinger{err: dbErr},
		Redis:    stubPinger{},
		Tenants:  resolver,
		Bookings: bookingService,
		Payments: paymentService,
	})
	return router, bookingService, paymentService
}

type stubRateStore struct {
	counts map[string]int64
}

func (s *stubRateStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubRateStore) CounterKey(name string) string {
	return "vhq:counter:" + name
}

func TestRouterThrottlesHoldAttempts(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.BaseDomain = "venuehq.app"
	cfg.Booking.HoldRateLimit = 1
	cfg.Booking.HoldRateWindow = time.Minute

	router := NewRouter(RouterParams{
		Config:    cfg,
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		DBPinger:  stubPinger{},
		Redis:     stubPinger{},
		Tenants:   &stubResolver{tenant: &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}},
		Bookings:  &stubBookingService{},
		Payments:  &stubPaymentService{},
		RateLimit: &stubRateStore{},
	})

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/holds", strings.NewReader(`{}`))
		req.Host = "acme.venuehq.app"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// The first attempt reaches the handler; payload validation rejects it.
	if rec := post(); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 under the limit, got %d", rec.Code)
	}
	if rec := post(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
}

func TestRouterHealthEndpoints(t *testing.T) {
	router, _, _ := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-VenueHQ-Env") != "test" {
		t.Fatalf("live: missing env header")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}
}

func TestRouterReadyFailsWhenDatabaseDown(t *testing.T) {
	router, _, _ := testRouter(t, context.DeadlineExceeded)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database ping fails, got %d", rec.Code)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router, _, _ := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics endpoint, got %d", rec.Code)
	}
}

func TestRouterWebhookBypassesTenantMiddleware(t *testing.T) {
	router, _, paymentService := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments/acme", strings.NewReader(`{}`))
	req.Host = "payments.example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if paymentService.calls != 1 {
		t.Fatalf("expected payment service invoked once, got %d", paymentService.calls)
	}
}

func TestRouterBookingRoutesRequireTenant(t *testing.T) {
	router, bookingService, _ := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability?from=2026-09-01&to=2026-09-30", nil)
	req.Host = "unknown.venuehq.app"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unresolved tenant, got %d", rec.Code)
	}
	if bookingService.listCalls != 0 {
		t.Fatalf("handler must not run without a tenant")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/availability?from=2026-09-01&to=2026-09-30", nil)
	req.Host = "acme.venuehq.app"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for resolved tenant, got %d (%s)", rec.Code, rec.Body.String())
	}
	if bookingService.listCalls != 1 {
		t.Fatalf("expected availability handler to run once, got %d", bookingService.listCalls)
	}
}
