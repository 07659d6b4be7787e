package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venuehq/venuehq-backend/api/controllers"
	bookingcontrollers "github.com/venuehq/venuehq-backend/api/controllers/bookings"
	webhookcontrollers "github.com/venuehq/venuehq-backend/api/controllers/webhooks"
	"github.com/venuehq/venuehq-backend/api/middleware"
	internalbookings "github.com/venuehq/venuehq-backend/internal/bookings"
	"github.com/venuehq/venuehq-backend/internal/payments"
	"github.com/venuehq/venuehq-backend/internal/tenants"
	"github.com/venuehq/venuehq-backend/pkg/config"
	"github.com/venuehq/venuehq-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DBPinger controllers.Pinger
	Redis    controllers.Pinger
	Tenants  tenants.Resolver
	Bookings internalbookings.Service
	Payments payments.Service
	// RateLimit backs the per-tenant hold throttle; nil disables it.
	RateLimit middleware.RateLimitStore
}

// NewRouter assembles the API surface. Webhook and health routes resolve
// their own tenancy; everything else goes through the tenant middleware.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.BaseDomain),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.Redis))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments/{tenantSlug}", webhookcontrollers.PaymentWebhook(params.Payments, params.Tenants, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantContext(params.Tenants, logg))

		holdPolicy := middleware.NewHoldRateLimitPolicy(cfg.Booking.HoldRateWindow, cfg.Booking.HoldRateLimit)
		r.Route("/bookings", func(r chi.Router) {
			r.With(middleware.HoldRateLimit(holdPolicy, params.RateLimit, logg)).
				Post("/holds", bookingcontrollers.Hold(params.Bookings, logg))
			r.Get("/{bookingId}", bookingcontrollers.Detail(params.Bookings, logg))
			r.Post("/{bookingId}/cancel", bookingcontrollers.Cancel(params.Bookings, logg))
		})
		r.Get("/availability", bookingcontrollers.Availability(params.Bookings, logg))
	})

	return r
}
