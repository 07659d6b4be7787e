package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/venuehq/venuehq-backend/api/responses"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	"github.com/venuehq/venuehq-backend/pkg/logger"
)

// RateLimitStore exposes the fixed-window counter ops the throttle needs.
type RateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	CounterKey(name string) string
}

// HoldRateLimitPolicy defines the per-tenant throttle for hold attempts.
type HoldRateLimitPolicy struct {
	window time.Duration
	limit  int
}

// NewHoldRateLimitPolicy builds a policy with the supplied window and limit.
func NewHoldRateLimitPolicy(window time.Duration, limit int) HoldRateLimitPolicy {
	return HoldRateLimitPolicy{window: window, limit: limit}
}

func (p HoldRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

// HoldRateLimit caps how many hold attempts each tenant's storefront can
// issue per window. Must run after TenantContext so the counter is scoped
// to the resolved tenant rather than the caller's address.
func HoldRateLimit(policy HoldRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tenant := TenantFromContext(ctx)
			if tenant == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := store.CounterKey("holds:" + tenant.ID.String())
			count, err := store.IncrWithTTL(ctx, key, policy.window)
			if err != nil {
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(policy.limit) {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          policy.limit,
						"window_seconds": int(policy.window.Seconds()),
					})
					logg.Warn(logCtx, "bookings.hold.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "hold rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
