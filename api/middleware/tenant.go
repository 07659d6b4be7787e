package middleware

import (
	"net/http"
	"strings"

	"github.com/venuehq/venuehq-backend/api/responses"
	"github.com/venuehq/venuehq-backend/internal/tenants"
	"github.com/venuehq/venuehq-backend/pkg/db/models"
	"github.com/venuehq/venuehq-backend/pkg/logger"
)

const apiKeyHeader = "X-API-Key"

// TenantContext resolves the tenant for every request from the presented
// API key or, failing that, the request host. The client never names its
// tenant directly; requests that resolve to no active tenant are rejected
// before any handler runs.
func TenantContext(resolver tenants.Resolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			resolved, err := resolveTenant(r, resolver)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithTenant(ctx, resolved)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, resolved.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveTenant(r *http.Request, resolver tenants.Resolver) (*models.Tenant, error) {
	if rawKey := strings.TrimSpace(r.Header.Get(apiKeyHeader)); rawKey != "" {
		return resolver.ResolveByAPIKey(r.Context(), rawKey)
	}
	return resolver.ResolveBySubdomain(r.Context(), r.Host)
}
