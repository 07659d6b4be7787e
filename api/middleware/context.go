package middleware

import (
	"context"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
)

type contextKey string

const ctxTenant contextKey = "tenant"

// WithTenant injects the resolved tenant into the context for downstream
// handlers.
func WithTenant(ctx context.Context, tenant *models.Tenant) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTenant, tenant)
}

// TenantFromContext returns the tenant resolved by the tenant middleware,
// or nil when the request carried none.
func TenantFromContext(ctx context.Context) *models.Tenant {
	if ctx == nil {
		return nil
	}
	if tenant, ok := ctx.Value(ctxTenant).(*models.Tenant); ok {
		return tenant
	}
	return nil
}
