package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
)

type fakeResolver struct {
	tenant        *models.Tenant
	err           error
	subdomainHost string
	apiKey        string
}

func (f *fakeResolver) ResolveBySubdomain(ctx context.Context, host string) (*models.Tenant, error) {
	f.subdomainHost = host
	if f.err != nil {
		return nil, f.err
	}
	return f.tenant, nil
}

func (f *fakeResolver) ResolveByAPIKey(ctx context.Context, rawKey string) (*models.Tenant, error) {
	f.apiKey = rawKey
	if f.err != nil {
		return nil, f.err
	}
	return f.tenant, nil
}

func (f *fakeResolver) ResolveBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenant, nil
}

func (f *fakeResolver) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return f.tenant, f.err
}

func (f *fakeResolver) Deactivate(ctx context.Context, id uuid.UUID) error {
	return f.err
}

func TestTenantContextResolvesFromHost(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	resolver := &fakeResolver{tenant: tenant}

	var seen *models.Tenant
	handler := TenantContext(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
	req.Host = "acme.venuehq.app"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if resolver.subdomainHost != "acme.venuehq.app" {
		t.Fatalf("expected host passed through, got %q", resolver.subdomainHost)
	}
	if seen == nil || seen.ID != tenant.ID {
		t.Fatalf("expected tenant on request context, got %+v", seen)
	}
}

func TestTenantContextPrefersAPIKey(t *testing.T) {
	tenant := &models.Tenant{ID: uuid.New(), Slug: "acme", Active: true}
	resolver := &fakeResolver{tenant: tenant}

	handler := TenantContext(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
	req.Host = "unrelated.example.com"
	req.Header.Set("X-API-Key", "vhq_raw_key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resolver.apiKey != "vhq_raw_key" {
		t.Fatalf("expected API key resolution, got key=%q host=%q", resolver.apiKey, resolver.subdomainHost)
	}
	if resolver.subdomainHost != "" {
		t.Fatalf("host resolution should not run when an API key is presented")
	}
}

func TestTenantContextRejectsUnresolvedTenant(t *testing.T) {
	resolver := &fakeResolver{err: pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")}

	called := false
	handler := TenantContext(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
	req.Host = "ghost.venuehq.app"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler must not run without a resolved tenant")
	}
}

func TestTenantContextRejectsInactiveTenant(t *testing.T) {
	resolver := &fakeResolver{err: pkgerrors.New(pkgerrors.CodeTenantInactive, "tenant is not active")}

	handler := TenantContext(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an inactive tenant")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
	req.Host = "dormant.venuehq.app"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
