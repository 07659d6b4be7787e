package tenants

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
	pkgerrors "github.com/venuehq/venuehq-backend/pkg/errors"
	pkgredis "github.com/venuehq/venuehq-backend/pkg/redis"
)

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	FindByAPIKeyHash(ctx context.Context, hash string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
}

// Resolver maps inbound request credentials to an active tenant. Client
// supplied tenant identifiers are never trusted; the only inputs are the
// request host and the presented API key.
type Resolver interface {
	ResolveBySubdomain(ctx context.Context, host string) (*models.Tenant, error)
	ResolveByAPIKey(ctx context.Context, rawKey string) (*models.Tenant, error)
	ResolveBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo       repository
	cache      *cache
	baseDomain string
}

// ServiceParams carries the dependencies for the tenant resolver.
type ServiceParams struct {
	Repo       repository
	Cache      pkgredis.TenantCacheStore
	BaseDomain string
}

// NewService builds a tenant resolver. Cache is optional; resolution falls
// through to the database when it is absent.
func NewService(params ServiceParams) (Resolver, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant repository required")
	}
	if params.BaseDomain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "base domain required")
	}
	return &service{
		repo:       params.Repo,
		cache:      newCache(params.Cache),
		baseDomain: strings.ToLower(strings.TrimSuffix(params.BaseDomain, ".")),
	}, nil
}

// HashAPIKey returns the stored digest for a raw API key. Raw keys are never
// persisted or logged.
func HashAPIKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

func (s *service) ResolveBySubdomain(ctx context.Context, host string) (*models.Tenant, error) {
	slug, err := s.subdomainOf(host)
	if err != nil {
		return nil, err
	}
	return s.ResolveBySlug(ctx, slug)
}

func (s *service) ResolveBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")
	}
	if tenant, ok := s.cache.get(ctx, cacheFieldSlug, slug); ok {
		return s.requireActive(tenant)
	}
	tenant, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, resolveErr(err)
	}
	s.cache.put(ctx, cacheFieldSlug, slug, tenant)
	return s.requireActive(tenant)
}

func (s *service) ResolveByAPIKey(ctx context.Context, rawKey string) (*models.Tenant, error) {
	if strings.TrimSpace(rawKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")
	}
	hash := HashAPIKey(rawKey)
	if tenant, ok := s.cache.get(ctx, cacheFieldAPIKey, hash); ok {
		return s.requireActive(tenant)
	}
	tenant, err := s.repo.FindByAPIKeyHash(ctx, hash)
	if err != nil {
		return nil, resolveErr(err)
	}
	s.cache.put(ctx, cacheFieldAPIKey, hash, tenant)
	return s.requireActive(tenant)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, resolveErr(err)
	}
	return tenant, nil
}

// Deactivate flips the tenant off and evicts its cached lookups so the next
// request is rejected. The row itself is preserved.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return resolveErr(err)
	}
	if !tenant.Active {
		return nil
	}
	now := time.Now().UTC()
	tenant.Active = false
	tenant.DeactivatedAt = &now
	if err := s.repo.Update(ctx, tenant); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate tenant")
	}
	s.cache.evict(ctx, tenant)
	return nil
}

func (s *service) requireActive(tenant *models.Tenant) (*models.Tenant, error) {
	if !tenant.Active {
		return nil, pkgerrors.New(pkgerrors.CodeTenantInactive, "tenant is deactivated").
			WithDetails(map[string]any{"tenant_id": tenant.ID.String()})
	}
	return tenant, nil
}

// subdomainOf extracts the routing slug from a request host. The host must
// be a first-level subdomain of the configured base domain.
func (s *service) subdomainOf(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	suffix := "." + s.baseDomain
	if !strings.HasSuffix(host, suffix) {
		return "", pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found").
			WithDetails(map[string]any{"host": host})
	}
	slug := strings.TrimSuffix(host, suffix)
	if slug == "" || strings.Contains(slug, ".") {
		return "", pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found").
			WithDetails(map[string]any{"host": host})
	}
	return slug, nil
}

func resolveErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeTenantNotFound, "tenant not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
}
