package tenants

import (
	"context"
	"encoding/json"
	"time"

	pkgredis "github.com/venuehq/venuehq-backend/pkg/redis"

	"github.com/venuehq/venuehq-backend/pkg/db/models"
)

// cacheTTL bounds how stale a resolved tenant can be. Deactivation takes at
// most this long to propagate to cached lookups unless the entry is evicted
// explicitly.
const cacheTTL = 5 * time.Minute

const (
	cacheFieldSlug   = "slug"
	cacheFieldAPIKey = "apikey"
)

// cache is a read-through layer over the tenant repository backed by Redis.
// All methods degrade to a miss on backend errors; resolution never fails
// because the cache is down.
type cache struct {
	store pkgredis.TenantCacheStore
}

func newCache(store pkgredis.TenantCacheStore) *cache {
	return &cache{store: store}
}

func (c *cache) get(ctx context.Context, field, key string) (*models.Tenant, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.store.TenantKey(field, key))
	if err != nil {
		return nil, false
	}
	var tenant models.Tenant
	if err := json.Unmarshal([]byte(raw), &tenant); err != nil {
		return nil, false
	}
	return &tenant, true
}

func (c *cache) put(ctx context.Context, field, key string, tenant *models.Tenant) {
	if c == nil || c.store == nil || tenant == nil {
		return
	}
	raw, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, c.store.TenantKey(field, key), string(raw), cacheTTL)
}

// evict drops every cached lookup pointing at the tenant. Called on update
// so deactivation and secret rotation take effect immediately.
func (c *cache) evict(ctx context.Context, tenant *models.Tenant) {
	if c == nil || c.store == nil || tenant == nil {
		return
	}
	keys := []string{c.store.TenantKey(cacheFieldSlug, tenant.Slug)}
	if tenant.APIKeyHash != nil {
		keys = append(keys, c.store.TenantKey(cacheFieldAPIKey, *tenant.APIKeyHash))
	}
	_ = c.store.Del(ctx, keys...)
}
