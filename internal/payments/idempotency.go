package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/venuehq/venuehq-backend/pkg/redis"
)

const idempotencyScope = "payments"

// IdempotencyGuard short-circuits webhook redeliveries through Redis before
// they reach the database. It is an optimization only; the unique index on
// payment events remains the durable arbiter.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds a guard with the given redelivery window.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark reports whether the event was already seen within the window,
// marking it as seen otherwise. The key is tenant scoped so identical event
// ids from different processors never collide.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, tenantID, eventID string) (bool, error) {
	if tenantID == "" || eventID == "" {
		return false, errors.New("tenant id and event id are required")
	}
	key := g.store.IdempotencyKey(idempotencyScope, tenantID+":"+eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete clears the seen mark so a failed delivery can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, tenantID, eventID string) error {
	if tenantID == "" || eventID == "" {
		return errors.New("tenant id and event id are required")
	}
	key := g.store.IdempotencyKey(idempotencyScope, tenantID+":"+eventID)
	return g.store.Del(ctx, key)
}
