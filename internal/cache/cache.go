package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a small JSON cache over redis. A nil client disables caching,
// which keeps it harmless in tests that do not wire redis.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

// GetJSON loads and decodes a cached value. The bool reports a hit.
func (c Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c.R == nil {
		return false, nil
	}
	raw, err := c.R.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores an encoded value with the cache TTL.
func (c Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c.R == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, raw, c.TTL).Err()
}

// Invalidate drops cached keys. Missing keys are not an error.
func (c Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c.R == nil || len(keys) == 0 {
		return nil
	}
	return c.R.Del(ctx, keys...).Err()
}

// KeyCatalogList is the per-owner product list key.
func KeyCatalogList(ownerID uuid.UUID) string {
	return "catalog:" + ownerID.String()
}

// KeyDashboard is the per-owner, per-period dashboard stats key.
func KeyDashboard(ownerID uuid.UUID, period string) string {
	return "dashboard:" + ownerID.String() + ":" + period
}

// DashboardKeys lists every period key for an owner, for invalidation after
// a new order.
func DashboardKeys(ownerID uuid.UUID) []string {
	periods := []string{"day", "week", "month", "year"}
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = KeyDashboard(ownerID, p)
	}
	return keys
}
