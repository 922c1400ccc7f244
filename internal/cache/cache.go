package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tags for cached query results. A write that changes the underlying data
// must invalidate the matching tag; reads check-then-populate.
const (
	TagStoreStats     = "store-stats"
	TagTopSelling     = "top-selling-products"
	TagAdminDashboard = "admin-dashboard"
	TagAdminOrders    = "admin-orders"
	TagAdminProducts  = "admin-products"
	TagAdminUsers     = "admin-users"
)

// UserOrdersTag keys the cached order list of a single user.
func UserOrdersTag(userID string) string {
	return "orders:user:" + userID
}

// Cache is a thin tag-keyed store over redis. A nil *Cache or one without a
// client no-ops on every call.
type Cache struct {
	rdb *redis.Client
}

func New(addr, password string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Cache{rdb: rdb}, nil
}

// Get unmarshals the value cached under tag into dest.
// Returns true only on a hit.
func (c *Cache) Get(ctx context.Context, tag string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, tag).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores value under tag for the given TTL. Marshal and write failures
// are swallowed.
func (c *Cache) Set(ctx context.Context, tag string, value interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, tag, data, ttl)
}

// Invalidate drops the given tags after a mutating write.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) {
	if c == nil || c.rdb == nil || len(tags) == 0 {
		return
	}
	c.rdb.Del(ctx, tags...)
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
