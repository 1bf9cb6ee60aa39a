package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/order-fulfillment/internal/catalog/application"
	"github.com/dmehra2102/order-fulfillment/internal/catalog/domain"
)

// Cache is a read-through decorator over a catalog Reader. Misses and errors of the
// underlying reader are never cached; a failing Redis only costs the cache.
type Cache struct {
	log     *slog.Logger
	rdb     *redis.Client
	next    application.Reader
	ttl     time.Duration
	service string
}

func NewCache(log *slog.Logger, rdb *redis.Client, next application.Reader, service string, ttl time.Duration) *Cache {
	return &Cache{log: log, rdb: rdb, next: next, ttl: ttl, service: service}
}

func (c *Cache) key(kind, id string) string {
	return fmt.Sprintf("%s:catalog:%s:%s", c.service, kind, id)
}

func (c *Cache) Customer(ctx context.Context, id string) (domain.Customer, error) {
	return readThrough(ctx, c, c.key("customer", id), func() (domain.Customer, error) {
		return c.next.Customer(ctx, id)
	})
}

func (c *Cache) Product(ctx context.Context, id string) (domain.Product, error) {
	return readThrough(ctx, c, c.key("product", id), func() (domain.Product, error) {
		return c.next.Product(ctx, id)
	})
}

func (c *Cache) Users(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return readThrough(ctx, c, c.key("users", string(role)), func() ([]domain.User, error) {
		return c.next.Users(ctx, role)
	})
}

func (c *Cache) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return readThrough(ctx, c, c.key("menu", "all"), func() ([]domain.MenuItem, error) {
		return c.next.MenuItems(ctx)
	})
}

// Invalidate drops a cached entry, e.g. after the console edits a product.
func (c *Cache) Invalidate(ctx context.Context, kind, id string) error {
	return c.rdb.Del(ctx, c.key(kind, id)).Err()
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.log.WarnContext(ctx, "catalog cache entry unreadable", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "catalog cache get failed", "key", key, "err", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.WarnContext(ctx, "catalog cache set failed", "key", key, "err", err)
		}
	}
	return v, nil
}
