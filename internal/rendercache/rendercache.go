// Package rendercache caches the rendered map-canvas fragment in Redis.
// Coordinates only change when a brand-new (lat, long) pair is seeded, so
// the cached fragment stays valid until the store reports one; the
// scoreboard table is always rendered live.
package rendercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// CanvasKey derives the cache key from the connection URL. Hashing keeps
// the secret-bearing URL out of Redis.
func CanvasKey(dbURL string) string {
	return fmt.Sprintf("visitmap:canvas:%016x", xxhash.Sum64String(dbURL))
}

type Cache struct {
	rdb       *redis.Client
	key       string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger
}

func New(ctx context.Context, addr, dbURL string, ttl, opTimeout time.Duration, logger *slog.Logger) (*Cache, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{
		rdb:       rdb,
		key:       CanvasKey(dbURL),
		ttl:       ttl,
		opTimeout: opTimeout,
		logger:    logger,
	}, nil
}

func (c *Cache) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// Get returns the cached canvas fragment, or ok=false on a miss. Cache
// faults are logged and reported as misses so the caller falls through
// to a live render.
func (c *Cache) Get(ctx context.Context) (string, bool) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	v, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "canvas cache read failed", "err", err)
		return "", false
	}
	return v, true
}

func (c *Cache) Set(ctx context.Context, canvas string) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if err := c.rdb.Set(ctx, c.key, canvas, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "canvas cache write failed", "err", err)
	}
}

// Invalidate drops the cached fragment. Called whenever a new coordinate
// row lands.
func (c *Cache) Invalidate(ctx context.Context) {
	ctx, cancel := c.opCtx(ctx)
	defer cancel()

	if err := c.rdb.Del(ctx, c.key).Err(); err != nil {
		c.logger.WarnContext(ctx, "canvas cache invalidation failed", "err", err)
	}
}

func (c *Cache) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}
