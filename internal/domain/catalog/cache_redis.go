package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/wellcheck/wellcheck/pkg/scoring"
)

// RedisClient is the subset of *redis.Client used by the cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cached is a read-through Redis cache in front of a Source. Concurrent
// misses for one code share a single source fetch. Redis failures are
// logged and the source is used directly.
type Cached struct {
	source Source
	client RedisClient
	ttl    time.Duration
	log    zerolog.Logger
	group  singleflight.Group
}

func NewCached(source Source, client RedisClient, ttl time.Duration, log zerolog.Logger) *Cached {
	return &Cached{source: source, client: client, ttl: ttl, log: log}
}

func cacheKey(code string) string {
	return fmt.Sprintf("catalog:test:%s", code)
}

func (c *Cached) GetTestDefinition(ctx context.Context, code string) (*scoring.TestDefinition, error) {
	if def, ok := c.read(ctx, code); ok {
		return def, nil
	}

	v, err, _ := c.group.Do(code, func() (interface{}, error) {
		def, err := c.source.GetTestDefinition(ctx, code)
		if err != nil {
			return nil, err
		}
		c.write(ctx, def)
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*scoring.TestDefinition).Clone(), nil
}

func (c *Cached) read(ctx context.Context, code string) (*scoring.TestDefinition, bool) {
	data, err := c.client.Get(ctx, cacheKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("code", code).Msg("catalog cache read failed")
		return nil, false
	}
	var def scoring.TestDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		c.log.Warn().Err(err).Str("code", code).Msg("catalog cache entry corrupt")
		return nil, false
	}
	return &def, true
}

func (c *Cached) write(ctx context.Context, def *scoring.TestDefinition) {
	data, err := json.Marshal(def)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(def.Code), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("code", def.Code).Msg("catalog cache write failed")
	}
}

// List is not cached.
func (c *Cached) List(ctx context.Context) ([]*scoring.TestDefinition, error) {
	return c.source.List(ctx)
}

// Invalidate drops the cached copy of code.
func (c *Cached) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, cacheKey(code)).Err()
}
