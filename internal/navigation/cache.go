package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-hq/meridian/internal/tenancy"
)

const generationKey = "navigation:generation"

// CacheMetrics receives cache and build observations. Implemented by
// observability.Metrics; nil disables instrumentation.
type CacheMetrics interface {
	NavCacheHit()
	NavCacheMiss()
	ObserveTreeBuild(seconds float64)
}

// ResolutionCache memoizes resolved trees per (subject, context) in Redis
// under a short TTL.
//
// Invalidation bumps a generation counter embedded in every key, so one INCR
// atomically retires all prior entries — readers racing an invalidation see
// either the complete old tree or the complete new one, never a mix.
// Cold keys are computed through a single-flight group: concurrent callers
// share one computation, and a caller that disconnects abandons its wait
// without cancelling the computation the other waiters depend on.
type ResolutionCache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics CacheMetrics
	group   singleflight.Group
}

// NewResolutionCache builds ResolutionCache instance. A nil client degrades
// to computing every request directly.
func NewResolutionCache(client *redis.Client, ttl time.Duration, logger *slog.Logger, metrics CacheMetrics) *ResolutionCache {
	return &ResolutionCache{client: client, ttl: ttl, logger: logger, metrics: metrics}
}

// GetOrBuild returns the cached tree for (subject, context) or computes it.
// Redis outages degrade to a direct build; build failures are never cached.
func (c *ResolutionCache) GetOrBuild(ctx context.Context, subjectID int64, tctx tenancy.Context, build func(context.Context) (*ResolvedTree, error)) (*ResolvedTree, error) {
	if c == nil || c.client == nil {
		return c.observedBuild(ctx, build)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		c.warn("cache generation", err)
		return c.observedBuild(ctx, build)
	}
	key := c.key(gen, subjectID, tctx)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var tree ResolvedTree
		if err := json.Unmarshal(payload, &tree); err == nil {
			if c.metrics != nil {
				c.metrics.NavCacheHit()
			}
			return &tree, nil
		}
		c.warn("cache decode", err)
	} else if !errors.Is(err, redis.Nil) {
		c.warn("cache read", err)
	}
	if c.metrics != nil {
		c.metrics.NavCacheMiss()
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		// Detached from the first caller's context: waiters sharing this
		// computation must not lose it when that caller disconnects.
		buildCtx := context.WithoutCancel(ctx)
		tree, err := c.observedBuild(buildCtx, build)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(tree); err != nil {
			c.warn("cache encode", err)
		} else if err := c.client.Set(buildCtx, key, data, c.ttl).Err(); err != nil {
			c.warn("cache write", err)
		}
		return tree, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ResolvedTree), nil
	}
}

// Invalidate retires every cached resolution by bumping the generation.
// Called on any mutation to roles, permissions, assignments or menu nodes.
func (c *ResolutionCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *ResolutionCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, generationKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return gen, nil
}

func (c *ResolutionCache) key(gen, subjectID int64, tctx tenancy.Context) string {
	return fmt.Sprintf("navigation:tree:%d:%d:%s", gen, subjectID, tctx.Normalize())
}

func (c *ResolutionCache) observedBuild(ctx context.Context, build func(context.Context) (*ResolvedTree, error)) (*ResolvedTree, error) {
	start := time.Now()
	tree, err := build(ctx)
	if err == nil && c != nil && c.metrics != nil {
		c.metrics.ObserveTreeBuild(time.Since(start).Seconds())
	}
	return tree, err
}

func (c *ResolutionCache) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.Any("error", err))
	}
}
