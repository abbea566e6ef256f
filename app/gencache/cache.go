package gencache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/ilyakom/newsriver/app/database"
)

// ComputeFunc produces the response for a cache miss. It typically wraps one
// LLM generation call.
type ComputeFunc func(ctx context.Context) (string, error)

// Cache is the content-addressed generation cache: identical requests are
// computed once and served from storage forever after. Entries never expire
// and are never overwritten.
//
// Concurrent misses on the same key collapse into a single computation; the
// losers wait and share the winner's result. Compute errors propagate to
// every waiter and leave the cache untouched, so the next request retries.
type Cache struct {
	store  database.CacheRepository
	shared *SharedCache // nil unless Redis is configured
	group  singleflight.Group
}

func NewCache(store database.CacheRepository, shared *SharedCache) *Cache {
	return &Cache{store: store, shared: shared}
}

// GetOrCompute returns the cached response for the request, computing and
// storing it on a miss. The second return reports whether the response came
// from cache.
func (c *Cache) GetOrCompute(ctx context.Context, operation, model string, params map[string]any, compute ComputeFunc) (string, bool, error) {
	key := Key(operation, model, params)

	if response, ok, err := c.lookup(ctx, key); err != nil {
		return "", false, err
	} else if ok {
		return response, true, nil
	}

	response, err, shared := c.group.Do(key, func() (any, error) {
		// Another waiter may have stored the entry between our miss and
		// winning the flight.
		if response, ok, err := c.lookup(ctx, key); err != nil {
			return "", err
		} else if ok {
			return response, nil
		}

		response, err := compute(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to compute generation: %w", err)
		}

		if err := c.persist(ctx, key, operation, model, params, response); err != nil {
			return "", err
		}

		return response, nil
	})
	if err != nil {
		return "", false, err
	}

	// Waiters that joined an in-flight computation count as cache hits: the
	// response was not computed on their behalf.
	return response.(string), shared, nil
}

func (c *Cache) lookup(ctx context.Context, key string) (string, bool, error) {
	entry, err := c.store.GetEntry(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up generation cache: %w", err)
	}
	if entry != nil {
		return entry.Response, true, nil
	}

	if c.shared == nil {
		return "", false, nil
	}

	response, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		// Redis is an accelerator, not the source of truth.
		slog.Warn("Shared cache read failed", "error", err)
		return "", false, nil
	}
	return response, ok, nil
}

func (c *Cache) persist(ctx context.Context, key, operation, model string, params map[string]any, response string) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal generation params: %w", err)
	}

	if _, err := c.store.InsertEntry(ctx, database.CacheEntry{
		CacheKey:  key,
		Operation: operation,
		Model:     model,
		Params:    rawParams,
		Response:  response,
	}); err != nil {
		return fmt.Errorf("failed to store generation: %w", err)
	}

	if c.shared != nil {
		if err := c.shared.Set(ctx, key, response); err != nil {
			slog.Warn("Shared cache write failed", "error", err)
		}
	}

	return nil
}
