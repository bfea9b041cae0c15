// Wayfarer - Tourism Marketplace Real-Time Messaging and Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfarer

package directory

import (
	"context"
	"time"

	"github.com/tomtom215/wayfarer/internal/cache"
	"github.com/tomtom215/wayfarer/internal/metrics"
	"github.com/tomtom215/wayfarer/internal/models"
)

const cacheLabel = "directory"

// Cached remembers found users for a TTL. Unknown ids are not cached so a
// freshly provisioned account is visible on the next lookup.
type Cached struct {
	next  Directory
	cache *cache.Cache[*models.User]
}

// NewCached wraps next with a TTL cache.
func NewCached(next Directory, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache.New[*models.User](ttl)}
}

// FindUser implements Directory.
func (c *Cached) FindUser(ctx context.Context, id string) (*models.User, error) {
	if user, ok := c.cache.Get(id); ok {
		metrics.CacheHits.WithLabelValues(cacheLabel).Inc()
		return user, nil
	}
	metrics.CacheMisses.WithLabelValues(cacheLabel).Inc()

	user, err := c.next.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(id, user)
	return user, nil
}

// FindUsers implements Directory, fetching only the ids not cached.
func (c *Cached) FindUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	out := make(map[string]*models.User, len(ids))
	var missing []string
	for _, id := range ids {
		if user, ok := c.cache.Get(id); ok {
			out[id] = user
			continue
		}
		missing = append(missing, id)
	}
	metrics.CacheHits.WithLabelValues(cacheLabel).Add(float64(len(ids) - len(missing)))
	metrics.CacheMisses.WithLabelValues(cacheLabel).Add(float64(len(missing)))

	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := c.next.FindUsers(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, user := range fetched {
		c.cache.Set(id, user)
		out[id] = user
	}
	return out, nil
}

// Invalidate drops id from the cache.
func (c *Cached) Invalidate(id string) {
	c.cache.Delete(id)
}

// State reports the breaker state of the wrapped directory, or "" when it
// has no breaker.
func (c *Cached) State() string {
	if br, ok := c.next.(interface{ State() string }); ok {
		return br.State()
	}
	return ""
}

// Close stops the cache sweep.
func (c *Cached) Close() {
	c.cache.Close()
}

var _ Directory = (*Cached)(nil)
