package users

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/rbac"
)

// DefaultCacheTTL bounds how long a role or activation change can go unseen
// by a replica that did not perform it.
const DefaultCacheTTL = 5 * time.Second

// CachedStore caches GetByID results in a small expiring LRU. Every mutation
// through the store evicts the affected profile.
type CachedStore struct {
	Store
	cache   *lru.LRU[string, Profile]
	metrics *observability.Metrics
}

// NewCachedStore wraps next. size <= 0 defaults to 1024 entries and ttl <= 0
// to DefaultCacheTTL. metrics may be nil.
func NewCachedStore(next Store, size int, ttl time.Duration, metrics *observability.Metrics) *CachedStore {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		Store:   next,
		cache:   lru.NewLRU[string, Profile](size, nil, ttl),
		metrics: metrics,
	}
}

// GetByID returns a copy of the cached profile or loads it.
func (c *CachedStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	if p, ok := c.cache.Get(id); ok {
		c.record("hit")
		return &p, nil
	}
	c.record("miss")

	p, err := c.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, *p)
	return p, nil
}

func (c *CachedStore) record(result string) {
	if c.metrics != nil {
		c.metrics.ProfileCacheLookups.WithLabelValues(result).Inc()
	}
}

// Invalidate drops id from the cache.
func (c *CachedStore) Invalidate(id string) {
	c.cache.Remove(id)
}

func (c *CachedStore) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	defer c.Invalidate(id)
	return c.Store.UpdateRole(ctx, id, role)
}

func (c *CachedStore) UpdateOrg(ctx context.Context, id, orgID string) error {
	defer c.Invalidate(id)
	return c.Store.UpdateOrg(ctx, id, orgID)
}

func (c *CachedStore) SetActive(ctx context.Context, id string, active bool) error {
	defer c.Invalidate(id)
	return c.Store.SetActive(ctx, id, active)
}

func (c *CachedStore) SetApproval(ctx context.Context, id string, status ApprovalStatus) error {
	defer c.Invalidate(id)
	return c.Store.SetApproval(ctx, id, status)
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	defer c.Invalidate(id)
	return c.Store.Delete(ctx, id)
}
