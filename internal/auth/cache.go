// Package auth caches per-principal authorization state derived from the set
// of clusters a caller can see.
package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/clusters"
	"github.com/imamik/chainfleet/internal/errdefs"
)

// DefaultTTL bounds how long a cached grant is trusted.
const DefaultTTL = 5 * time.Minute

// Grant is the authorization state resolved for one principal.
type Grant struct {
	Principal  string
	Consortium string
	// Clusters are the cluster ids visible to the principal.
	Clusters  []string
	ExpiresAt time.Time
}

// Invalidator drops cached authorization state for a principal.
type Invalidator interface {
	Evict(ctx context.Context, principal string)
}

// ClusterLister lists the clusters of a consortium.
type ClusterLister interface {
	List(ctx context.Context, consortiumID string) ([]*clusters.Resource, error)
}

// TokenCache is a TTL cache of grants keyed by principal.
type TokenCache struct {
	grants   *ttlcache.Cache[string, Grant]
	clusters ClusterLister
}

var _ Invalidator = (*TokenCache)(nil)

// Option configures a TokenCache.
type Option func(*TokenCache)

// WithClusterLister sets where Resolve loads grants from on a miss.
func WithClusterLister(l ClusterLister) Option {
	return func(c *TokenCache) {
		c.clusters = l
	}
}

// NewTokenCache creates a cache; ttl <= 0 selects DefaultTTL.
func NewTokenCache(ttl time.Duration, opts ...Option) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &TokenCache{
		grants: ttlcache.New(
			ttlcache.WithTTL[string, Grant](ttl),
			ttlcache.WithDisableTouchOnHit[string, Grant](),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drops expired grants in the background until ctx is done.
func (c *TokenCache) Run(ctx context.Context) {
	go c.grants.Start()
	<-ctx.Done()
	c.grants.Stop()
}

// Put caches g, stamping its expiry.
func (c *TokenCache) Put(g Grant) Grant {
	g.Clusters = slices.Clone(g.Clusters)
	item := c.grants.Set(g.Principal, g, ttlcache.DefaultTTL)
	g.ExpiresAt = item.ExpiresAt()
	g.Clusters = slices.Clone(g.Clusters)
	return g
}

// Get returns the live grant for principal.
func (c *TokenCache) Get(principal string) (Grant, bool) {
	item := c.grants.Get(principal)
	if item == nil {
		return Grant{}, false
	}
	g := item.Value()
	g.Clusters = slices.Clone(g.Clusters)
	g.ExpiresAt = item.ExpiresAt()
	return g, true
}

// Resolve returns the grant of principal within consortium, loading and
// caching it on a miss. An anonymous principal is resolved but not cached.
func (c *TokenCache) Resolve(ctx context.Context, principal, consortium string) (Grant, error) {
	if strings.TrimSpace(consortium) == "" {
		return Grant{}, errdefs.Validationf("consortium id is required")
	}
	if principal != "" {
		if g, ok := c.Get(principal); ok && g.Consortium == consortium {
			grantLookupsTotal.WithLabelValues(lookupHit).Inc()
			return g, nil
		}
	}
	grantLookupsTotal.WithLabelValues(lookupMiss).Inc()

	if c.clusters == nil {
		return Grant{}, fmt.Errorf("no cluster source configured to resolve grants")
	}
	list, err := c.clusters.List(ctx, consortium)
	if err != nil {
		return Grant{}, fmt.Errorf("failed to resolve grant of %q in consortium %s: %w", principal, consortium, err)
	}
	ids := make([]string, len(list))
	for i, r := range list {
		ids[i] = r.ID
	}

	g := Grant{Principal: principal, Consortium: consortium, Clusters: ids}
	if principal == "" {
		return g, nil
	}
	g = c.Put(g)
	log.FromContext(ctx).V(1).Info("cached grant", "principal", principal, "consortium", consortium, "clusters", len(ids))
	return g, nil
}

// Evict implements Invalidator. An empty principal clears the whole cache.
func (c *TokenCache) Evict(ctx context.Context, principal string) {
	logger := log.FromContext(ctx)
	if principal == "" {
		n := c.grants.Len()
		c.grants.DeleteAll()
		logger.V(1).Info("evicted all cached grants", "count", n)
		return
	}
	if c.grants.Get(principal) != nil {
		c.grants.Delete(principal)
		logger.V(1).Info("evicted cached grant", "principal", principal)
	}
}

// Len returns the number of cached grants.
func (c *TokenCache) Len() int {
	return c.grants.Len()
}
