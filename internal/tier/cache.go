package tier

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/logger"
)

// Cache is a size- and TTL-bounded cache of subscription lookups in front of a Fetcher.
//
// The mutex is not held while fetching, so concurrent misses for one key may both
// fetch; the last insert wins.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	seq     uint64

	endpoint string
	ttl      time.Duration
	maxSize  int
	fetcher  Fetcher
	now      func() time.Time
	logger   *logger.Logger
}

type entry struct {
	tier       Tier
	defaulted  bool
	insertedAt time.Time
	seq        uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache for the subscription endpoint under marketplaceURL.
func NewCache(log *logger.Logger, fetcher Fetcher, marketplaceURL string, ttl time.Duration, maxSize int, opts ...Option) *Cache {
	if log == nil {
		log = logger.Production()
	}
	if maxSize < 1 {
		maxSize = 1
	}

	c := &Cache{
		entries:  make(map[string]entry),
		endpoint: strings.TrimRight(marketplaceURL, "/") + constant.SubscriptionPath,
		ttl:      ttl,
		maxSize:  maxSize,
		fetcher:  fetcher,
		now:      time.Now,
		logger:   log,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the subscription URL queried on a miss.
func (c *Cache) Endpoint() string {
	return c.endpoint
}

// Len returns the number of entries, expired ones included until they are read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetTier returns the tier for the caller identified by headers.
func (c *Cache) GetTier(ctx context.Context, headers map[string]string) Tier {
	return c.Lookup(ctx, headers).Tier
}

// Lookup resolves the tier for headers. It never fails: when the subscription service
// cannot be used the result is FREE with Defaulted set, and that result is cached too.
// The fetch ignores ctx cancellation and is bounded by the fetcher's own timeout.
func (c *Cache) Lookup(ctx context.Context, headers map[string]string) Lookup {
	key := cacheKey(c.endpoint, headers)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if now.Sub(e.insertedAt) < c.ttl {
			c.mu.Unlock()
			return Lookup{Tier: e.tier, Defaulted: e.defaulted, Cached: true}
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	tier, err := c.fetcher.FetchTier(context.WithoutCancel(ctx), c.endpoint, headers)
	defaulted := false
	if err != nil {
		c.logger.Warn("Subscription lookup failed, assuming FREE tier", "endpoint", c.endpoint, "error", err)
		tier, defaulted = Free, true
	} else {
		c.logger.Info("Subscription tier resolved", "tier", tier)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.seq++
	c.entries[key] = entry{tier: tier, defaulted: defaulted, insertedAt: now, seq: c.seq}

	return Lookup{Tier: tier, Defaulted: defaulted}
}

func (c *Cache) evictOldestLocked() {
	var (
		oldestKey string
		oldest    entry
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.insertedAt.Before(oldest.insertedAt) ||
			(e.insertedAt.Equal(oldest.insertedAt) && e.seq < oldest.seq) {
			oldestKey, oldest, found = k, e, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

// cacheKey joins the endpoint with header pairs sorted by name.
func cacheKey(endpoint string, headers map[string]string) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, name := range names {
		b.WriteByte(0)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(headers[name])
	}
	return b.String()
}
