// Package listing provides the paginated listing cache: sequentially fetched
// continuation-token pages per (connection, bucket, prefix) scope, flattened
// for display, and invalidated whenever a transfer or CLI command mutates
// the bucket.
package listing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/baulhq/baul/internal/constants"
	"github.com/baulhq/baul/internal/events"
	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/logging"
	"github.com/baulhq/baul/internal/models"
)

// Resolver maps a connection id to a live gateway client.
// *gateway.Registry satisfies this.
type Resolver interface {
	Open(connectionID string) (gateway.Gateway, error)
}

// Scope identifies one cached listing: a prefix within a bucket on a
// connection. Different prefixes of the same bucket are independent scopes.
type Scope struct {
	ConnectionID string
	Bucket       string
	Prefix       string
}

// Flattened is the merged view of every page fetched so far in a scope.
// Prefixes are deduplicated; HasMore reflects the truncation flag of the
// last fetched page.
type Flattened struct {
	Entries  []models.ObjectEntry
	Prefixes []string
	HasMore  bool
}

// scopeState holds the accumulated pages of one scope.
//
// fetchMu serializes gateway fetches for the scope, which keeps the
// continuation-token chain strictly sequential. The cache-wide mutex only
// guards the fields themselves and is never held across a gateway call.
type scopeState struct {
	fetchMu sync.Mutex

	pages      []*models.ListingPage
	prefixSeen map[string]bool
	nextToken  string
	hasMore    bool
	generation uint64
}

// Cache accumulates listing pages per scope. Safe for concurrent use;
// fetches for different scopes proceed in parallel.
//
// Invalidation bumps a per-scope generation counter. A fetch that started
// before an invalidation still returns its page to the caller, but the
// stale result is never merged into the cache, so the next page-0 fetch
// starts a fresh token chain.
type Cache struct {
	mu       sync.Mutex
	scopes   map[Scope]*scopeState
	gateways Resolver
	bus      *events.Bus
	logger   *logging.Logger
	pageSize int32
}

// NewCache creates an empty cache resolving gateways through the given
// resolver. A nil bus is allowed. pageSize <= 0 selects the default.
func NewCache(gateways Resolver, bus *events.Bus, pageSize int32) *Cache {
	if pageSize <= 0 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return &Cache{
		scopes:   make(map[Scope]*scopeState),
		gateways: gateways,
		bus:      bus,
		logger:   logging.NewLogger("listing"),
		pageSize: pageSize,
	}
}

func (c *Cache) scope(s Scope) *scopeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.scopes[s]
	if !ok {
		st = &scopeState{prefixSeen: make(map[string]bool)}
		c.scopes[s] = st
	}
	return st
}

// FetchPage returns page pageIndex of the scope, fetching it (and any
// earlier pages not yet cached) from the gateway as needed. Page 0 starts
// the continuation-token chain; page N's fetch uses the token returned by
// page N-1, so pages are always fetched in order.
func (c *Cache) FetchPage(ctx context.Context, s Scope, pageIndex int) (*models.ListingPage, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("page index %d out of range", pageIndex)
	}

	st := c.scope(s)
	st.fetchMu.Lock()
	defer st.fetchMu.Unlock()

	c.mu.Lock()
	if pageIndex < len(st.pages) {
		page := st.pages[pageIndex]
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	gw, err := c.gateways.Open(s.ConnectionID)
	if err != nil {
		return nil, err
	}

	var page *models.ListingPage
	for {
		c.mu.Lock()
		if pageIndex < len(st.pages) {
			page = st.pages[pageIndex]
			c.mu.Unlock()
			return page, nil
		}
		if len(st.pages) > 0 && !st.hasMore {
			c.mu.Unlock()
			return nil, fmt.Errorf("page index %d out of range", pageIndex)
		}
		token := st.nextToken
		gen := st.generation
		c.mu.Unlock()

		page, err = gw.ListObjects(ctx, s.Bucket, s.Prefix, token, c.pageSize)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if st.generation != gen {
			// Scope was invalidated mid-fetch. The caller still gets the
			// page, but it is not merged; the next fetch restarts at page 0.
			c.mu.Unlock()
			return page, nil
		}
		st.pages = append(st.pages, page)
		st.nextToken = page.NextToken
		st.hasMore = page.IsTruncated
		for _, p := range page.Prefixes {
			st.prefixSeen[p] = true
		}
		done := pageIndex < len(st.pages)
		c.mu.Unlock()

		if done {
			return page, nil
		}
	}
}

// Flatten merges every cached page of the scope into one listing. Prefixes
// are deduplicated in first-seen order; entries keep page order.
func (c *Cache) Flatten(s Scope) Flattened {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.scopes[s]
	if !ok {
		return Flattened{}
	}

	out := Flattened{HasMore: st.hasMore}
	seen := make(map[string]bool)
	for _, page := range st.pages {
		out.Entries = append(out.Entries, page.Entries...)
		for _, p := range page.Prefixes {
			if !seen[p] {
				seen[p] = true
				out.Prefixes = append(out.Prefixes, p)
			}
		}
	}
	return out
}

// HasMore reports whether the scope's last fetched page was truncated.
// An unfetched scope reports true so callers know to fetch page 0.
func (c *Cache) HasMore(s Scope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.scopes[s]
	if !ok || len(st.pages) == 0 {
		return true
	}
	return st.hasMore
}

// PageCount returns how many pages the scope has cached.
func (c *Cache) PageCount(s Scope) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.scopes[s]
	if !ok {
		return 0
	}
	return len(st.pages)
}

// Invalidate drops every cached scope of the bucket on the connection and
// bumps their generation counters so in-flight fetches cannot write stale
// pages back.
func (c *Cache) Invalidate(connectionID, bucket string) {
	c.mu.Lock()
	dropped := 0
	for s, st := range c.scopes {
		if s.ConnectionID != connectionID || s.Bucket != bucket {
			continue
		}
		st.generation++
		st.pages = nil
		st.prefixSeen = make(map[string]bool)
		st.nextToken = ""
		st.hasMore = false
		dropped++
	}
	c.mu.Unlock()

	if dropped == 0 {
		return
	}

	c.logger.Debug().
		Str("connection", connectionID).
		Str("bucket", bucket).
		Int("scopes", dropped).
		Msg("Listing cache invalidated")

	if c.bus != nil {
		c.bus.Publish(&events.ListingInvalidatedEvent{
			BaseEvent: events.BaseEvent{
				EventType: events.EventListingInvalidated,
				Time:      time.Now(),
			},
			ConnectionID: connectionID,
			Bucket:       bucket,
			Scopes:       dropped,
		})
	}
}

// InvalidateAll drops every cached scope across all connections.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	for _, st := range c.scopes {
		st.generation++
		st.pages = nil
		st.prefixSeen = make(map[string]bool)
		st.nextToken = ""
		st.hasMore = false
	}
	c.mu.Unlock()
}
