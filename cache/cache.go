// Package cache memoizes fetched price tables per period with a time-based
// expiry, so repeated dashboard requests inside the window reuse the last
// download.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/marketsync/marketsync/market"
)

// DefaultTTL matches the upstream data cadence: daily closes do not change
// within the hour.
const DefaultTTL = time.Hour

// Fetcher is the upstream the cache decorates.
type Fetcher interface {
	FetchTable(ctx context.Context, period string) (*market.Table, error)
}

type entry struct {
	table     *market.Table
	fetchedAt time.Time
}

// Provider wraps a Fetcher with per-period TTL memoization. It satisfies
// the same FetchTable contract as the wrapped Fetcher.
type Provider struct {
	upstream Fetcher
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New creates a caching provider. A non-positive ttl falls back to
// DefaultTTL.
func New(upstream Fetcher, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		upstream: upstream,
		ttl:      ttl,
		now:      time.Now,
		entries:  map[string]entry{},
	}
}

// FetchTable returns the cached table for period when it is still fresh,
// otherwise fetches and stores a new one. Failed fetches are never cached.
func (p *Provider) FetchTable(ctx context.Context, period string) (*market.Table, error) {
	p.mu.Lock()
	if e, ok := p.entries[period]; ok && p.now().Sub(e.fetchedAt) < p.ttl {
		p.mu.Unlock()
		return e.table, nil
	}
	p.mu.Unlock()

	table, err := p.upstream.FetchTable(ctx, period)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.entries[period] = entry{table: table, fetchedAt: p.now()}
	p.mu.Unlock()

	return table, nil
}

// Invalidate drops the cached entry for period, if any.
func (p *Provider) Invalidate(period string) {
	p.mu.Lock()
	delete(p.entries, period)
	p.mu.Unlock()
}
