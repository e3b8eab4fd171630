package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsync/marketsync/market"
)

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) FetchTable(ctx context.Context, period string) (*market.Table, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &market.Table{
		Dates:  []time.Time{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		Series: []market.Series{{Name: market.Topix, Values: []float64{float64(f.calls)}}},
	}, nil
}

func TestCacheHitWithinTTL(t *testing.T) {
	t.Parallel()

	upstream := &fakeFetcher{}
	p := New(upstream, time.Hour)

	first, err := p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)
	second, err := p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)

	assert.Equal(t, 1, upstream.calls)
	assert.Same(t, first, second)
}

func TestCacheExpires(t *testing.T) {
	t.Parallel()

	upstream := &fakeFetcher{}
	p := New(upstream, time.Hour)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)

	now = now.Add(2 * time.Minute)
	_, err = p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCacheKeysByPeriod(t *testing.T) {
	t.Parallel()

	upstream := &fakeFetcher{}
	p := New(upstream, time.Hour)

	_, err := p.FetchTable(context.Background(), "1y")
	require.NoError(t, err)
	_, err = p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls)
}

func TestCacheNeverStoresFailures(t *testing.T) {
	t.Parallel()

	upstream := &fakeFetcher{err: errors.New("boom")}
	p := New(upstream, time.Hour)

	_, err := p.FetchTable(context.Background(), "5y")
	assert.Error(t, err)

	upstream.err = nil
	_, err = p.FetchTable(context.Background(), "5y")
	assert.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	upstream := &fakeFetcher{}
	p := New(upstream, time.Hour)

	_, err := p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)
	p.Invalidate("5y")
	_, err = p.FetchTable(context.Background(), "5y")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls)
}
