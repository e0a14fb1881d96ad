package outlinemgr_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/outline/divisionstore"
	"github.com/wkalt/outline/nestedset"
	"github.com/wkalt/outline/outlinemgr"
)

func TestListingCache(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := newManager(t, divisionstore.NewMemStore(), outlinemgr.WithListingCache(2), outlinemgr.WithRegisterer(reg))

	r, err := m.CreateRoot(ctx, "book", "r")
	require.NoError(t, err)

	divs, err := m.List(ctx, "book")
	require.NoError(t, err)
	require.Equal(t, []string{"r"}, titles(divs))

	t.Run("callers cannot modify the cached listing", func(t *testing.T) {
		divs, err := m.List(ctx, "book")
		require.NoError(t, err)
		divs[0].Title = "changed"
		divs, err = m.List(ctx, "book")
		require.NoError(t, err)
		require.Equal(t, []string{"r"}, titles(divs))
	})
	t.Run("mutations invalidate the book", func(t *testing.T) {
		_, err := m.Create(ctx, "a", nestedset.AsLastChild(r.ID))
		require.NoError(t, err)
		divs, err := m.List(ctx, "book")
		require.NoError(t, err)
		require.Equal(t, []string{"r", "a"}, titles(divs))
	})

	expected := `
# HELP outline_listing_cache_requests_total Book listing cache lookups by result
# TYPE outline_listing_cache_requests_total counter
outline_listing_cache_requests_total{result="hit"} 2
outline_listing_cache_requests_total{result="miss"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "outline_listing_cache_requests_total"))
}

func TestListingCacheConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	store := divisionstore.NewMemStore()
	m := newManager(t, store, outlinemgr.WithListingCache(4))
	r, err := m.CreateRoot(ctx, "book", "r")
	require.NoError(t, err)

	wg := &sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := m.Create(ctx, fmt.Sprintf("%d-%d", i, j), nestedset.AsLastChild(r.ID))
				require.NoError(t, err)
				_, err = m.List(ctx, "book")
				require.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	cached, err := m.List(ctx, "book")
	require.NoError(t, err)
	uncached, err := outlinemgr.NewManager(store).List(ctx, "book")
	require.NoError(t, err)
	require.Equal(t, uncached, cached)
	require.Len(t, cached, 81)
	requireCanonical(t, m, "book")
}

func TestListingCacheEviction(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		size      int
		reads     []string
		hits      int
		misses    int
	}{
		{
			"repeated reads of one book hit",
			1,
			[]string{"a", "a", "a"},
			2,
			1,
		},
		{
			"least recently listed book is evicted",
			1,
			[]string{"a", "b", "a", "a"},
			1,
			3,
		},
		{
			"capacity holds both books",
			2,
			[]string{"a", "b", "a", "b"},
			2,
			2,
		},
		{
			"reads refresh recency",
			2,
			[]string{"a", "b", "a", "c", "a", "b"},
			2,
			4,
		},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			m := newManager(t, divisionstore.NewMemStore(), outlinemgr.WithListingCache(c.size), outlinemgr.WithRegisterer(reg))
			for _, book := range []string{"a", "b", "c"} {
				_, err := m.CreateRoot(ctx, book, "root of "+book)
				require.NoError(t, err)
			}
			for _, book := range c.reads {
				divs, err := m.List(ctx, book)
				require.NoError(t, err)
				require.Equal(t, []string{"root of " + book}, titles(divs))
			}
			expected := fmt.Sprintf(`
# HELP outline_listing_cache_requests_total Book listing cache lookups by result
# TYPE outline_listing_cache_requests_total counter
outline_listing_cache_requests_total{result="hit"} %d
outline_listing_cache_requests_total{result="miss"} %d
`, c.hits, c.misses)
			require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "outline_listing_cache_requests_total"))
		})
	}
}
