package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pansearch/metrics"
)

func TestTTLCacheRoundTrip(t *testing.T) {
	c := NewTTLCache[[]string]("test-roundtrip", 0)

	require.NoError(t, c.Set("k", []string{"a", "b"}, time.Minute))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[int]("test-expiry", 0)

	require.NoError(t, c.Set("k", 42, 30*time.Millisecond))
	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry must never be a hit")
	assert.Equal(t, 0, c.ItemCount(), "expired entry is removed on read")
}

func TestTTLCacheRejectsNonPositiveTTL(t *testing.T) {
	c := NewTTLCache[int]("test-ttl", 0)

	assert.ErrorIs(t, c.Set("k", 1, 0), ErrInvalidTTL)
	assert.ErrorIs(t, c.Set("k", 1, -time.Second), ErrInvalidTTL)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache[string]("test-overwrite", 0)

	require.NoError(t, c.Set("k", "old", time.Minute))
	require.NoError(t, c.Set("k", "new", time.Minute))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestTTLCacheInstancesAreIndependent(t *testing.T) {
	tg := NewTTLCache[int]("test-tg", 0)
	plugin := NewTTLCache[int]("test-plugin", 0)

	require.NoError(t, tg.Set("k", 1, time.Minute))
	_, ok := plugin.Get("k")
	assert.False(t, ok)

	require.NoError(t, plugin.Set("k", 2, time.Minute))
	plugin.Flush()

	got, ok := tg.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestTTLCacheCountsHitsAndMisses(t *testing.T) {
	c := NewTTLCache[int]("test-metrics", 0)

	hitsBefore := testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("test-metrics"))
	missesBefore := testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("test-metrics"))

	c.Get("missing")
	require.NoError(t, c.Set("k", 1, time.Minute))
	c.Get("k")

	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("test-metrics")))
	assert.Equal(t, missesBefore+1, testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("test-metrics")))
}

func TestTTLCacheConcurrentAccess(t *testing.T) {
	c := NewTTLCache[int]("test-concurrent", 0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = c.Set(key, i, time.Minute)
			c.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, c.ItemCount())
}

func TestCacheKeys(t *testing.T) {
	t.Run("channel key sorts channels", func(t *testing.T) {
		assert.Equal(t, "tg:abc:c1,c2", ChannelCacheKey("abc", []string{"c2", "c1"}))
		assert.Equal(t, "tg:abc:", ChannelCacheKey("abc", nil))
	})

	t.Run("channel key does not mutate input", func(t *testing.T) {
		channels := []string{"b", "a"}
		ChannelCacheKey("x", channels)
		assert.Equal(t, []string{"b", "a"}, channels)
	})

	t.Run("plugin key lowercases and drops empty names", func(t *testing.T) {
		assert.Equal(t, "plugin:abc:hunhepan,qupansou", PluginCacheKey("abc", []string{"QuPanSou", "", "hunhepan"}))
		assert.Equal(t, "plugin:abc:", PluginCacheKey("abc", []string{"", ""}))
	})
}
