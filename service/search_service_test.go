package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pansearch/model"
)

func TestSearchPriorityChannelsScenario(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{result("c1_1", "c1", at(10))}
	fetcher.results["c2"] = []model.SearchResult{result("c2_1", "c2", at(9))}

	opts := testOptions()
	opts.PriorityChannels = []string{"c1"}
	svc := NewSearchService(opts, fetcher, nil)

	resp, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:    "abc",
		Channels:   []string{"c1", "c2"},
		ResultType: model.ResultTypeResults,
		SourceType: model.SourceTypeTG,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"c1_1", "c2_1"}, ids(resp.Results))
	assert.Nil(t, resp.MergedByType)
}

func TestSearchRunsPriorityTierBeforeNormalTier(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.delay["p1"] = 40 * time.Millisecond
	fetcher.delay["p2"] = 20 * time.Millisecond

	opts := testOptions()
	opts.PriorityChannels = []string{"p1", "p2"}
	svc := NewSearchService(opts, fetcher, nil)

	_, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:    "abc",
		Channels:   []string{"n1", "p1", "n2", "p2"},
		SourceType: model.SourceTypeTG,
	})
	require.NoError(t, err)
	require.Equal(t, 4, fetcher.callCount())

	lastPriorityEnd := fetcher.call("p1").end
	if e := fetcher.call("p2").end; e.After(lastPriorityEnd) {
		lastPriorityEnd = e
	}
	assert.False(t, fetcher.call("n1").start.Before(lastPriorityEnd))
	assert.False(t, fetcher.call("n2").start.Before(lastPriorityEnd))
}

// peakFetcher 记录同时在途的最大调用数
type peakFetcher struct {
	inFlight, peak atomic.Int32
}

func (f *peakFetcher) Fetch(ctx context.Context, channel, keyword string, opts FetchOptions) ([]model.SearchResult, error) {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(30 * time.Millisecond)
	f.inFlight.Add(-1)
	return nil, nil
}

func TestSearchPriorityTierUsesDoubledConcurrency(t *testing.T) {
	fetcher := &peakFetcher{}
	channels := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}

	opts := testOptions()
	opts.PriorityChannels = channels
	svc := NewSearchService(opts, fetcher, nil)

	_, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:     "abc",
		Channels:    channels,
		Concurrency: 2,
		SourceType:  model.SourceTypeTG,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(4))
	assert.Greater(t, fetcher.peak.Load(), int32(2))
}

func TestSearchChannelCache(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{result("c1_1", "c1", at(10))}
	svc := NewSearchService(testOptions(), fetcher, nil)

	req := model.SearchRequest{Keyword: "abc", Channels: []string{"c1"}, SourceType: model.SourceTypeTG}

	first, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount())

	second, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.callCount(), "second search must be served from cache")
	assert.Equal(t, first, second)

	t.Run("force refresh bypasses cache", func(t *testing.T) {
		refresh := req
		refresh.ForceRefresh = true
		_, err := svc.Search(context.Background(), refresh)
		require.NoError(t, err)
		assert.Equal(t, 2, fetcher.callCount())
	})

	t.Run("empty results are not cached", func(t *testing.T) {
		empty := model.SearchRequest{Keyword: "nothing", Channels: []string{"c9"}, SourceType: model.SourceTypeTG}
		_, err := svc.Search(context.Background(), empty)
		require.NoError(t, err)
		before := fetcher.callCount()
		_, err = svc.Search(context.Background(), empty)
		require.NoError(t, err)
		assert.Equal(t, before+1, fetcher.callCount())
	})
}

func TestSearchCacheDisabled(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{result("c1_1", "c1", at(10))}
	opts := testOptions()
	opts.CacheEnabled = false
	svc := NewSearchService(opts, fetcher, nil)

	req := model.SearchRequest{Keyword: "abc", SourceType: model.SourceTypeTG}
	for i := 0; i < 2; i++ {
		_, err := svc.Search(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fetcher.callCount())
}

func TestSearchShortKeywordFallback(t *testing.T) {
	p := &fakePlugin{
		name: "fake",
		byKW: map[string][]model.SearchResult{
			"movie": {result("m1", "fake", at(8))},
			"1080p": {result("hd", "fake", at(9))},
		},
	}
	svc := NewSearchService(testOptions(), nil, managerWith(p))

	resp, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:    " x ",
		ResultType: model.ResultTypeResults,
		SourceType: model.SourceTypePlugin,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{" x ", "电影", "movie"}, p.searched())
	assert.Equal(t, []string{"m1"}, ids(resp.Results))
}

func TestSearchNoFallbackForLongerKeyword(t *testing.T) {
	p := &fakePlugin{name: "fake", byKW: map[string][]model.SearchResult{"movie": {result("m1", "fake", at(8))}}}
	svc := NewSearchService(testOptions(), nil, managerWith(p))

	resp, err := svc.Search(context.Background(), model.SearchRequest{Keyword: "xy", SourceType: model.SourceTypePlugin})
	require.NoError(t, err)
	assert.Equal(t, []string{"xy"}, p.searched())
	assert.Equal(t, 0, resp.Total)
}

func TestSearchPluginSelectionAndHooks(t *testing.T) {
	a := &fakePlugin{name: "Alpha", byKW: map[string][]model.SearchResult{"abc": {result("a1", "alpha", at(7))}}}
	b := &fakePlugin{name: "beta", byKW: map[string][]model.SearchResult{"abc": {result("b1", "beta", at(6))}}}
	svc := NewSearchService(testOptions(), nil, managerWith(a, b))

	resp, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:    "abc",
		Plugins:    []string{"ALPHA", ""},
		ResultType: model.ResultTypeResults,
		SourceType: model.SourceTypePlugin,
		Ext:        map[string]interface{}{model.PluginTimeoutKey: 5000, "referer": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, ids(resp.Results))
	assert.Empty(t, b.searched())

	assert.Equal(t, "plugin:abc:alpha", a.cacheKey)
	assert.Equal(t, "abc", a.current)
	assert.Equal(t, map[string]interface{}{"referer": "x"}, a.ext)

	t.Run("empty names select all plugins", func(t *testing.T) {
		resp, err := svc.Search(context.Background(), model.SearchRequest{
			Keyword:      "abc",
			Plugins:      []string{""},
			ForceRefresh: true,
			ResultType:   model.ResultTypeResults,
			SourceType:   model.SourceTypePlugin,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a1", "b1"}, ids(resp.Results))
	})
}

func TestSearchCloudTypeAllowList(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{
		result("r1", "c1", at(10),
			model.Link{Type: "magnet", URL: "magnet:?xt=urn:btih:abc"},
			model.Link{Type: "http", URL: "http://example.com/file"},
		),
	}
	svc := NewSearchService(testOptions(), fetcher, nil)

	resp, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:    "abc",
		CloudTypes: []string{"magnet"},
		SourceType: model.SourceTypeTG,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"magnet"}, keys(resp.MergedByType))
	assert.Equal(t, 1, resp.Total)
}

func TestSearchResultModes(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{
		result("r1", "c1", at(10),
			model.Link{Type: "quark", URL: "https://pan.quark.cn/s/1"},
			model.Link{Type: "baidu", URL: "https://pan.baidu.com/s/1"},
		),
		result("r2", "c1", at(9), model.Link{Type: "quark", URL: "https://pan.quark.cn/s/2"}),
		result("r3", "c1", at(8)),
	}
	svc := NewSearchService(testOptions(), fetcher, nil)

	search := func(mode string) model.SearchResponse {
		resp, err := svc.Search(context.Background(), model.SearchRequest{
			Keyword:    "abc",
			ResultType: mode,
			SourceType: model.SourceTypeTG,
		})
		require.NoError(t, err)
		return resp
	}

	t.Run("results", func(t *testing.T) {
		resp := search(model.ResultTypeResults)
		assert.Equal(t, 3, resp.Total)
		assert.Len(t, resp.Results, resp.Total)
		assert.Nil(t, resp.MergedByType)
	})

	t.Run("merged_by_type", func(t *testing.T) {
		resp := search(model.ResultTypeMergedByType)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, resp.MergedByType.Count(), resp.Total)
		assert.Nil(t, resp.Results)
	})

	t.Run("merge alias and empty default to merged_by_type", func(t *testing.T) {
		assert.Equal(t, search(model.ResultTypeMergedByType), search(model.ResultTypeMerge))
		assert.Equal(t, search(model.ResultTypeMergedByType), search(""))
	})

	t.Run("all", func(t *testing.T) {
		resp := search(model.ResultTypeAll)
		assert.Equal(t, len(resp.Results), resp.Total)
		assert.Equal(t, 3, resp.MergedByType.Count())
	})
}

func TestSearchVisibilityFilter(t *testing.T) {
	undated := model.SearchResult{UniqueID: "bare", Title: "合集 bare"}
	p := &fakePlugin{name: "fake", byKW: map[string][]model.SearchResult{
		"abc": {result("dated", "fake", at(9)), undated},
	}}
	req := model.SearchRequest{Keyword: "abc", ResultType: model.ResultTypeResults, SourceType: model.SourceTypePlugin}

	t.Run("default ranking hides results without time or links", func(t *testing.T) {
		svc := NewSearchService(testOptions(), nil, managerWith(p))
		resp, err := svc.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"dated"}, ids(resp.Results))
	})

	t.Run("keyword ranking keeps prioritized titles", func(t *testing.T) {
		svc := NewSearchService(testOptions(), nil, managerWith(p), WithRanking(NewKeywordRanking([]string{"合集"})))
		resp, err := svc.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"dated", "bare"}, ids(resp.Results))
	})

	t.Run("trusted source level keeps results", func(t *testing.T) {
		svc := NewSearchService(testOptions(), nil, managerWith(p), WithRanking(trustedRanking{}))
		resp, err := svc.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, resp.Results, 2)
	})
}

type trustedRanking struct{ DefaultRanking }

func (trustedRanking) SourceLevel(string) int { return 1 }

func TestSearchMergesBothFamilies(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{result("shared", "c1", at(8)), result("tg", "c1", at(10))}
	p := &fakePlugin{name: "fake", byKW: map[string][]model.SearchResult{
		"abc": {result("shared", "plugin", at(11)), result("pl", "plugin", at(9))},
	}}
	svc := NewSearchService(testOptions(), fetcher, managerWith(p))

	resp, err := svc.Search(context.Background(), model.SearchRequest{Keyword: "abc", ResultType: model.ResultTypeResults})
	require.NoError(t, err)
	require.Equal(t, []string{"tg", "pl", "shared"}, ids(resp.Results))
	assert.Equal(t, "c1", resp.Results[2].Channel, "channel result wins on duplicate")
}

func TestSearchSourceFailuresAreContained(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["c1"] = errSourceDown
	broken := &fakePlugin{name: "broken", err: errSourceDown}
	panicky := &fakePlugin{name: "panicky", panicMsg: "boom"}
	svc := NewSearchService(testOptions(), fetcher, managerWith(broken, panicky))

	resp, err := svc.Search(context.Background(), model.SearchRequest{Keyword: "abc", ResultType: model.ResultTypeAll})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.MergedByType)
}

func TestSearchCancelledContextReturnsFallback(t *testing.T) {
	blocking := &fakePlugin{name: "slow", block: true}
	svc := NewSearchService(testOptions(), nil, managerWith(blocking))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	var resp model.SearchResponse
	var err error
	go func() {
		resp, err = svc.Search(ctx, model.SearchRequest{Keyword: "abc", SourceType: model.SourceTypePlugin})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not return after context cancellation")
	}
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
}

func TestSearchSlowSourcesTimeOutToFallback(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["fast"] = []model.SearchResult{result("fast_1", "fast", at(10))}
	fetcher.results["slow"] = []model.SearchResult{result("slow_1", "slow", at(11))}
	fetcher.delay["slow"] = time.Minute

	quick := &fakePlugin{name: "quick", byKW: map[string][]model.SearchResult{
		"abc": {result("quick-1", "", at(9))},
	}}
	stuck := &fakePlugin{name: "stuck", block: true}
	svc := NewSearchService(testOptions(), fetcher, managerWith(quick, stuck))

	started := time.Now()
	resp, err := svc.Search(context.Background(), model.SearchRequest{
		Keyword:    "abc",
		Channels:   []string{"fast", "slow"},
		ResultType: model.ResultTypeResults,
		// 低于下限，实际按 3 秒处理
		Ext: map[string]interface{}{model.PluginTimeoutKey: 100},
	})
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.Equal(t, []string{"fast_1", "quick-1"}, ids(resp.Results))
	assert.GreaterOrEqual(t, elapsed, minSourceTimeout)
	assert.Less(t, elapsed, 2*minSourceTimeout, "slow sources are abandoned at the timeout")
	assert.Equal(t, 1, fetcher.callCount(), "the slow fetch returns through its cancelled context")
}

func TestSearchConcurrentRequests(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.results["c1"] = []model.SearchResult{result("c1_1", "c1", at(10))}
	svc := NewSearchService(testOptions(), fetcher, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := svc.Search(context.Background(), model.SearchRequest{Keyword: "abc", SourceType: model.SourceTypeTG})
			assert.NoError(t, err)
			assert.Equal(t, 1, resp.Total)
		}()
	}
	wg.Wait()
}

func TestSourceTimeout(t *testing.T) {
	svc := NewSearchService(Options{PluginTimeout: 10 * time.Second}, nil, nil)

	assert.Equal(t, 10*time.Second, svc.sourceTimeout(model.SearchExt{}))
	assert.Equal(t, 5*time.Second, svc.sourceTimeout(model.SearchExt{TimeoutOverride: 5 * time.Second}))
	assert.Equal(t, 3*time.Second, svc.sourceTimeout(model.SearchExt{TimeoutOverride: 500 * time.Millisecond}))

	short := NewSearchService(Options{PluginTimeout: time.Second}, nil, nil)
	assert.Equal(t, 3*time.Second, short.sourceTimeout(model.SearchExt{}))
}

func TestRegisteredPlugins(t *testing.T) {
	p := &fakePlugin{name: "fake"}
	svc := NewSearchService(testOptions(), nil, managerWith(p))
	require.Len(t, svc.RegisteredPlugins(), 1)
	assert.Equal(t, "fake", svc.RegisteredPlugins()[0].Name())
	assert.NotNil(t, svc.GetPluginManager())

	assert.Nil(t, NewSearchService(testOptions(), nil, nil).RegisteredPlugins())
}
