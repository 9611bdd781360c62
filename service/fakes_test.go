package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pansearch/model"
	"pansearch/plugin"
)

type fetchCall struct {
	channel string
	start   time.Time
	end     time.Time
}

// fakeFetcher 按频道返回预设结果，并记录调用
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string][]model.SearchResult
	errs    map[string]error
	delay   map[string]time.Duration
	calls   []fetchCall
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: make(map[string][]model.SearchResult),
		errs:    make(map[string]error),
		delay:   make(map[string]time.Duration),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, channel, keyword string, opts FetchOptions) ([]model.SearchResult, error) {
	start := time.Now()
	f.mu.Lock()
	d := f.delay[channel]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{channel: channel, start: start, end: time.Now()})
	if err := f.errs[channel]; err != nil {
		return nil, err
	}
	return f.results[channel], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) call(channel string) fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.channel == channel {
			return c
		}
	}
	return fetchCall{}
}

// fakePlugin 按关键词返回预设结果
type fakePlugin struct {
	name     string
	priority int
	byKW     map[string][]model.SearchResult
	err      error
	panicMsg string
	block    bool

	mu       sync.Mutex
	keywords []string
	cacheKey string
	current  string
	ext      map[string]interface{}
}

var _ plugin.SearchPlugin = (*fakePlugin)(nil)

func (p *fakePlugin) Name() string  { return p.name }
func (p *fakePlugin) Priority() int { return p.priority }

func (p *fakePlugin) SetMainCacheKey(key string) {
	p.mu.Lock()
	p.cacheKey = key
	p.mu.Unlock()
}

func (p *fakePlugin) SetCurrentKeyword(keyword string) {
	p.mu.Lock()
	p.current = keyword
	p.mu.Unlock()
}

func (p *fakePlugin) Search(ctx context.Context, keyword string, ext map[string]interface{}) ([]model.SearchResult, error) {
	p.mu.Lock()
	p.keywords = append(p.keywords, keyword)
	p.ext = ext
	p.mu.Unlock()

	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.byKW[keyword], nil
}

func (p *fakePlugin) searched() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keywords...)
}

var errSourceDown = errors.New("source down")

func at(hour int) time.Time {
	return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
}

func result(id, channel string, t time.Time, links ...model.Link) model.SearchResult {
	return model.SearchResult{
		UniqueID: id,
		Channel:  channel,
		Title:    "title " + id,
		Datetime: t,
		Links:    links,
	}
}

func managerWith(plugins ...plugin.SearchPlugin) *plugin.PluginManager {
	pm := plugin.NewPluginManager()
	for _, p := range plugins {
		pm.RegisterPlugin(p)
	}
	return pm
}

func testOptions() Options {
	return Options{
		DefaultChannels:    []string{"c1"},
		DefaultConcurrency: 4,
		PluginTimeout:      5 * time.Second,
		CacheEnabled:       true,
		CacheTTL:           time.Minute,
	}
}
