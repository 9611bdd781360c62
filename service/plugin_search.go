package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pansearch/model"
	"pansearch/plugin"
	"pansearch/util/cache"
	"pansearch/util/pool"
)

// 单字关键词没有结果时依次尝试的兜底关键词
var fallbackKeywords = []string{"电影", "movie", "1080p"}

// searchPlugins 搜索插件，names 中没有非空名称时使用全部插件
func (s *SearchService) searchPlugins(ctx context.Context, keyword string, names []string, forceRefresh bool, concurrency int, ext model.SearchExt) []model.SearchResult {
	cacheKey := cache.PluginCacheKey(keyword, names)
	if cached, ok := s.lookupCache(s.pluginCache, cacheKey, forceRefresh); ok {
		s.log.WithFields(logrus.Fields{"keyword": keyword, "cache_hit": true, "results": len(cached)}).Debug("插件搜索命中缓存")
		return cached
	}
	if s.pluginManager == nil {
		return nil
	}

	candidates := s.pluginManager.Select(names)
	if len(candidates) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "search.plugins", trace.WithAttributes(
		attribute.Int("search.plugins", len(candidates)),
	))
	defer span.End()

	timeout := s.sourceTimeout(ext)
	if concurrency < 1 {
		concurrency = 1
	}

	tasks := make([]pool.Task[[]model.SearchResult], len(candidates))
	for i, p := range candidates {
		log := s.log.WithField("source", "plugin:"+p.Name())
		tasks[i] = func(ctx context.Context) []model.SearchResult {
			return pool.SafeExecute(func() ([]model.SearchResult, error) {
				return s.runPlugin(ctx, p, cacheKey, keyword, timeout, ext.Raw)
			}, nil, log)
		}
	}

	start := time.Now()
	results := make([]model.SearchResult, 0)
	for _, batch := range pool.RunOrdered(ctx, tasks, concurrency) {
		results = append(results, batch...)
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	s.log.WithFields(logrus.Fields{
		"keyword": keyword,
		"plugins": len(candidates),
		"results": len(results),
		"time_ms": time.Since(start).Milliseconds(),
	}).Debug("插件搜索完成")

	s.storeResults(s.pluginCache, cacheKey, results)
	return results
}

// runPlugin 调用单个插件，单字关键词无结果时尝试兜底关键词
func (s *SearchService) runPlugin(ctx context.Context, p plugin.SearchPlugin, cacheKey, keyword string, timeout time.Duration, ext map[string]interface{}) ([]model.SearchResult, error) {
	p.SetMainCacheKey(cacheKey)
	p.SetCurrentKeyword(keyword)

	search := func(kw string) ([]model.SearchResult, error) {
		started := time.Now()
		results, err := pool.WithTimeout(ctx, timeout, nil, func(ctx context.Context) ([]model.SearchResult, error) {
			return p.Search(ctx, kw, ext)
		})
		recordSource("plugin", started, results, err != nil)
		return results, err
	}

	results, err := search(keyword)
	if err != nil || len(results) > 0 {
		return results, err
	}

	if len([]rune(strings.TrimSpace(keyword))) > 1 {
		return results, nil
	}
	for _, kw := range fallbackKeywords {
		results, err = search(kw)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return results, nil
}
