package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pansearch/model"
	"pansearch/util/cache"
	"pansearch/util/pool"
)

// searchChannels 搜索频道：优先频道先搜完，再搜普通频道
func (s *SearchService) searchChannels(ctx context.Context, keyword string, channels []string, forceRefresh bool, concOverride int, ext model.SearchExt) []model.SearchResult {
	cacheKey := cache.ChannelCacheKey(keyword, channels)
	if cached, ok := s.lookupCache(s.tgCache, cacheKey, forceRefresh); ok {
		s.log.WithFields(logrus.Fields{"keyword": keyword, "cache_hit": true, "results": len(cached)}).Debug("频道搜索命中缓存")
		return cached
	}
	if s.fetcher == nil || len(channels) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "search.channels", trace.WithAttributes(
		attribute.Int("search.channels", len(channels)),
	))
	defer span.End()

	timeout := s.sourceTimeout(ext)
	concurrency := concOverride
	if concurrency <= 0 {
		concurrency = s.opts.DefaultConcurrency
	}
	concurrency = clamp(concurrency, minConcurrency, maxConcurrency)

	prioritySet := make(map[string]bool, len(s.opts.PriorityChannels))
	for _, ch := range s.opts.PriorityChannels {
		prioritySet[ch] = true
	}

	var priority, normal []string
	for _, ch := range channels {
		if prioritySet[ch] {
			priority = append(priority, ch)
		} else {
			normal = append(normal, ch)
		}
	}

	start := time.Now()
	results := make([]model.SearchResult, 0)
	if len(priority) > 0 {
		limit := concurrency * 2
		if limit > maxConcurrency {
			limit = maxConcurrency
		}
		for _, batch := range pool.RunOrdered(ctx, s.channelTasks(keyword, priority, timeout), limit) {
			results = append(results, batch...)
		}
	}
	if len(normal) > 0 {
		for _, batch := range pool.RunOrdered(ctx, s.channelTasks(keyword, normal, timeout), concurrency) {
			results = append(results, batch...)
		}
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	s.log.WithFields(logrus.Fields{
		"keyword":  keyword,
		"channels": joinNames(channels),
		"priority": len(priority),
		"results":  len(results),
		"time_ms":  time.Since(start).Milliseconds(),
	}).Debug("频道搜索完成")

	s.storeResults(s.tgCache, cacheKey, results)
	return results
}

func (s *SearchService) channelTasks(keyword string, channels []string, timeout time.Duration) []pool.Task[[]model.SearchResult] {
	tasks := make([]pool.Task[[]model.SearchResult], len(channels))
	for i, channel := range channels {
		log := s.log.WithField("source", "tg:"+channel)
		tasks[i] = func(ctx context.Context) []model.SearchResult {
			return pool.SafeExecute(func() ([]model.SearchResult, error) {
				started := time.Now()
				results, err := pool.WithTimeout(ctx, timeout, nil, func(ctx context.Context) ([]model.SearchResult, error) {
					return s.fetcher.Fetch(ctx, channel, keyword, FetchOptions{LimitPerChannel: limitPerChannel})
				})
				recordSource("tg", started, results, err != nil)
				return results, err
			}, nil, log)
		}
	}
	return tasks
}
