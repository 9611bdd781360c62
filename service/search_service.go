package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pansearch/metrics"
	"pansearch/model"
	"pansearch/plugin"
	"pansearch/util/cache"
	"pansearch/util/logger"
)

const (
	// 单个来源调用的最短超时
	minSourceTimeout = 3 * time.Second
	minConcurrency   = 2
	maxConcurrency   = 12
	// 每个频道最多取的结果数
	limitPerChannel = 30
	// 缓存过期项的清理间隔
	cacheCleanupInterval = 5 * time.Minute
)

// SearchService 搜索服务
type SearchService struct {
	opts          Options
	fetcher       ChannelFetcher
	pluginManager *plugin.PluginManager
	ranking       RankingHooks
	log           *logrus.Entry
	tracer        trace.Tracer

	tgCache     *cache.TTLCache[[]model.SearchResult]
	pluginCache *cache.TTLCache[[]model.SearchResult]
}

// NewSearchService 创建搜索服务实例。fetcher 为 nil 时频道搜索始终为空，
// pluginManager 为 nil 时插件搜索始终为空。
func NewSearchService(opts Options, fetcher ChannelFetcher, pluginManager *plugin.PluginManager, options ...Option) *SearchService {
	s := &SearchService{
		opts:          opts,
		fetcher:       fetcher,
		pluginManager: pluginManager,
		ranking:       DefaultRanking{},
		log:           logger.Named("search"),
		tracer:        otel.Tracer("pansearch/service"),
		tgCache:       cache.NewTTLCache[[]model.SearchResult]("tg", cacheCleanupInterval),
		pluginCache:   cache.NewTTLCache[[]model.SearchResult]("plugin", cacheCleanupInterval),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Search 执行搜索。来源失败不会导致错误，只有编排本身的缺陷才会返回 error
func (s *SearchService) Search(ctx context.Context, req model.SearchRequest) (model.SearchResponse, error) {
	start := time.Now()
	resultType := model.NormalizeResultType(req.ResultType)
	sourceType := model.NormalizeSourceType(req.SourceType)
	ext := model.ParseSearchExt(req.Ext)

	channels := req.Channels
	if len(channels) == 0 {
		channels = s.opts.DefaultChannels
	}

	ctx, span := s.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.String("search.keyword", req.Keyword),
		attribute.String("search.source_type", sourceType),
		attribute.String("search.result_type", resultType),
	))
	defer span.End()

	var tgResults, pluginResults []model.SearchResult
	var g errgroup.Group

	if sourceType == model.SourceTypeAll || sourceType == model.SourceTypeTG {
		g.Go(func() (err error) {
			defer recoverAsError(&err, "channel search")
			tgResults = s.searchChannels(ctx, req.Keyword, channels, req.ForceRefresh, req.Concurrency, ext)
			return nil
		})
	}
	if sourceType == model.SourceTypeAll || sourceType == model.SourceTypePlugin {
		g.Go(func() (err error) {
			defer recoverAsError(&err, "plugin search")
			concurrency := req.Concurrency
			if concurrency <= 0 {
				concurrency = s.opts.DefaultConcurrency
			}
			pluginResults = s.searchPlugins(ctx, req.Keyword, req.Plugins, req.ForceRefresh, concurrency, ext)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.SearchResponse{}, err
	}

	merged := MergeResults(tgResults, pluginResults)
	SortResultsByTimeDesc(merged)

	filtered := make([]model.SearchResult, 0, len(merged))
	for _, r := range merged {
		if visible(r, s.ranking) {
			filtered = append(filtered, r)
		}
	}

	mergedLinks := MergeResultsByType(merged, req.CloudTypes)
	response := shapeResponse(resultType, filtered, mergedLinks)

	elapsed := time.Since(start)
	metrics.SearchRequestsTotal.WithLabelValues(sourceType, resultType).Inc()
	metrics.SearchDuration.Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("search.total", response.Total))

	platforms := make([]string, 0, len(mergedLinks))
	for linkType := range mergedLinks {
		platforms = append(platforms, linkType)
	}
	s.log.WithFields(logrus.Fields{
		"keyword":     req.Keyword,
		"source_type": sourceType,
		"result_type": resultType,
		"platforms":   platforms,
		"total":       response.Total,
		"time_ms":     elapsed.Milliseconds(),
	}).Info("搜索完成")

	return response, nil
}

// shapeResponse 根据结果类型组装响应
func shapeResponse(resultType string, results []model.SearchResult, mergedLinks model.MergedLinks) model.SearchResponse {
	switch resultType {
	case model.ResultTypeResults:
		return model.SearchResponse{
			Total:   len(results),
			Results: results,
		}
	case model.ResultTypeAll:
		return model.SearchResponse{
			Total:        len(results),
			Results:      results,
			MergedByType: mergedLinks,
		}
	default:
		return model.SearchResponse{
			Total:        mergedLinks.Count(),
			MergedByType: mergedLinks,
		}
	}
}

// GetPluginManager 获取插件管理器
func (s *SearchService) GetPluginManager() *plugin.PluginManager {
	return s.pluginManager
}

// RegisteredPlugins 当前启用的插件
func (s *SearchService) RegisteredPlugins() []plugin.SearchPlugin {
	if s.pluginManager == nil {
		return nil
	}
	return s.pluginManager.GetPlugins()
}

// Options 返回服务配置
func (s *SearchService) Options() Options {
	return s.opts
}

// sourceTimeout 单个来源调用的超时：扩展参数优先，最少 3 秒
func (s *SearchService) sourceTimeout(ext model.SearchExt) time.Duration {
	timeout := s.opts.PluginTimeout
	if ext.TimeoutOverride > 0 {
		timeout = ext.TimeoutOverride
	}
	if timeout < minSourceTimeout {
		timeout = minSourceTimeout
	}
	return timeout
}

// storeResults 缓存非空结果
func (s *SearchService) storeResults(c *cache.TTLCache[[]model.SearchResult], key string, results []model.SearchResult) {
	if !s.opts.CacheEnabled || len(results) == 0 {
		return
	}
	if err := c.Set(key, results, s.opts.CacheTTL); err != nil {
		s.log.WithError(err).WithField("cache", c.Name()).Warn("写入缓存失败")
	}
}

func (s *SearchService) lookupCache(c *cache.TTLCache[[]model.SearchResult], key string, forceRefresh bool) ([]model.SearchResult, bool) {
	if !s.opts.CacheEnabled || forceRefresh {
		return nil, false
	}
	return c.Get(key)
}

// recordSource 记录单个来源调用的结果
func recordSource(family string, started time.Time, results []model.SearchResult, failed bool) {
	status := "ok"
	switch {
	case failed:
		status = "failed"
	case len(results) == 0:
		status = "empty"
	}
	metrics.SourceRequestsTotal.WithLabelValues(family, status).Inc()
	metrics.SourceRequestDuration.WithLabelValues(family).Observe(time.Since(started).Seconds())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func recoverAsError(err *error, stage string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: %v", stage, r)
	}
}

func joinNames(names []string) string {
	return strings.Join(names, ",")
}
