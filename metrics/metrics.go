package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal 按方法、路由和状态码统计的HTTP请求数
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pansearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	// SearchRequestsTotal 按来源类型和结果类型统计的搜索次数
	SearchRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pansearch",
		Name:      "search_requests_total",
		Help:      "Total searches by source type and result type.",
	}, []string{"source_type", "result_type"})

	// SearchDuration 单次搜索的总耗时
	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pansearch",
		Name:      "search_duration_seconds",
		Help:      "End-to-end search duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20, 30},
	})

	// SourceRequestsTotal 频道和插件调用次数，status 为 ok、empty 或 failed
	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pansearch",
		Name:      "source_requests_total",
		Help:      "Total calls to channels and plugins by family and outcome (ok, empty, failed).",
	}, []string{"family", "status"})

	// SourceRequestDuration 频道和插件单次调用耗时
	SourceRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pansearch",
		Name:      "source_request_duration_seconds",
		Help:      "Channel and plugin call duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"family"})

	// CacheHitsTotal 结果缓存命中次数
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pansearch",
		Name:      "cache_hits_total",
		Help:      "Total number of result cache hits by cache name.",
	}, []string{"cache"})

	// CacheMissesTotal 结果缓存未命中次数
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pansearch",
		Name:      "cache_misses_total",
		Help:      "Total number of result cache misses by cache name.",
	}, []string{"cache"})
)

// Register 把全部指标注册到 reg，重复注册会 panic
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		SearchRequestsTotal,
		SearchDuration,
		SourceRequestsTotal,
		SourceRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}
