package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pansearch/model"
)

// ChannelFetcher 单个频道的搜索能力，由调用方注入
type ChannelFetcher interface {
	Fetch(ctx context.Context, channel, keyword string, opts FetchOptions) ([]model.SearchResult, error)
}

// FetchOptions 频道抓取参数
type FetchOptions struct {
	LimitPerChannel int
}

// Options 搜索服务配置
type Options struct {
	PriorityChannels   []string
	DefaultChannels    []string
	DefaultConcurrency int
	PluginTimeout      time.Duration
	CacheEnabled       bool
	CacheTTL           time.Duration
}

// Option 搜索服务的可选项
type Option func(*SearchService)

// WithLogger 指定服务日志
func WithLogger(log *logrus.Entry) Option {
	return func(s *SearchService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRanking 指定结果可见性使用的排序钩子
func WithRanking(r RankingHooks) Option {
	return func(s *SearchService) {
		if r != nil {
			s.ranking = r
		}
	}
}
