package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pansearch/model"
	"pansearch/util"
)

// DefaultTelegramBaseURL Telegram 频道网页预览地址
const DefaultTelegramBaseURL = "https://t.me/s"

// TelegramFetcher 通过 t.me/s 网页预览搜索公开频道
type TelegramFetcher struct {
	baseURL string
	client  *http.Client
}

// NewTelegramFetcher 创建频道抓取器；client 为 nil 时使用全局 HTTP 客户端（已配置代理）
func NewTelegramFetcher(baseURL string, client *http.Client) *TelegramFetcher {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	if client == nil {
		client = util.GetHTTPClient()
	}
	return &TelegramFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Fetch 搜索单个频道
func (f *TelegramFetcher) Fetch(ctx context.Context, channel, keyword string, opts FetchOptions) ([]model.SearchResult, error) {
	url := util.BuildSearchURL(f.baseURL, channel, keyword)

	html, err := util.FetchHTML(ctx, f.client, url)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channel, err)
	}

	results, err := util.ParseSearchResults(html, channel)
	if err != nil {
		return nil, fmt.Errorf("parse channel %s: %w", channel, err)
	}

	if opts.LimitPerChannel > 0 && len(results) > opts.LimitPerChannel {
		results = results[:opts.LimitPerChannel]
	}
	return results, nil
}
