package util

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultUserAgent 抓取页面时使用的浏览器 UA
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// 全局HTTP客户端
var (
	httpClient     *http.Client
	httpClientLock sync.Mutex
)

// NewHTTPClient 创建HTTP客户端，proxyURL 支持 socks5:// 与 http(s)://，为空则直连
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialContext:           dialer.DialContext,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}

		if parsed.Scheme == "socks5" || parsed.Scheme == "socks5h" {
			socks, err := proxy.FromURL(parsed, dialer)
			if err != nil {
				return nil, fmt.Errorf("create socks5 dialer: %w", err)
			}
			if cd, ok := socks.(proxy.ContextDialer); ok {
				transport.DialContext = cd.DialContext
			} else {
				transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
					return socks.Dial(network, addr)
				}
			}
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}, nil
}

// InitHTTPClient 初始化全局HTTP客户端
func InitHTTPClient(proxyURL string) error {
	client, err := NewHTTPClient(proxyURL)
	if err != nil {
		return err
	}

	httpClientLock.Lock()
	httpClient = client
	httpClientLock.Unlock()
	return nil
}

// GetHTTPClient 获取全局HTTP客户端，未初始化时创建直连客户端
func GetHTTPClient() *http.Client {
	httpClientLock.Lock()
	defer httpClientLock.Unlock()

	if httpClient == nil {
		httpClient, _ = NewHTTPClient("")
	}
	return httpClient
}

// FetchHTML 获取HTML内容
func FetchHTML(ctx context.Context, client *http.Client, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// BuildSearchURL 构建频道搜索URL
func BuildSearchURL(baseURL, channel, keyword string) string {
	u := baseURL + "/" + url.PathEscape(channel)
	if keyword != "" {
		u += "?q=" + url.QueryEscape(keyword)
	}
	return u
}
