package jikepan

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"pansearch/model"
	"pansearch/plugin"
	"pansearch/util"
	"pansearch/util/json"
)

func init() {
	plugin.RegisterGlobalPlugin(NewJikepanPlugin())
}

const (
	// DefaultAPIURL 即刻盘API地址
	DefaultAPIURL = "https://api.jikepan.xyz/search"

	// ExtIsAll ext 中开启全量搜索的键，全量搜索耗时约10秒
	ExtIsAll = "is_all"
)

// JikepanPlugin 即刻盘搜索插件
type JikepanPlugin struct {
	*plugin.BasePlugin
	apiURL string
}

// NewJikepanPlugin 创建新的即刻盘搜索插件
func NewJikepanPlugin() *JikepanPlugin {
	return &JikepanPlugin{
		BasePlugin: plugin.NewBasePlugin("jikepan", 3),
		apiURL:     DefaultAPIURL,
	}
}

// SetAPIURL 替换接口地址
func (p *JikepanPlugin) SetAPIURL(apiURL string) {
	p.apiURL = apiURL
}

// Search 执行搜索并返回结果
func (p *JikepanPlugin) Search(ctx context.Context, keyword string, ext map[string]interface{}) ([]model.SearchResult, error) {
	isAll, _ := ext[ExtIsAll].(bool)

	body, err := json.Marshal(searchRequest{Name: keyword, IsAll: isAll})
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://jikepan.xyz/")
	req.Header.Set("User-Agent", util.DefaultUserAgent)

	resp, err := p.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var apiResp JikepanResponse
	if err := json.DecodeReader(resp.Body, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Msg != "success" {
		return nil, fmt.Errorf("API returned error: %s", apiResp.Msg)
	}

	results := convertResults(apiResp.List)
	p.Logger().WithField("results", len(results)).Debug("jikepan 搜索完成")
	return results, nil
}

// convertResults 将API响应转换为标准SearchResult格式
func convertResults(items []JikepanItem) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(items))

	for i, item := range items {
		links := make([]model.Link, 0, len(item.Links))
		for _, link := range item.Links {
			linkType := convertLinkType(link.Service)
			if linkType == "others" && strings.Contains(strings.ToLower(link.Link), "drive.uc.cn") {
				linkType = "uc"
			}
			// unknown 类型直接丢弃
			if linkType == "" || link.Link == "" {
				continue
			}
			links = append(links, model.Link{
				URL:      link.Link,
				Type:     linkType,
				Password: link.Pwd,
			})
		}
		if len(links) == 0 {
			continue
		}

		// 接口不返回时间，Datetime 保持零值
		results = append(results, model.SearchResult{
			UniqueID: fmt.Sprintf("jikepan-%d", i),
			Title:    strings.TrimSpace(item.Name),
			Links:    links,
		})
	}

	return results
}

// convertLinkType 将API的服务类型转换为标准链接类型
func convertLinkType(service string) string {
	switch service = strings.ToLower(service); service {
	case "baidu", "aliyun", "xunlei", "quark", "115", "123", "weiyun",
		"pikpak", "lanzou", "jianguoyun", "chengtong", "ed2k", "magnet":
		return service
	case "189cloud":
		return "tianyi"
	case "caiyun":
		return "mobile"
	case "unknown":
		return ""
	default:
		return "others"
	}
}

type searchRequest struct {
	Name  string `json:"name"`
	IsAll bool   `json:"is_all"`
}

// JikepanResponse API响应结构
type JikepanResponse struct {
	Msg  string        `json:"msg"`
	List []JikepanItem `json:"list"`
}

// JikepanItem API响应中的单个结果项
type JikepanItem struct {
	Name  string        `json:"name"`
	Links []JikepanLink `json:"links"`
}

// JikepanLink API响应中的链接信息
type JikepanLink struct {
	Service string `json:"service"`
	Link    string `json:"link"`
	Pwd     string `json:"pwd,omitempty"`
}
