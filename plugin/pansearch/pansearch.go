package pansearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pansearch/model"
	"pansearch/plugin"
	"pansearch/util"
	"pansearch/util/json"
	"pansearch/util/pool"
)

func init() {
	plugin.RegisterGlobalPlugin(NewPanSearchPlugin())
}

const (
	// DefaultBaseURL 盘搜接口地址
	DefaultBaseURL = "https://www.pansearch.me/_next/data/267c2974d1894258fff4912af03ca830a831e353/search.json"

	PageSize      = 10
	MaxResults    = 100
	MaxConcurrent = 5
)

// 换行标签，转成换行符后再取文本
var lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)

// PanSearchPlugin 盘搜插件
type PanSearchPlugin struct {
	*plugin.BasePlugin
	baseURL    string
	maxResults int
}

// NewPanSearchPlugin 创建新的盘搜插件
func NewPanSearchPlugin() *PanSearchPlugin {
	return &PanSearchPlugin{
		BasePlugin: plugin.NewBasePlugin("pansearch", 2),
		baseURL:    DefaultBaseURL,
		maxResults: MaxResults,
	}
}

// SetBaseURL 替换接口地址
func (p *PanSearchPlugin) SetBaseURL(baseURL string) {
	p.baseURL = baseURL
}

// Search 先取首页得到总数，再并发取剩余页
func (p *PanSearchPlugin) Search(ctx context.Context, keyword string, ext map[string]interface{}) ([]model.SearchResult, error) {
	first, err := p.fetchPage(ctx, keyword, 0)
	if err != nil {
		return nil, fmt.Errorf("获取首页失败: %w", err)
	}

	items := first.Data
	remaining := min(first.Total, p.maxResults) - PageSize
	if remaining > 0 {
		pages := (remaining + PageSize - 1) / PageSize
		tasks := make([]pool.Task[[]PanSearchItem], pages)
		for i := range tasks {
			offset := (i + 1) * PageSize
			tasks[i] = func(ctx context.Context) []PanSearchItem {
				page, err := p.fetchPage(ctx, keyword, offset)
				if err != nil {
					p.Logger().WithError(err).WithField("offset", offset).Warn("获取分页失败")
					return nil
				}
				return page.Data
			}
		}
		for _, pageItems := range pool.RunOrdered(ctx, tasks, MaxConcurrent) {
			items = append(items, pageItems...)
		}
	}

	return p.convertResults(dedupItems(items)), nil
}

// fetchPage 获取指定偏移量的页面
func (p *PanSearchPlugin) fetchPage(ctx context.Context, keyword string, offset int) (pageData, error) {
	reqURL := fmt.Sprintf("%s?keyword=%s&offset=%d", p.baseURL, url.QueryEscape(keyword), offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return pageData{}, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", util.DefaultUserAgent)
	req.Header.Set("Referer", "https://www.pansearch.me/")

	resp, err := p.Client().Do(req)
	if err != nil {
		return pageData{}, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pageData{}, fmt.Errorf("请求失败，状态码: %d", resp.StatusCode)
	}

	var apiResp PanSearchResponse
	if err := json.DecodeReader(resp.Body, &apiResp); err != nil {
		return pageData{}, err
	}
	return apiResp.PageProps.Data, nil
}

// dedupItems 按资源ID去重，保持顺序
func dedupItems(items []PanSearchItem) []PanSearchItem {
	seen := make(map[int]bool, len(items))
	unique := make([]PanSearchItem, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		unique = append(unique, item)
	}
	return unique
}

// convertResults 将API响应转换为标准SearchResult格式
func (p *PanSearchPlugin) convertResults(items []PanSearchItem) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(items))

	for _, item := range items {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(lineBreakPattern.ReplaceAllString(item.Content, "\n")))
		if err != nil {
			continue
		}

		href, _ := doc.Find("a").First().Attr("href")
		if href == "" {
			continue
		}

		linkType := item.Pan
		if linkType == "" || linkType == "aliyundrive" {
			linkType = util.GetLinkType(href)
		}

		var datetime time.Time
		if item.Time != "" {
			if parsed, err := time.Parse(time.RFC3339, item.Time); err == nil {
				datetime = parsed
			}
		}

		content := strings.TrimSpace(doc.Text())
		result := model.SearchResult{
			UniqueID: fmt.Sprintf("pansearch-%d", item.ID),
			Title:    extractTitle(content),
			Content:  content,
			Datetime: datetime,
			Links: []model.Link{{
				URL:      href,
				Type:     linkType,
				Password: util.ExtractPassword(content, href),
			}},
		}
		if item.Image != "" {
			result.Images = []string{item.Image}
		}
		results = append(results, result)
	}

	return results
}

// extractTitle 标题在"名称："之后到行尾
func extractTitle(content string) string {
	const prefix = "名称："
	start := strings.Index(content, prefix)
	if start == -1 {
		return "未知标题"
	}
	title := content[start+len(prefix):]
	if end := strings.IndexByte(title, '\n'); end != -1 {
		title = title[:end]
	}
	return strings.TrimSpace(title)
}

// PanSearchResponse API响应结构
type PanSearchResponse struct {
	PageProps struct {
		Data pageData `json:"data"`
	} `json:"pageProps"`
}

type pageData struct {
	Total int             `json:"total"`
	Data  []PanSearchItem `json:"data"`
}

// PanSearchItem API响应中的单个结果项
type PanSearchItem struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Pan     string `json:"pan"`
	Image   string `json:"image"`
	Time    string `json:"time"`
}
