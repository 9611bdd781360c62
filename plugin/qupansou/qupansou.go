package qupansou

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pansearch/model"
	"pansearch/plugin"
	"pansearch/util"
	"pansearch/util/json"
)

func init() {
	plugin.RegisterGlobalPlugin(NewQuPanSouPlugin())
}

const (
	// DefaultAPIURL 趣盘搜搜索接口
	DefaultAPIURL = "https://v.funletu.com/search"

	// DefaultPageSize 单次请求的结果数
	DefaultPageSize = 1000

	// 接口返回的时间格式
	updateTimeLayout = "2006-01-02 15:04:05"
)

// QuPanSouPlugin 趣盘搜插件
type QuPanSouPlugin struct {
	*plugin.BasePlugin
	apiURL string
}

// NewQuPanSouPlugin 创建新的趣盘搜插件
func NewQuPanSouPlugin() *QuPanSouPlugin {
	return &QuPanSouPlugin{
		BasePlugin: plugin.NewBasePlugin("qupansou", 2),
		apiURL:     DefaultAPIURL,
	}
}

// SetAPIURL 替换接口地址
func (p *QuPanSouPlugin) SetAPIURL(apiURL string) {
	p.apiURL = apiURL
}

// Search 执行搜索并返回结果
func (p *QuPanSouPlugin) Search(ctx context.Context, keyword string, ext map[string]interface{}) ([]model.SearchResult, error) {
	items, err := p.searchAPI(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("qupansou API error: %w", err)
	}

	results := p.convertResults(items)
	p.Logger().WithField("results", len(results)).Debug("qupansou 搜索完成")

	return plugin.FilterResultsByKeyword(results, keyword), nil
}

// searchAPI 向API发送请求
func (p *QuPanSouPlugin) searchAPI(ctx context.Context, keyword string) ([]QuPanSouItem, error) {
	reqBody := searchRequest{
		Style:   "get",
		Datasrc: "search",
		Query: searchQuery{
			CourseID:   1,
			SearchText: keyword,
		},
		Page:    searchPage{PageSize: DefaultPageSize, PageIndex: 1},
		Order:   searchOrder{Prop: "sort", Order: "desc"},
		Message: "请求资源列表数据",
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", util.DefaultUserAgent)
	req.Header.Set("Referer", "https://pan.funletu.com/")

	resp, err := p.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var apiResp QuPanSouResponse
	if err := json.DecodeReader(resp.Body, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != 200 {
		return nil, fmt.Errorf("API returned error: %s", apiResp.Message)
	}

	return apiResp.Data, nil
}

// convertResults 将API响应转换为标准SearchResult格式
func (p *QuPanSouPlugin) convertResults(items []QuPanSouItem) []model.SearchResult {
	results := make([]model.SearchResult, 0, len(items))

	for _, item := range items {
		if item.URL == "" {
			continue
		}

		var datetime time.Time
		if item.UpdateTime != "" {
			if parsed, err := time.ParseInLocation(updateTimeLayout, item.UpdateTime, time.Local); err == nil {
				datetime = parsed
			}
		}

		results = append(results, model.SearchResult{
			UniqueID: fmt.Sprintf("qupansou-%d", item.ID),
			Title:    stripTags(item.Title),
			Content:  fmt.Sprintf("类别: %s, 文件类型: %s, 大小: %s", item.Category, item.FileType, item.Size),
			Datetime: datetime,
			Links: []model.Link{{
				URL:      item.URL,
				Type:     util.GetLinkType(item.URL),
				Password: item.ExtCode,
			}},
		})
	}

	return results
}

// stripTags 去掉标题中的高亮标签
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

type searchRequest struct {
	Style   string      `json:"style"`
	Datasrc string      `json:"datasrc"`
	Query   searchQuery `json:"query"`
	Page    searchPage  `json:"page"`
	Order   searchOrder `json:"order"`
	Message string      `json:"message"`
}

type searchQuery struct {
	ID         string `json:"id"`
	Datetime   string `json:"datetime"`
	CourseID   int    `json:"courseid"`
	CategoryID string `json:"categoryid"`
	FileTypeID string `json:"filetypeid"`
	FileType   string `json:"filetype"`
	ReportID   string `json:"reportid"`
	ValidID    string `json:"validid"`
	SearchText string `json:"searchtext"`
}

type searchPage struct {
	PageSize  int `json:"pageSize"`
	PageIndex int `json:"pageIndex"`
}

type searchOrder struct {
	Prop  string `json:"prop"`
	Order string `json:"order"`
}

// QuPanSouResponse API响应结构
type QuPanSouResponse struct {
	Data    []QuPanSouItem `json:"data"`
	Total   int            `json:"total"`
	Status  int            `json:"status"`
	Message string         `json:"message"`
}

// QuPanSouItem API响应中的单个结果项
type QuPanSouItem struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	ExtCode    string `json:"extcode"`
	Size       string `json:"size"`
	Category   string `json:"category"`
	FileType   string `json:"filetype"`
	UpdateTime string `json:"updatetime"`
}
