package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pansearch/model"
	"pansearch/service"
	"pansearch/util"
	jsonutil "pansearch/util/json"
)

// SearchHandler 搜索处理函数，支持 GET 查询参数和 POST JSON 请求体
func SearchHandler(searchService *service.SearchService, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindSearchRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(400, "无效的请求参数: "+err.Error()))
			return
		}

		req.Keyword = strings.TrimSpace(req.Keyword)
		if req.Keyword == "" {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(400, "关键词不能为空"))
			return
		}

		result, err := searchService.Search(c.Request.Context(), req)
		if err != nil {
			log.WithError(err).WithField("keyword", req.Keyword).Error("搜索失败")
			writeJSON(c, http.StatusInternalServerError, model.NewErrorResponse(500, "搜索失败: "+err.Error()))
			return
		}

		writeJSON(c, http.StatusOK, model.NewSuccessResponse(result))
	}
}

// bindSearchRequest 从 URL 参数或请求体解析搜索请求
func bindSearchRequest(c *gin.Context) (model.SearchRequest, error) {
	var req model.SearchRequest

	if c.Request.Method != http.MethodGet {
		data, err := c.GetRawData()
		if err != nil {
			return req, err
		}
		if err := jsonutil.Unmarshal(data, &req); err != nil {
			return req, err
		}
		return req, nil
	}

	req = model.SearchRequest{
		Keyword:      c.Query("kw"),
		Channels:     util.SplitList(c.Query("channels")),
		Concurrency:  util.StringToInt(c.Query("conc")),
		ForceRefresh: c.Query("refresh") == "true",
		ResultType:   c.Query("res"),
		SourceType:   c.Query("src"),
		Plugins:      util.SplitList(c.Query("plugins")),
		CloudTypes:   util.SplitList(c.Query("cloud_types")),
	}

	if ext := c.Query("ext"); ext != "" {
		if err := jsonutil.Unmarshal([]byte(ext), &req.Ext); err != nil {
			return req, err
		}
	}
	return req, nil
}

// HealthHandler 健康检查
func HealthHandler(searchService *service.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := searchService.Options()

		plugins := searchService.RegisteredPlugins()
		pluginNames := make([]string, 0, len(plugins))
		for _, p := range plugins {
			pluginNames = append(pluginNames, p.Name())
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"plugin_count":   len(pluginNames),
			"plugins":        pluginNames,
			"channels":       opts.DefaultChannels,
			"channels_count": len(opts.DefaultChannels),
			"cache_enabled":  opts.CacheEnabled,
		})
	}
}

// writeJSON 使用 sonic 序列化响应
func writeJSON(c *gin.Context, status int, v interface{}) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(500, "序列化响应失败"))
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}
