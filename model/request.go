package model

// 结果类型
const (
	ResultTypeResults      = "results"
	ResultTypeMergedByType = "merged_by_type"
	ResultTypeAll          = "all"
	// ResultTypeMerge 是 merged_by_type 的简写
	ResultTypeMerge = "merge"
)

// 数据来源类型
const (
	SourceTypeAll     = "all"
	SourceTypeTG      = "tg"
	SourceTypePlugin  = "plugin"
	sourceTypeChannel = "channel"
)

// SearchRequest 搜索请求参数
type SearchRequest struct {
	Keyword      string                 `json:"kw"`          // 搜索关键词，允许为空或极短
	Channels     []string               `json:"channels"`    // 搜索的频道列表，为空时使用默认频道
	Concurrency  int                    `json:"conc"`        // 并发搜索数量，<=0 时使用默认值
	ForceRefresh bool                   `json:"refresh"`     // 强制刷新，不使用缓存
	ResultType   string                 `json:"res"`         // 结果类型：all、results、merged_by_type(merge)
	SourceType   string                 `json:"src"`         // 数据来源类型：all(默认)、tg、plugin
	Plugins      []string               `json:"plugins"`     // 指定搜索的插件列表，不指定则搜索全部插件
	CloudTypes   []string               `json:"cloud_types"` // 只返回指定网盘类型的链接
	Ext          map[string]interface{} `json:"ext"`         // 扩展参数，透传给插件
}

// NormalizeResultType 返回有效的结果类型，未知值按 merged_by_type 处理
func NormalizeResultType(resultType string) string {
	switch resultType {
	case ResultTypeResults, ResultTypeAll:
		return resultType
	default:
		return ResultTypeMergedByType
	}
}

// NormalizeSourceType 返回有效的数据来源类型，未知值按 all 处理
func NormalizeSourceType(sourceType string) string {
	switch sourceType {
	case SourceTypeTG, sourceTypeChannel:
		return SourceTypeTG
	case SourceTypePlugin:
		return SourceTypePlugin
	default:
		return SourceTypeAll
	}
}
