package service

import (
	"strings"

	"pansearch/model"
)

// RankingHooks 决定没有时间也没有链接的结果是否仍然可见
type RankingHooks interface {
	// KeywordPriority 标题命中优先关键词时返回正数
	KeywordPriority(title string) int
	// ResultSource 结果的来源标识
	ResultSource(r model.SearchResult) string
	// SourceLevel 来源等级，数字越小越可信
	SourceLevel(source string) int
}

// DefaultRanking 不做任何加权
type DefaultRanking struct{}

func (DefaultRanking) KeywordPriority(string) int             { return 0 }
func (DefaultRanking) ResultSource(model.SearchResult) string { return "" }
func (DefaultRanking) SourceLevel(string) int                 { return 3 }

// KeywordRanking 标题包含优先关键词（如"合集"、"完"）的结果总是可见；
// 关键词越靠前优先级越高
type KeywordRanking struct {
	DefaultRanking
	Keywords []string
}

// NewKeywordRanking 创建关键词加权钩子，忽略空关键词
func NewKeywordRanking(keywords []string) KeywordRanking {
	kept := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kept = append(kept, k)
		}
	}
	return KeywordRanking{Keywords: kept}
}

func (k KeywordRanking) KeywordPriority(title string) int {
	title = strings.ToLower(title)
	for i, keyword := range k.Keywords {
		if strings.Contains(title, keyword) {
			return len(k.Keywords) - i
		}
	}
	return 0
}

// visible 有时间、有链接、命中优先关键词或来源等级足够高的结果才出现在 results 中
func visible(r model.SearchResult, hooks RankingHooks) bool {
	if r.HasTime() || len(r.Links) > 0 {
		return true
	}
	if hooks.KeywordPriority(r.Title) > 0 {
		return true
	}
	return hooks.SourceLevel(hooks.ResultSource(r)) <= 2
}
