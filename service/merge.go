package service

import (
	"sort"
	"strings"

	"pansearch/model"
)

// MergeResults 合并两组结果，按 DedupKey 去重，先出现的保留
func MergeResults(a, b []model.SearchResult) []model.SearchResult {
	merged := make([]model.SearchResult, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))

	for _, list := range [][]model.SearchResult{a, b} {
		for _, r := range list {
			key := r.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	return merged
}

// SortResultsByTimeDesc 按时间倒序（稳定）；没有时间的结果排在最后，保持原有顺序
func SortResultsByTimeDesc(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		iZero := results[i].Datetime.IsZero()
		jZero := results[j].Datetime.IsZero()
		if iZero || jZero {
			return !iZero && jZero
		}
		return results[i].Datetime.After(results[j].Datetime)
	})
}

// MergeResultsByType 将结果中的链接按网盘类型（小写）分组。
// cloudTypes 非空时只保留其中的类型。
func MergeResultsByType(results []model.SearchResult, cloudTypes []string) model.MergedLinks {
	var allowed map[string]bool
	if len(cloudTypes) > 0 {
		allowed = make(map[string]bool, len(cloudTypes))
		for _, t := range cloudTypes {
			allowed[strings.ToLower(t)] = true
		}
	}

	merged := make(model.MergedLinks)
	for _, r := range results {
		for _, link := range r.Links {
			linkType := strings.ToLower(link.Type)
			if allowed != nil && !allowed[linkType] {
				continue
			}
			merged[linkType] = append(merged[linkType], model.MergedLink{
				URL:      link.URL,
				Password: link.Password,
				Note:     r.Title,
				Datetime: r.Datetime,
				Images:   r.Images,
			})
		}
	}
	return merged
}
