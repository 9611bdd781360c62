package cache

import (
	"sort"
	"strings"
)

// ChannelCacheKey TG频道搜索的缓存键：tg:<关键词>:<排序后的频道列表>
func ChannelCacheKey(keyword string, channels []string) string {
	sorted := append([]string(nil), channels...)
	sort.Strings(sorted)
	return "tg:" + keyword + ":" + strings.Join(sorted, ",")
}

// PluginCacheKey 插件搜索的缓存键：plugin:<关键词>:<小写、去空、排序后的插件名>
func PluginCacheKey(keyword string, plugins []string) string {
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		if p == "" {
			continue
		}
		names = append(names, strings.ToLower(p))
	}
	sort.Strings(names)
	return "plugin:" + keyword + ":" + strings.Join(names, ",")
}
