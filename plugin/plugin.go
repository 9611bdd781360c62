package plugin

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pansearch/model"
)

// 全局插件注册表
var (
	globalRegistry     = make(map[string]SearchPlugin)
	globalRegistryLock sync.RWMutex
)

// SearchPlugin 搜索插件接口
type SearchPlugin interface {
	// Name 返回插件名称
	Name() string

	// Priority 返回插件优先级（数字越小优先级越高）
	Priority() int

	// Search 执行搜索，ctx 取消时应尽快返回
	Search(ctx context.Context, keyword string, ext map[string]interface{}) ([]model.SearchResult, error)

	// SetMainCacheKey 设置主缓存键，插件可据此做自己的缓存
	SetMainCacheKey(key string)

	// SetCurrentKeyword 设置当前搜索关键词（用于日志显示）
	SetCurrentKeyword(keyword string)
}

// RegisterGlobalPlugin 注册插件到全局注册表，通常在插件包的 init 中调用
func RegisterGlobalPlugin(plugin SearchPlugin) {
	if plugin == nil {
		return
	}

	name := plugin.Name()
	if name == "" {
		return
	}

	globalRegistryLock.Lock()
	defer globalRegistryLock.Unlock()

	globalRegistry[name] = plugin
}

// GetRegisteredPlugins 获取所有已注册的插件，按优先级、名称排序
func GetRegisteredPlugins() []SearchPlugin {
	globalRegistryLock.RLock()
	defer globalRegistryLock.RUnlock()

	plugins := make([]SearchPlugin, 0, len(globalRegistry))
	for _, plugin := range globalRegistry {
		plugins = append(plugins, plugin)
	}
	sortPlugins(plugins)

	return plugins
}

// GetPluginByName 根据名称获取已注册的插件
func GetPluginByName(name string) (SearchPlugin, bool) {
	globalRegistryLock.RLock()
	defer globalRegistryLock.RUnlock()

	plugin, exists := globalRegistry[name]
	return plugin, exists
}

func sortPlugins(plugins []SearchPlugin) {
	sort.SliceStable(plugins, func(i, j int) bool {
		if plugins[i].Priority() != plugins[j].Priority() {
			return plugins[i].Priority() < plugins[j].Priority()
		}
		return plugins[i].Name() < plugins[j].Name()
	})
}

// PluginManager 插件管理器，持有本服务实例启用的插件
type PluginManager struct {
	mu      sync.RWMutex
	plugins []SearchPlugin
}

// NewPluginManager 创建新的插件管理器
func NewPluginManager() *PluginManager {
	return &PluginManager{
		plugins: make([]SearchPlugin, 0),
	}
}

// RegisterPlugin 注册插件，同名插件只保留第一个
func (pm *PluginManager) RegisterPlugin(plugin SearchPlugin) {
	if plugin == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	for _, p := range pm.plugins {
		if strings.EqualFold(p.Name(), plugin.Name()) {
			return
		}
	}
	pm.plugins = append(pm.plugins, plugin)
}

// RegisterAllGlobalPlugins 注册所有全局插件
func (pm *PluginManager) RegisterAllGlobalPlugins() {
	for _, plugin := range GetRegisteredPlugins() {
		pm.RegisterPlugin(plugin)
	}
}

// RegisterGlobalPluginsWithFilter 只注册名称（不区分大小写）在 enabledPlugins 中的全局插件。
// enabledPlugins 为 nil 表示未配置，注册全部插件；空切片表示不启用任何插件。
func (pm *PluginManager) RegisterGlobalPluginsWithFilter(enabledPlugins []string) {
	if enabledPlugins == nil {
		pm.RegisterAllGlobalPlugins()
		return
	}

	enabledMap := make(map[string]bool, len(enabledPlugins))
	for _, name := range enabledPlugins {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			enabledMap[name] = true
		}
	}

	for _, plugin := range GetRegisteredPlugins() {
		if enabledMap[strings.ToLower(plugin.Name())] {
			pm.RegisterPlugin(plugin)
		}
	}
}

// GetPlugins 获取所有注册的插件（副本）
func (pm *PluginManager) GetPlugins() []SearchPlugin {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return append([]SearchPlugin(nil), pm.plugins...)
}

// Select 按名称筛选插件（不区分大小写）；names 中没有非空名称时返回全部插件
func (pm *PluginManager) Select(names []string) []SearchPlugin {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if name != "" {
			wanted[strings.ToLower(name)] = true
		}
	}

	all := pm.GetPlugins()
	if len(wanted) == 0 {
		return all
	}

	selected := make([]SearchPlugin, 0, len(wanted))
	for _, p := range all {
		if wanted[strings.ToLower(p.Name())] {
			selected = append(selected, p)
		}
	}
	return selected
}

// FilterResultsByKeyword 根据关键词过滤搜索结果的全局辅助函数
func FilterResultsByKeyword(results []model.SearchResult, keyword string) []model.SearchResult {
	if keyword == "" {
		return results
	}

	filteredResults := make([]model.SearchResult, 0, len(results))
	keywords := strings.Fields(strings.ToLower(keyword))

	for _, result := range results {
		lowerTitle := strings.ToLower(result.Title)
		lowerContent := strings.ToLower(result.Content)

		matched := true
		for _, kw := range keywords {
			if !strings.Contains(lowerTitle, kw) && !strings.Contains(lowerContent, kw) {
				matched = false
				break
			}
		}

		if matched {
			filteredResults = append(filteredResults, result)
		}
	}

	return filteredResults
}
