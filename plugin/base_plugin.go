package plugin

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pansearch/util"
	"pansearch/util/logger"
)

// DefaultPluginTimeout 插件自身 HTTP 客户端的默认超时
const DefaultPluginTimeout = 30 * time.Second

// BasePlugin 插件的公共部分：名称、优先级、共享 HTTP 客户端，以及服务层下发的缓存键和关键词。
// 具体插件嵌入它，只需实现 Search。
type BasePlugin struct {
	name     string
	priority int

	mu             sync.RWMutex
	mainCacheKey   string
	currentKeyword string

	client *http.Client
	log    *logrus.Entry
}

// NewBasePlugin 创建插件公共部分，使用全局 HTTP 客户端（已配置代理）
func NewBasePlugin(name string, priority int) *BasePlugin {
	return &BasePlugin{
		name:     name,
		priority: priority,
		client:   util.GetHTTPClient(),
		log:      logger.Named("plugin").WithField("plugin", name),
	}
}

// Name 返回插件名称
func (p *BasePlugin) Name() string {
	return p.name
}

// Priority 返回插件优先级
func (p *BasePlugin) Priority() int {
	return p.priority
}

// SetMainCacheKey 设置主缓存键
func (p *BasePlugin) SetMainCacheKey(key string) {
	p.mu.Lock()
	p.mainCacheKey = key
	p.mu.Unlock()
}

// MainCacheKey 返回最近一次下发的主缓存键
func (p *BasePlugin) MainCacheKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mainCacheKey
}

// SetCurrentKeyword 设置当前搜索关键词
func (p *BasePlugin) SetCurrentKeyword(keyword string) {
	p.mu.Lock()
	p.currentKeyword = keyword
	p.mu.Unlock()
}

// CurrentKeyword 返回最近一次下发的关键词
func (p *BasePlugin) CurrentKeyword() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentKeyword
}

// Client 插件使用的 HTTP 客户端
func (p *BasePlugin) Client() *http.Client {
	return p.client
}

// SetClient 替换 HTTP 客户端（测试中指向 httptest 服务）
func (p *BasePlugin) SetClient(client *http.Client) {
	if client != nil {
		p.client = client
	}
}

// Logger 带插件名的日志
func (p *BasePlugin) Logger() *logrus.Entry {
	return p.log.WithField("keyword", p.CurrentKeyword())
}
