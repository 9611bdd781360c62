package config

import (
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"pansearch/service"
	"pansearch/util"
)

// Config 应用配置结构
type Config struct {
	Port               string
	DefaultChannels    []string
	PriorityChannels   []string
	DefaultConcurrency int
	ProxyURL           string
	UseProxy           bool
	// 缓存相关配置
	CacheEnabled    bool
	CacheTTLMinutes int
	// 压缩相关配置
	EnableCompression bool
	MinSizeToCompress int // 最小压缩大小（字节）
	// GC相关配置
	GCPercent      int
	OptimizeMemory bool
	// 插件相关配置
	PluginTimeoutSeconds int
	PluginTimeout        time.Duration
	EnabledPlugins       []string // nil 表示未配置，启用全部插件
	PriorityKeywords     []string // 标题包含这些关键词的结果总是可见
	// 日志
	LogLevel  string
	LogFormat string
	// 认证
	AuthEnabled   bool
	AuthJWTSecret string
	// 限流，RateLimitRPS <= 0 表示不限流
	RateLimitRPS   float64
	RateLimitBurst int
	// 观测
	MetricsEnabled bool
	OTelEndpoint   string
	// HTTP服务器配置
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPMaxConns     int
}

// 全局配置实例
var AppConfig *Config

// Init 从环境变量加载配置到 AppConfig，并应用GC设置
func Init() {
	AppConfig = Load()
	applyGCSettings(AppConfig)
}

// Load 从环境变量读取配置
func Load() *Config {
	proxyURL := os.Getenv("PROXY")
	pluginTimeoutSeconds := getPositiveInt("PLUGIN_TIMEOUT", 30)
	channels := getDefaultChannels()

	return &Config{
		Port:               getString("PORT", "8888"),
		DefaultChannels:    channels,
		PriorityChannels:   util.SplitList(os.Getenv("PRIORITY_CHANNELS")),
		DefaultConcurrency: getDefaultConcurrency(len(channels)),
		ProxyURL:           proxyURL,
		UseProxy:           proxyURL != "",

		CacheEnabled:    getBool("CACHE_ENABLED", true),
		CacheTTLMinutes: getPositiveInt("CACHE_TTL", 60),

		// 默认禁用，通常由Nginx等处理
		EnableCompression: getBool("ENABLE_COMPRESSION", false),
		MinSizeToCompress: getPositiveInt("MIN_SIZE_TO_COMPRESS", 1024),

		GCPercent:      getPositiveInt("GC_PERCENT", 100),
		OptimizeMemory: getBool("OPTIMIZE_MEMORY", true),

		PluginTimeoutSeconds: pluginTimeoutSeconds,
		PluginTimeout:        time.Duration(pluginTimeoutSeconds) * time.Second,
		EnabledPlugins:       getEnabledPlugins(),
		PriorityKeywords:     util.SplitList(os.Getenv("PRIORITY_KEYWORDS")),

		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "text"),

		AuthEnabled:   getBool("AUTH_ENABLED", false),
		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),

		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getPositiveInt("RATE_LIMIT_BURST", 20),

		MetricsEnabled: getBool("METRICS_ENABLED", true),
		OTelEndpoint:   strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),

		HTTPReadTimeout:  getSeconds("HTTP_READ_TIMEOUT", 30*time.Second),
		HTTPWriteTimeout: getHTTPWriteTimeout(pluginTimeoutSeconds),
		HTTPIdleTimeout:  getSeconds("HTTP_IDLE_TIMEOUT", 120*time.Second),
		HTTPMaxConns:     getHTTPMaxConns(),
	}
}

// SearchOptions 搜索服务配置
func (c *Config) SearchOptions() service.Options {
	return service.Options{
		PriorityChannels:   c.PriorityChannels,
		DefaultChannels:    c.DefaultChannels,
		DefaultConcurrency: c.DefaultConcurrency,
		PluginTimeout:      c.PluginTimeout,
		CacheEnabled:       c.CacheEnabled,
		CacheTTL:           time.Duration(c.CacheTTLMinutes) * time.Minute,
	}
}

// UpdateDefaultConcurrency 在真实插件数已知时更新默认并发数（频道数+插件数+10），
// 通过 CONCURRENCY 显式指定时不调整
func (c *Config) UpdateDefaultConcurrency(pluginCount int) {
	if os.Getenv("CONCURRENCY") != "" {
		return
	}
	c.DefaultConcurrency = len(c.DefaultChannels) + pluginCount + 10
}

// 从环境变量获取默认频道列表，如果未设置则使用默认值
func getDefaultChannels() []string {
	channels := util.SplitList(os.Getenv("CHANNELS"))
	if len(channels) == 0 {
		return []string{"tgsearchers2"}
	}
	return channels
}

// 从环境变量获取默认并发数，未设置时按频道数估算，启动后由 UpdateDefaultConcurrency 修正
func getDefaultConcurrency(channelCount int) int {
	if concurrency := getPositiveInt("CONCURRENCY", 0); concurrency > 0 {
		return concurrency
	}
	return channelCount + 10
}

// 从环境变量获取启用的插件，未设置返回 nil
func getEnabledPlugins() []string {
	value, ok := os.LookupEnv("ENABLED_PLUGINS")
	if !ok {
		return nil
	}
	plugins := util.SplitList(value)
	if plugins == nil {
		return []string{}
	}
	return plugins
}

// 写入超时至少为插件超时的1.5倍
func getHTTPWriteTimeout(pluginTimeoutSeconds int) time.Duration {
	if timeout := getSeconds("HTTP_WRITE_TIMEOUT", 0); timeout > 0 {
		return timeout
	}

	timeout := 60 * time.Second
	extended := time.Duration(pluginTimeoutSeconds*3/2) * time.Second
	if extended > timeout {
		timeout = extended
	}
	return timeout
}

// 每个CPU核心200个连接，最少1000个
func getHTTPMaxConns() int {
	if maxConns := getPositiveInt("HTTP_MAX_CONNS", 0); maxConns > 0 {
		return maxConns
	}

	maxConns := runtime.NumCPU() * 200
	if maxConns < 1000 {
		maxConns = 1000
	}
	return maxConns
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getPositiveInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return def
	}
}

func getSeconds(key string, def time.Duration) time.Duration {
	if v := getPositiveInt(key, 0); v > 0 {
		return time.Duration(v) * time.Second
	}
	return def
}

// 应用GC设置
func applyGCSettings(c *Config) {
	debug.SetGCPercent(c.GCPercent)
	if c.OptimizeMemory {
		debug.FreeOSMemory()
	}
}
