package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// 超过该毫秒数换算成 time.Duration 会溢出
const maxTimeoutMillis = math.MaxInt64 / int64(time.Millisecond)

// PluginTimeoutKey 扩展参数中覆盖单个来源超时时间的键（毫秒）
const PluginTimeoutKey = "__plugin_timeout_ms"

// SearchExt 解析后的扩展参数
type SearchExt struct {
	// TimeoutOverride 单个来源调用的超时时间，0 表示使用默认值
	TimeoutOverride time.Duration
	// Raw 透传给插件的其余参数
	Raw map[string]interface{}
}

// ParseSearchExt 从请求的扩展参数中取出约定的键，其余原样保留
func ParseSearchExt(ext map[string]interface{}) SearchExt {
	parsed := SearchExt{Raw: make(map[string]interface{}, len(ext))}
	for k, v := range ext {
		if k == PluginTimeoutKey {
			if ms := toMillis(v); ms > 0 {
				if ms > maxTimeoutMillis {
					ms = maxTimeoutMillis
				}
				parsed.TimeoutOverride = time.Duration(ms) * time.Millisecond
			}
			continue
		}
		parsed.Raw[k] = v
	}
	return parsed
}

func toMillis(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float32:
		return floatMillis(float64(n))
	case float64:
		return floatMillis(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return floatMillis(f)
	case interface{ Int64() (int64, error) }:
		// sonic 开启 UseNumber 后数字会解码为 json.Number
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// floatMillis 截断为整数毫秒，超出 int64 范围的值按最大值处理
func floatMillis(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}
