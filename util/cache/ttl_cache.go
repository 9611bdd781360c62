package cache

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"pansearch/metrics"
)

// ErrInvalidTTL 写入时 TTL 必须为正数
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// TTLCache 按条目过期的内存缓存，底层的 go-cache 自带锁，
// 同一个键上的并发读写不会破坏内部状态。
type TTLCache[T any] struct {
	name  string
	items *gocache.Cache
}

// NewTTLCache 创建缓存实例，cleanupInterval 为后台清理过期条目的间隔（<=0 不清理）
func NewTTLCache[T any](name string, cleanupInterval time.Duration) *TTLCache[T] {
	return &TTLCache[T]{
		name:  name,
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Name 缓存名称
func (c *TTLCache[T]) Name() string {
	return c.name
}

// Get 命中当且仅当条目存在且未过期，过期条目在读取时删除
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T

	// go-cache 对过期条目返回 found=false，但不会移除
	raw, found := c.items.Get(key)
	if !found {
		c.items.Delete(key)
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return zero, false
	}

	value, ok := raw.(T)
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return zero, false
	}
	metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	return value, true
}

// Set 写入缓存，整条覆盖旧值
func (c *TTLCache[T]) Set(key string, value T, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	c.items.Set(key, value, ttl)
	return nil
}

// Delete 删除条目
func (c *TTLCache[T]) Delete(key string) {
	c.items.Delete(key)
}

// ItemCount 当前条目数（可能包含尚未清理的过期条目）
func (c *TTLCache[T]) ItemCount() int {
	return c.items.ItemCount()
}

// Flush 清空缓存
func (c *TTLCache[T]) Flush() {
	c.items.Flush()
}
