package pool

import (
	"github.com/sirupsen/logrus"

	"pansearch/util/logger"
)

// SafeExecute 执行 fn，永不 panic、永不返回错误：
// 失败或 panic 时记录到 log 并返回 fallback。
func SafeExecute[T any](fn func() (T, error), fallback T, log *logrus.Entry) (result T) {
	if log == nil {
		log = logger.Named("pool")
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("执行异常，已使用兜底结果")
			result = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		log.WithError(err).Warn("执行失败，已使用兜底结果")
		return fallback
	}
	return v
}
