package pool

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout 给单个异步操作加上截止时间。
//
// d <= 0 时直接返回 op 自身的结果。否则 op 在派生出的带超时 context 中运行，
// 截止时间先到则立即返回 fallback。守卫返回时派生 context 会被取消，
// 遵守 context 的来源可以据此停止被放弃的请求；不遵守的来源仍会在后台跑完，其结果被丢弃。
func WithTimeout[T any](ctx context.Context, d time.Duration, fallback T, op func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := op(tctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		// 来源因截止时间返回的错误按超时处理
		if out.err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return fallback, nil
		}
		return out.value, out.err
	case <-tctx.Done():
		return fallback, nil
	}
}
