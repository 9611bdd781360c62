package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task 一个延迟执行的任务
type Task[T any] func(ctx context.Context) T

// RunOrdered 以最多 limit 个并发执行任务，结果顺序与提交顺序一致（不是完成顺序）。
// limit 的取值范围由调用方保证，<=0 视为不限制。
// 运行器不捕获任务的失败，需要隔离失败的调用方应先用 SafeExecute 包装每个任务。
func RunOrdered[T any](ctx context.Context, tasks []Task[T], limit int) []T {
	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if limit <= 0 {
		limit = -1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = task(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
