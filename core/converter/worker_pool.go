package converter

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// MaxWorkers 并发上限
const MaxWorkers = 32

// Span 工作列表中的连续区间 [Start, End)
type Span struct {
	Start int
	End   int
}

// Len 区间长度
func (s Span) Len() int {
	return s.End - s.Start
}

// Partition 将 n 个任务静态划分给 workers 个工作协程，余数分给前面的协程
func Partition(n, workers int) []Span {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	per, rem := n/workers, n%workers
	spans := make([]Span, workers)
	start := 0
	for i := range spans {
		size := per
		if i < rem {
			size++
		}
		spans[i] = Span{Start: start, End: start + size}
		start += size
	}
	return spans
}

// ProcessFunc 处理单个文件
type ProcessFunc func(ctx context.Context, entry FileEntry)

// ProgressFunc 进度回调，只由第一个分区的协程调用
type ProgressFunc func(processed, total int, current FileEntry)

// WorkerPool 基于 ants 的静态分区工作池
type WorkerPool struct {
	logger   *zap.Logger
	stats    *ConversionStats
	workers  int
	progress ProgressFunc
}

// NewWorkerPool 创建工作池
func NewWorkerPool(logger *zap.Logger, stats *ConversionStats, workers int, progress ProgressFunc) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &WorkerPool{
		logger:   logger,
		stats:    stats,
		workers:  workers,
		progress: progress,
	}
}

// Run 每个分区顺序处理，两个文件之间检查取消，返回时所有协程已结束
func (wp *WorkerPool) Run(ctx context.Context, entries []FileEntry, process ProcessFunc) error {
	spans := Partition(len(entries), wp.workers)
	if len(spans) == 0 {
		return nil
	}

	pool, err := ants.NewPool(len(spans))
	if err != nil {
		return fmt.Errorf("创建工作池失败: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for id, span := range spans {
		id, span := id, span
		wg.Add(1)
		task := func() {
			defer wg.Done()
			wp.runSpan(ctx, id, entries[span.Start:span.End], process)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			wp.logger.Error("提交任务失败", zap.Int("worker", id), zap.Error(err))
		}
	}
	wg.Wait()

	return ctx.Err()
}

func (wp *WorkerPool) runSpan(ctx context.Context, id int, entries []FileEntry, process ProcessFunc) {
	for _, entry := range entries {
		if ctx.Err() != nil {
			wp.logger.Debug("工作协程停止", zap.Int("worker", id))
			return
		}

		wp.safeProcess(ctx, id, entry, process)
		processed := wp.stats.IncProcessed()

		if id == 0 && wp.progress != nil {
			_, total := wp.stats.Progress()
			wp.progress(processed, total, entry)
		}
	}
}

// safeProcess 单个文件的 panic 不影响同一分区的其他文件
func (wp *WorkerPool) safeProcess(ctx context.Context, id int, entry FileEntry, process ProcessFunc) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("处理文件时发生panic",
				zap.Int("worker", id),
				zap.String("file", entry.Path),
				zap.Any("panic", r))
			wp.stats.Record(&Result{Outcome: OutcomeFailed, Input: entry.Path})
		}
	}()
	process(ctx, entry)
}
