package batch

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/config"
)

const source = "batch.Process"

// Task processes one item. Tasks run concurrently and share nothing but
// ctx.
type Task[TItem, TResult any] func(ctx context.Context, item TItem) (TResult, error)

// ProgressFunc is called after each successful item. Calls may come from
// several goroutines.
type ProgressFunc[TResult any] func(completed, total int, result TResult)

// Process runs task over items on a bounded pool.
//
// Worker count is cfg.MaxWorkers when set, otherwise
// min(GOMAXPROCS*2, cfg.WorkerCap, len(items)).
//
// With fail-fast (the default) the first failure cancels the context seen
// by running tasks and no further items start; Process returns an *Error.
// Without fail-fast every item runs and Process returns an *Error only when
// all of them failed. Cancelling ctx stops scheduling and returns its error.
// The Result holds whatever completed in every case.
func Process[TItem, TResult any](
	ctx context.Context,
	cfg config.BatchConfig,
	items []TItem,
	task Task[TItem, TResult],
	progress ProgressFunc[TResult],
) (Result[TItem, TResult], error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return Result[TItem, TResult]{}, fmt.Errorf("failed to resolve observer: %w", err)
	}
	return ProcessWithObserver(ctx, cfg, observer, items, task, progress)
}

// ProcessWithObserver is Process with an explicit observer.
func ProcessWithObserver[TItem, TResult any](
	ctx context.Context,
	cfg config.BatchConfig,
	observer observability.Observer,
	items []TItem,
	task Task[TItem, TResult],
	progress ProgressFunc[TResult],
) (Result[TItem, TResult], error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	workers := WorkerCount(cfg.MaxWorkers, cfg.WorkerCap, len(items))
	failFast := cfg.FailFast()

	emit(ctx, observer, observability.EventBatchStart, observability.LevelInfo, map[string]any{
		"item_count":   len(items),
		"worker_count": workers,
		"fail_fast":    failFast,
	})

	var (
		mu      sync.Mutex
		result  = Result[TItem, TResult]{Results: []TaskResult[TItem, TResult]{}, Errors: []TaskError[TItem]{}}
		done    int
		group   *errgroup.Group
		taskCtx = ctx
	)

	if failFast {
		group, taskCtx = errgroup.WithContext(ctx)
	} else {
		group = new(errgroup.Group)
	}
	group.SetLimit(workers)

	for i, item := range items {
		if taskCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			if taskCtx.Err() != nil {
				return nil
			}

			value, err := task(taskCtx, item)

			mu.Lock()
			if err != nil {
				result.Errors = append(result.Errors, TaskError[TItem]{Index: i, Item: item, Err: err})
			} else {
				result.Results = append(result.Results, TaskResult[TItem, TResult]{Index: i, Item: item, Value: value})
				done++
			}
			completed := done
			mu.Unlock()

			emit(ctx, observer, observability.EventBatchItem, observability.LevelVerbose, map[string]any{
				"item_index":  i,
				"total_items": len(items),
				"error":       err != nil,
			})

			if err != nil {
				if failFast {
					return err
				}
				return nil
			}

			if progress != nil {
				progress(completed, len(items), value)
			}
			return nil
		})
	}

	_ = group.Wait()

	slices.SortFunc(result.Results, func(a, b TaskResult[TItem, TResult]) int { return a.Index - b.Index })
	slices.SortFunc(result.Errors, func(a, b TaskError[TItem]) int { return a.Index - b.Index })

	complete := func(failed bool) {
		emit(ctx, observer, observability.EventBatchComplete, observability.LevelInfo, map[string]any{
			"items_processed": len(result.Results),
			"items_failed":    len(result.Errors),
			"error":           failed,
		})
	}

	if err := ctx.Err(); err != nil {
		complete(true)
		return result, fmt.Errorf("batch cancelled: %w", err)
	}

	if len(result.Errors) > 0 && (failFast || len(result.Results) == 0) {
		complete(true)
		return result, &Error[TItem]{Errors: result.Errors}
	}

	complete(false)
	return result, nil
}

// WorkerCount sizes the pool: maxWorkers when positive, otherwise
// GOMAXPROCS*2 capped at workerCap (when positive) and itemCount, never
// below 1.
func WorkerCount(maxWorkers, workerCap, itemCount int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	workers := runtime.GOMAXPROCS(0) * 2
	if workerCap > 0 {
		workers = min(workers, workerCap)
	}
	workers = min(workers, itemCount)

	return max(workers, 1)
}

func emit(ctx context.Context, observer observability.Observer, eventType observability.EventType, level observability.Level, data map[string]any) {
	observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	})
}
