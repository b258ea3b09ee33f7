// internal/bot/worker.go
package bot

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pump-migrator/internal/migration"
	"github.com/rovshanmuradov/pump-migrator/internal/task"
)

// MigrateFunc выполняет одну миграцию от имени кошелька.
type MigrateFunc func(ctx context.Context, walletName string, req migration.Request) (*migration.Result, error)

// Outcome: итог одной задачи.
type Outcome struct {
	Task    *task.Task
	Result  *migration.Result
	Err     error
	Started time.Time
	Elapsed time.Duration
}

type WorkerPool struct {
	wg      sync.WaitGroup
	ctx     context.Context
	tasks   <-chan *task.Task
	results chan<- Outcome
	migrate MigrateFunc
	logger  *zap.Logger
}

func NewWorkerPool(
	ctx context.Context,
	logger *zap.Logger,
	migrate MigrateFunc,
	tasks <-chan *task.Task,
	results chan<- Outcome,
) *WorkerPool {
	return &WorkerPool{
		ctx:     ctx,
		logger:  logger,
		tasks:   tasks,
		results: results,
		migrate: migrate,
	}
}

func (wp *WorkerPool) Start(n int) {
	for i := 0; i < n; i++ {
		wp.wg.Add(1)
		go wp.worker(i + 1)
	}
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger := wp.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Worker shutting down due to context cancellation")
			return
		case t, ok := <-wp.tasks:
			if !ok {
				logger.Debug("Task channel closed")
				return
			}
			wp.results <- wp.handleTask(wp.ctx, t, logger)
		}
	}
}

func (wp *WorkerPool) handleTask(ctx context.Context, t *task.Task, logger *zap.Logger) Outcome {
	started := time.Now()
	out := Outcome{Task: t, Started: started}

	req, err := t.ToRequest()
	if err != nil {
		logger.Warn("Skipping task - invalid parameters", zap.String("task", t.TaskName), zap.Error(err))
		out.Err = err
		return out
	}

	logger.Info("Executing task",
		zap.String("task", t.TaskName),
		zap.String("wallet", t.WalletName),
		zap.String("token_mint", t.TokenMint),
		zap.Bool("use_bundle", t.UseBundle),
		zap.Bool("simulate_only", t.SimulateOnly),
	)

	out.Result, out.Err = wp.migrate(ctx, t.WalletName, req)
	out.Elapsed = time.Since(started)

	if out.Err != nil {
		logger.Error("Task failed",
			zap.String("task", t.TaskName),
			zap.Bool("safe_to_retry", migration.SafeToRetry(out.Err)),
			zap.Error(out.Err))
	} else {
		logger.Info("Task executed successfully",
			zap.String("task", t.TaskName),
			zap.String("id", out.Result.SignatureOrBundleID),
			zap.Duration("elapsed", out.Elapsed))
	}
	return out
}

// runPool прогоняет задачи через пул из workers воркеров. Задачи, не
// начатые до отмены ctx, получают ctx.Err(). Итоги упорядочены по Task.ID.
func runPool(ctx context.Context, logger *zap.Logger, workers int, migrate MigrateFunc, tasks []*task.Task) []Outcome {
	if workers <= 0 {
		workers = 1
	}

	taskCh := make(chan *task.Task, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	results := make(chan Outcome, len(tasks))
	pool := NewWorkerPool(ctx, logger, migrate, taskCh, results)
	pool.Start(workers)
	pool.Wait()
	close(results)

	done := make(map[*task.Task]bool, len(tasks))
	outcomes := make([]Outcome, 0, len(tasks))
	for out := range results {
		done[out.Task] = true
		outcomes = append(outcomes, out)
	}
	for _, t := range tasks {
		if !done[t] {
			outcomes = append(outcomes, Outcome{Task: t, Err: context.Cause(ctx)})
		}
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Task.ID < outcomes[j].Task.ID })
	return outcomes
}
