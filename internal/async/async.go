// Package async runs best-effort work off the request path.
package async

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Runner tracks background goroutines so shutdown (and tests) can wait for them.
type Runner struct {
	wg  sync.WaitGroup
	log *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Go runs fn in a new goroutine. A panic in fn is logged, not propagated.
func (r *Runner) Go(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("background task panicked", zap.String("task", name), zap.Any("panic", rec))
			}
		}()
		fn()
	}()
}

// Wait blocks until every task started with Go has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown waits for running tasks or until ctx is done.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait background tasks: %w", ctx.Err())
	}
}

// Task is one unit of a Settle batch.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Result is the outcome of one Task.
type Result struct {
	Name string
	Err  error
}

// Settle runs every task concurrently and waits for all of them. A failing or
// panicking task never cancels the others; results keep task order.
func Settle(ctx context.Context, tasks ...Task) []Result {
	results := make([]Result, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = Result{Name: task.Name, Err: fmt.Errorf("task %s panicked: %v", task.Name, rec)}
				}
			}()
			results[i] = Result{Name: task.Name, Err: task.Fn(ctx)}
		}(i, task)
	}
	wg.Wait()
	return results
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
