package async

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Limit normalizes a worker limit: non-positive values mean one worker per CPU.
func Limit(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// RunParallel executes tasks with at most limit running at once and returns the
// first error encountered. The context handed to tasks is cancelled as soon as
// one of them fails; RunParallel still waits for every started task.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "server-identities", Func: genServer},
//	    {Name: "client-identities", Func: genClient},
//	}
//	if err := RunParallel(ctx, tasks, 0); err != nil {
//	    return err
//	}
func RunParallel(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Limit(limit))

	for _, task := range tasks {
		g.Go(func() error {
			if err := task.Func(gctx); err != nil {
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Collect runs fn for every index in [0, n) with at most limit calls in flight
// and returns the results in index order. If any call fails, Collect returns
// the first error and no results.
func Collect[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}

	results := make([]T, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Limit(limit))

	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(gctx, i)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
