package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Go runs fn in its own goroutine. A panic is recovered and logged, and a
// returned error other than context cancellation is logged.
//
// Use this instead of a bare `go func()` for long-lived background work.
//
// Example:
//
//	async.Go(ctx, log, "artifact watcher", func(ctx context.Context) error {
//	    watcher.Run(ctx)
//	    return nil
//	})
func Go(ctx context.Context, log logrus.FieldLogger, task string, fn func(context.Context) error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	go func() {
		defer observability.RecoverPanic(log, task)
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("task", task).Error("Background task failed")
		}
	}()
}

// Batch runs fn over items with at most workers concurrent calls, each
// bounded by timeout. It waits for every item and returns the errors in
// item order, with panics converted to errors.
//
// Example:
//
//	errs := async.Batch(ctx, log, ids, 4, "preload", time.Minute, func(ctx context.Context, id string) error {
//	    return warm(ctx, id)
//	})
func Batch[T any](ctx context.Context, log logrus.FieldLogger, items []T, workers int, task string,
	timeout time.Duration, fn func(context.Context, T) error) []error {

	if log == nil {
		log = logrus.StandardLogger()
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]error, len(items))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = runTask(ctx, log, task, timeout, func(ctx context.Context) error {
					return fn(ctx, items[i])
				})
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func runTask(ctx context.Context, log logrus.FieldLogger, task string, timeout time.Duration,
	fn func(context.Context) error) (err error) {

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if perr := observability.PanicError(recover()); perr != nil {
			log.WithError(perr).WithField("task", task).Error("PANIC recovered")
			err = fmt.Errorf("%s: %w", task, perr)
		}
	}()

	return fn(ctx)
}
