// Package async provides safe concurrent execution primitives for background tasks.
//
// # Key Functions
//
// Go: run a long-lived task in a goroutine with panic recovery and error logging
//
//	async.Go(ctx, log, "http server", func(ctx context.Context) error {
//		return serve()
//	})
//
// Batch: process a slice with a bounded number of workers
//
//	errs := async.Batch(ctx, log, ids, 4, "preload", time.Minute, func(ctx context.Context, id string) error {
//		return warm(ctx, id)
//	})
//
// Panics never escape either helper. Go logs them; Batch also returns them
// as errors so the caller can count failures.
package async
