package api

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/plughost/pkg/async"
	"github.com/sirupsen/logrus"
)

const preloadWorkers = 4

// Preload builds and loads ids ahead of their first request. Failures are
// logged and returned; they never stop the remaining ids.
func Preload(ctx context.Context, registry Registry, builds BuildService, ids []string, timeout time.Duration, log *logrus.Logger) []error {
	if log == nil {
		log = logrus.New()
	}
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	errs := async.Batch(ctx, log, ids, preloadWorkers, "plugin preload", timeout, func(ctx context.Context, id string) error {
		if err := builds.EnsureBuilt(ctx, id); err != nil {
			return fmt.Errorf("preload %s: %w", id, err)
		}
		if _, err := registry.EnsureLoaded(ctx, id); err != nil {
			return fmt.Errorf("preload %s: %w", id, err)
		}
		return nil
	})

	for _, err := range errs {
		log.WithError(err).Warn("Plugin preload failed")
	}
	log.WithFields(logrus.Fields{
		"plugins":  ids,
		"failed":   len(errs),
		"duration": time.Since(start).String(),
	}).Info("Plugin preload finished")
	return errs
}
