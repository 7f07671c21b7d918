package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// EvictAll selects every registered identifier when used in an evictor's id list
const EvictAll = "*"

// Evictor clears registry entries on a fixed interval. Evicted plugins are
// reloaded lazily on their next request.
type Evictor struct {
	registry *Registry
	ids      []string
	interval time.Duration
	cron     *cron.Cron
	log      *logrus.Logger
}

// ValidateEvictInterval rejects intervals the cron schedule cannot honor.
// "@every" runs on whole seconds with a one second floor.
func ValidateEvictInterval(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("eviction interval must be at least 1s, got %s", interval)
	}
	if interval%time.Second != 0 {
		return fmt.Errorf("eviction interval must be a whole number of seconds, got %s", interval)
	}
	return nil
}

// NewEvictor schedules eviction of ids every interval. An empty list or one
// containing EvictAll clears the whole registry.
func NewEvictor(registry *Registry, interval time.Duration, ids []string, log *logrus.Logger) (*Evictor, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if err := ValidateEvictInterval(interval); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.New()
	}

	e := &Evictor{
		registry: registry,
		ids:      normalizeEvictIDs(ids),
		interval: interval,
		log:      log,
	}

	e.cron = cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log))))
	if _, err := e.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() { e.Tick() }); err != nil {
		return nil, fmt.Errorf("failed to schedule eviction: %w", err)
	}

	return e, nil
}

// Start begins the recurring eviction
func (e *Evictor) Start() {
	e.cron.Start()
	e.log.WithFields(logrus.Fields{
		"interval": e.interval.String(),
		"ids":      e.ids,
	}).Info("Plugin evictor started")
}

// Stop halts scheduling and waits for a running tick, bounded by ctx
func (e *Evictor) Stop(ctx context.Context) error {
	done := e.cron.Stop()
	select {
	case <-done.Done():
		e.log.Info("Plugin evictor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs a single eviction pass and returns the removed identifiers
func (e *Evictor) Tick() []string {
	removed := e.registry.Evict(e.ids...)
	if len(removed) > 0 {
		e.log.WithField("plugins", removed).Info("Evicted plugin handlers")
	} else {
		e.log.Debug("Eviction tick found nothing to remove")
	}
	return removed
}

func normalizeEvictIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == EvictAll {
			return nil
		}
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
