package plugins

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/sirupsen/logrus"
)

// Watcher drops registry entries whose artifact disappears from the
// library directory, so a cached capability never outlives its artifact
type Watcher struct {
	libDir   string
	suffix   string
	registry *Registry
	watcher  *fsnotify.Watcher
	log      *logrus.Logger
}

// NewWatcher starts watching libDir, creating it if needed
func NewWatcher(libDir string, registry *Registry, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}

	suffix, err := LibSuffix()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(libDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(libDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", libDir, err)
	}

	return &Watcher{
		libDir:   libDir,
		suffix:   suffix,
		registry: registry,
		watcher:  fw,
		log:      log,
	}, nil
}

// Run processes filesystem events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) {
	defer observability.RecoverPanic(w.log, "artifact watcher")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Artifact watcher error")
		}
	}
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	id, ok := IdentifierFromArtifact(event.Name, w.suffix)
	if !ok {
		return
	}

	// A rebuild renames a fresh file over the old one, which shows up as a
	// rename on some platforms; only act when the artifact is really gone.
	if _, err := os.Stat(event.Name); err == nil {
		return
	}

	if w.registry.Remove(id) {
		w.log.WithField("plugin", id).Info("Artifact removed, dropped cached handler")
	}
}
