package plugins

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Registry caches loaded capabilities by identifier. Readers share the
// lock; every structural change takes it exclusively and only for as long
// as the map mutation lasts. Capabilities are never invoked under the lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Handle
	loader  CapabilityLoader
	flights singleflight.Group
	metrics *observability.Metrics
	log     *logrus.Logger
}

// NewRegistry creates an empty registry that fills misses from loader
func NewRegistry(loader CapabilityLoader, metrics *observability.Metrics, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}

	return &Registry{
		entries: make(map[string]*Handle),
		loader:  loader,
		metrics: metrics,
		log:     log,
	}
}

// Get returns the capability registered under id
func (r *Registry) Get(id string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return h.Capability, true
}

// Has reports whether id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[id]
	return ok
}

// Add inserts h under its capability's identity, replacing any prior entry
func (r *Registry) Add(h *Handle) error {
	if h == nil || h.Capability == nil {
		return fmt.Errorf("cannot register nil capability")
	}
	id := h.Capability.ID()

	r.mu.Lock()
	_, replaced := r.entries[id]
	r.entries[id] = h
	size := len(r.entries)
	r.mu.Unlock()

	r.metrics.SetRegistrySize(size)
	if replaced {
		r.log.WithField("plugin", id).Info("Replaced plugin handler")
	} else {
		r.log.WithField("plugin", id).Info("Registered plugin handler")
	}
	return nil
}

// Remove drops the entry for id. It reports whether an entry existed and is
// a no-op otherwise.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	size := len(r.entries)
	r.mu.Unlock()

	if ok {
		r.metrics.SetRegistrySize(size)
		r.log.WithField("plugin", id).Info("Removed plugin handler")
	}
	return ok
}

// Keys returns the registered identifiers in sorted order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.entries))
	for id := range r.entries {
		keys = append(keys, id)
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of registered capabilities
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List describes every entry, sorted by identifier
func (r *Registry) List() []Info {
	r.mu.RLock()
	infos := make([]Info, 0, len(r.entries))
	for id, h := range r.entries {
		infos = append(infos, Info{ID: id, Path: h.Path, LoadedAt: h.LoadedAt})
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Evict removes the listed identifiers under a single exclusive hold, or
// every entry when ids is empty. It returns the identifiers actually removed.
func (r *Registry) Evict(ids ...string) []string {
	r.mu.Lock()
	var removed []string
	if len(ids) == 0 {
		for id := range r.entries {
			removed = append(removed, id)
		}
		r.entries = make(map[string]*Handle)
	} else {
		for _, id := range ids {
			if _, ok := r.entries[id]; ok {
				delete(r.entries, id)
				removed = append(removed, id)
			}
		}
	}
	size := len(r.entries)
	r.mu.Unlock()

	sort.Strings(removed)
	r.metrics.RecordEvictions(len(removed))
	r.metrics.SetRegistrySize(size)
	return removed
}

// EnsureLoaded makes id present, loading it from its artifact on a miss.
// Concurrent misses for the same id share a single load, and absence is
// re-checked under the write lock right before inserting.
func (r *Registry) EnsureLoaded(ctx context.Context, id string) (LoadOutcome, error) {
	if err := ValidateIdentifier(id); err != nil {
		return "", err
	}
	if r.Has(id) {
		return OutcomeAlreadyPresent, nil
	}
	if r.loader == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	v, err, _ := r.flights.Do(id, func() (interface{}, error) {
		if r.Has(id) {
			return OutcomeAlreadyPresent, nil
		}

		h, err := r.loader.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if got := h.Capability.ID(); got != id {
			return nil, &LoadError{ID: id, Path: h.Path, Err: fmt.Errorf("%w: artifact reports identity %q", ErrLoad, got)}
		}

		r.mu.Lock()
		if _, exists := r.entries[id]; exists {
			r.mu.Unlock()
			return OutcomeAlreadyPresent, nil
		}
		r.entries[id] = h
		size := len(r.entries)
		r.mu.Unlock()

		r.metrics.SetRegistrySize(size)
		return OutcomeLoaded, nil
	})
	if err != nil {
		return "", err
	}
	return v.(LoadOutcome), nil
}

// Acquire returns the capability for id, loading it on a miss. The
// reference is copied out so the caller can invoke it without any lock.
func (r *Registry) Acquire(ctx context.Context, id string) (Capability, error) {
	// An eviction may land between load and lookup; one retry covers it.
	for attempt := 0; attempt < 2; attempt++ {
		if _, err := r.EnsureLoaded(ctx, id); err != nil {
			return nil, err
		}
		if c, ok := r.Get(id); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}
