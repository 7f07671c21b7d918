package plugins

import (
	"fmt"
	"sync"
)

// StaticOpener resolves identifiers to factories compiled into the host.
// The artifact on disk still has to exist; only its contents are ignored.
type StaticOpener struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewStaticOpener creates an opener over the given factories
func NewStaticOpener(factories map[string]Factory) *StaticOpener {
	o := &StaticOpener{factories: make(map[string]Factory, len(factories))}
	for id, f := range factories {
		o.factories[id] = f
	}
	return o
}

// Register adds or replaces the factory for id
func (o *StaticOpener) Register(id string, factory Factory) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.factories[id] = factory
}

// Open returns a unit exposing the factory registered for id
func (o *StaticOpener) Open(id, path string) (Unit, error) {
	o.mu.RLock()
	factory, ok := o.factories[id]
	o.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no in-process build registered for %q", id)
	}
	return staticUnit{factory: factory}, nil
}

type staticUnit struct {
	factory Factory
}

func (u staticUnit) Lookup(symbol string) (interface{}, error) {
	if symbol != EntryPointSymbol {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return u.factory, nil
}
