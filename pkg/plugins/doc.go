// Package plugins manages the lifecycle of compiled plugin artifacts.
//
// # Overview
//
// A plugin is a native library named lib_<id>.<suffix> in the library
// directory. It exports a single factory, NewService, returning a
// Capability: the fixed set of query operations the host dispatches to.
//
// # Components
//
// Loader: opens an artifact through an Opener and resolves its entry point
// Registry: caches capabilities by identifier, loading on a miss
// Evictor: clears registry entries on a fixed interval
// Watcher: drops entries whose artifact disappears from disk
//
// Artifacts are never unloaded from the process. Evicting an entry only
// forgets the capability; the next request loads it again.
//
// # Usage Example
//
//	loader, err := plugins.NewLoader("/var/lib/plughost", plugins.NativeOpener{}, metrics, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//	registry := plugins.NewRegistry(loader, metrics, log)
//
//	capability, err := registry.Acquire(ctx, "foo")
//	if err != nil {
//		return err
//	}
//	result, err := capability.HandleRaw(ctx, dataset.New(false), []byte("{ foos { id } }"))
//
// # Related Packages
//
//   - pkg/codegen/builder: produces the artifacts this package loads
//   - pkg/api: dispatches HTTP requests to capabilities
package plugins
