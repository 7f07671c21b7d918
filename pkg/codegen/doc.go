// Package codegen turns a plugin identifier into a loadable native artifact.
//
// # Overview
//
// The work is split in two subpackages:
//
//  1. Templates (pkg/codegen/templates): the fixed catalog of plugin kinds.
//     Each kind renders a go.mod and a single plugin.go that exports
//     NewService.
//  2. Builder (pkg/codegen/builder): emits the rendered files into a scratch
//     workspace, runs the compiler, and moves the result into the library
//     directory as lib_<id>.<suffix>.
//
// # Build Pipeline
//
//	artifact present? -> done
//	catalog lookup    -> ErrUnsupportedKind, nothing written
//	workspace         -> ErrWorkspace
//	emit sources      -> ErrSourceEmit
//	compile           -> ErrCompile (combined output attached)
//	relocate          -> ErrArtifactMove
//
// The workspace is removed on every path. Builds for the same identifier
// are collapsed into one; different identifiers build in parallel.
//
// # Basic Usage
//
//	b, err := builder.New(builder.Config{
//		LibDir:        "/var/lib/plughost",
//		HostModuleDir: "/src/plughost",
//	}, templates.NewCatalog(), metrics, log)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := b.EnsureBuilt(ctx, "foo"); err != nil {
//		var be *builder.BuildError
//		if errors.As(err, &be) {
//			fmt.Println(be.Stage, be.Output)
//		}
//	}
//
// # Compatibility
//
// A plugin only loads into a host built from the same module version with
// the same toolchain. The generated go.mod replaces the host module with
// HostModuleDir and reuses the host's go.sum so both sides agree.
//
// # Related Packages
//
//   - pkg/plugins: loads the artifacts built here
package codegen
