// Package api exposes the plugin host over HTTP.
//
// Routes:
//
//	GET  /                          liveness, "it works"
//	GET  /build/{id}                build the plugin's artifact if missing
//	GET  /control/{verb}/{id}       add (load) or remove a handler
//	GET  /api/{id}/graphql/{flag}   query-parameter dispatch
//	POST /api/{id}/graphql/{flag}   JSON (single or batch) or raw dispatch
//	GET  /api/{id}/graphiql/{flag}  explorer page
//	GET  /plugins                   loaded handlers, known kinds, artifacts
//	GET  /builds, /builds/{id}      build history
//	GET  /metrics                   Prometheus exposition
//
// Dispatch never builds: a plugin must be built before it can serve, but it
// is loaded on first use. Errors are JSON bodies carrying a code, except a
// failure inside a capability, which is an empty 500.
package api
