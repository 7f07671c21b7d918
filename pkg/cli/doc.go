// Package cli implements plughostctl, the operator tool for plughost.
//
// # Commands
//
//	plughostctl kinds                  list buildable plugin kinds
//	plughostctl render <kind>          print or write generated sources
//	plughostctl build <id>             build an artifact into --lib-dir
//	plughostctl artifacts              list artifacts and their manifests
//	plughostctl status                 show what a running host has loaded
//
// build runs the host's own pipeline in process, so artifacts can be
// produced ahead of time and picked up by the host on first use.
package cli
