package api

import (
	"context"

	"github.com/platinummonkey/plughost/pkg/codegen/builder"
	"github.com/platinummonkey/plughost/pkg/plugins"
)

// Registry is the handler registry the routes dispatch through
type Registry interface {
	Acquire(ctx context.Context, id string) (plugins.Capability, error)
	EnsureLoaded(ctx context.Context, id string) (plugins.LoadOutcome, error)
	Remove(id string) bool
	List() []plugins.Info
}

// BuildService builds plugin artifacts and keeps their history
type BuildService interface {
	EnsureBuilt(ctx context.Context, id string) error
	Kinds() []string
	History() []*builder.Record
	Latest(id string) (*builder.Record, bool)
}

// ArtifactLister lists artifacts present in the library directory
type ArtifactLister interface {
	Artifacts() ([]plugins.ArtifactInfo, error)
}

// Replies of the control route
const (
	ReplyOK                = "ok"
	ReplyAlreadyHasHandler = "already has handler"
)

// PluginsResponse is the body of GET /plugins
type PluginsResponse struct {
	Loaded    []plugins.Info         `json:"loaded"`
	Kinds     []string               `json:"kinds"`
	Artifacts []plugins.ArtifactInfo `json:"artifacts"`
}

// BuildsResponse is the body of GET /builds
type BuildsResponse struct {
	Builds []*builder.Record `json:"builds"`
}
