package plugins

import (
	"context"
	"time"

	"github.com/platinummonkey/plughost/pkg/dataset"
	"github.com/platinummonkey/plughost/pkg/gql"
)

// EntryPointSymbol is the exported factory every plugin artifact must provide
const EntryPointSymbol = "NewService"

// Capability is the fixed operation set a loaded plugin exposes
type Capability interface {
	// ID returns the plugin identifier the capability answers for
	ID() string

	// HandleQuery serves a request built from query parameters
	HandleQuery(ctx context.Context, dc *dataset.Context, req *gql.Request) (*gql.Result, error)

	// HandleBatch serves a structured request in the protocol envelope
	HandleBatch(ctx context.Context, dc *dataset.Context, req *gql.BatchRequest) (*gql.Result, error)

	// HandleRaw serves a body that is itself the query text
	HandleRaw(ctx context.Context, dc *dataset.Context, body []byte) (*gql.Result, error)
}

// Factory is the signature of EntryPointSymbol
type Factory func() Capability

// Unit is a loaded native artifact
type Unit interface {
	Lookup(symbol string) (interface{}, error)
}

// Opener loads the native unit backing an identifier
type Opener interface {
	Open(id, path string) (Unit, error)
}

// Handle couples a Capability with the unit it came from. The registry
// stores handles so the unit lives at least as long as the capability.
type Handle struct {
	Capability Capability
	Unit       Unit
	Path       string
	LoadedAt   time.Time
}

// LoadOutcome reports what an explicit add did
type LoadOutcome string

const (
	OutcomeLoaded         LoadOutcome = "loaded"
	OutcomeAlreadyPresent LoadOutcome = "already_present"
)

// CapabilityLoader produces handles for identifiers
type CapabilityLoader interface {
	Load(ctx context.Context, id string) (*Handle, error)
}

// Info describes a registry entry
type Info struct {
	ID       string    `json:"id"`
	Path     string    `json:"path"`
	LoadedAt time.Time `json:"loaded_at"`
}
