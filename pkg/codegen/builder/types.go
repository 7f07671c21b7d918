package builder

import (
	"time"

	"github.com/platinummonkey/plughost/pkg/codegen/templates"
)

// OutputPlaceholder is replaced in Config.Command with the path the build
// must write the artifact to.
const OutputPlaceholder = "{output}"

// Build statuses recorded in history
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Config configures a Builder
type Config struct {
	// LibDir receives built artifacts
	LibDir string

	// ScratchDir is the parent of per-build workspaces. Empty means the
	// system temp directory.
	ScratchDir string

	// HostModuleDir is the checkout of the host module that generated
	// plugins replace their host dependency with. Its go.sum is copied into
	// each workspace.
	HostModuleDir string

	// HostModule is the host's module path
	HostModule string

	// GoBinary is used by the default command
	GoBinary string

	// Command overrides the build command. It runs inside the workspace.
	Command []string

	// Timeout bounds a single build
	Timeout time.Duration

	HistorySize int
	HistoryTTL  time.Duration
}

// DefaultConfig returns the default builder configuration
func DefaultConfig() Config {
	return Config{
		LibDir:        "./libs",
		HostModuleDir: ".",
		HostModule:    templates.DefaultHostModule,
		GoBinary:      "go",
		Timeout:       5 * time.Minute,
		HistorySize:   128,
		HistoryTTL:    24 * time.Hour,
	}
}

func (c Config) command() []string {
	if len(c.Command) > 0 {
		return c.Command
	}
	bin := c.GoBinary
	if bin == "" {
		bin = "go"
	}
	return []string{bin, "build", "-mod=mod", "-buildmode=plugin", "-o", OutputPlaceholder, "."}
}

// Record is one build attempt
type Record struct {
	BuildID    string        `json:"build_id"`
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	Status     string        `json:"status"`
	Stage      string        `json:"stage,omitempty"`
	Error      string        `json:"error,omitempty"`
	Output     string        `json:"output,omitempty"`
	Artifact   string        `json:"artifact,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
}
