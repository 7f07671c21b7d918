package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkspace is returned when the scratch workspace cannot be created
	ErrWorkspace = errors.New("failed to create build workspace")

	// ErrSourceEmit is returned when generated files cannot be written
	ErrSourceEmit = errors.New("failed to emit plugin source")

	// ErrCompile is returned when the build command fails or times out
	ErrCompile = errors.New("compilation failed")

	// ErrArtifactMove is returned when the built artifact cannot be moved
	// into the library directory
	ErrArtifactMove = errors.New("failed to move artifact")
)

// Build stages, as reported in BuildError.Stage and Record.Stage
const (
	StageWorkspace = "workspace"
	StageEmit      = "emit"
	StageCompile   = "compile"
	StageRelocate  = "relocate"
)

// BuildError describes a failed build. It unwraps to the stage sentinel.
type BuildError struct {
	ID     string
	Stage  string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s failed at %s: %v", e.ID, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func stageError(id, stage string, sentinel error, output string, cause error) *BuildError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %v", sentinel, cause)
	}
	return &BuildError{ID: id, Stage: stage, Output: output, Err: err}
}
