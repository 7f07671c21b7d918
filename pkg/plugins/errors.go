package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier is returned when an identifier is not safe to use in a path
	ErrInvalidIdentifier = errors.New("invalid plugin identifier")

	// ErrUnsupportedPlatform is returned when the host OS has no native library suffix
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrArtifactMissing is returned when no artifact exists for an identifier
	ErrArtifactMissing = errors.New("plugin artifact not found")

	// ErrLoad is returned when an artifact cannot be opened
	ErrLoad = errors.New("failed to load plugin artifact")

	// ErrSymbol is returned when the entry point cannot be resolved
	ErrSymbol = errors.New("failed to resolve plugin entry point")

	// ErrNotFound is returned when an identifier is neither registered nor loadable
	ErrNotFound = errors.New("handler not found")
)

// LoadError describes a failed load of one artifact. It unwraps to
// ErrArtifactMissing, ErrLoad or ErrSymbol.
type LoadError struct {
	ID   string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s from %s: %v", e.ID, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
