package templates

import "errors"

var (
	// ErrUnsupportedKind is returned when no template exists for a plugin kind
	ErrUnsupportedKind = errors.New("unsupported plugin kind")

	// ErrRender is returned when a template fails to execute or produces
	// source that does not parse
	ErrRender = errors.New("failed to render plugin source")
)
