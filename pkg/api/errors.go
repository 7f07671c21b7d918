package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/plughost/pkg/codegen/builder"
	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/platinummonkey/plughost/pkg/gql"
	"github.com/platinummonkey/plughost/pkg/plugins"
)

var (
	// ErrUnknownVerb is returned for control verbs other than add and remove
	ErrUnknownVerb = errors.New("unknown control verb")

	// ErrBuildNotFound is returned when no build was recorded for an id
	ErrBuildNotFound = errors.New("no build recorded")
)

// apiError is the classified form of an error
type apiError struct {
	status  int
	code    string
	message string
	details map[string]string
}

type errorClass struct {
	sentinel error
	status   int
	code     string

	// public replaces the error text in responses when the error can carry
	// host paths
	public string
}

// Checked in order; the first match wins.
var errorClasses = []errorClass{
	{templates.ErrUnsupportedKind, http.StatusBadRequest, "unsupported_kind", ""},
	{plugins.ErrInvalidIdentifier, http.StatusBadRequest, "invalid_identifier", ""},
	{gql.ErrMissingQuery, http.StatusBadRequest, "missing_query", ""},
	{gql.ErrInvalidVariables, http.StatusBadRequest, "invalid_variables", ""},
	{gql.ErrInvalidBody, http.StatusBadRequest, "invalid_body", ""},
	{ErrUnknownVerb, http.StatusBadRequest, "unknown_verb", ""},

	{plugins.ErrArtifactMissing, http.StatusNotFound, "artifact_missing", "plugin artifact not found"},
	{plugins.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{ErrBuildNotFound, http.StatusNotFound, "not_found", ""},

	{builder.ErrWorkspace, http.StatusInternalServerError, "workspace_error", "failed to prepare build workspace"},
	{builder.ErrSourceEmit, http.StatusInternalServerError, "source_emit_error", "failed to write plugin source"},
	{builder.ErrCompile, http.StatusInternalServerError, "compile_error", ""},
	{builder.ErrArtifactMove, http.StatusInternalServerError, "artifact_move_error", "failed to install plugin artifact"},

	{plugins.ErrLoad, http.StatusInternalServerError, "load_error", "failed to load plugin artifact"},
	{plugins.ErrSymbol, http.StatusInternalServerError, "symbol_error", "failed to resolve plugin entry point"},
}

// classify maps an error onto a status and code. Unrecognized errors become
// a generic 500 that does not leak the cause.
func classify(err error) apiError {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return apiError{status: http.StatusRequestEntityTooLarge, code: "body_too_large", message: err.Error()}
	}

	for _, class := range errorClasses {
		if !errors.Is(err, class.sentinel) {
			continue
		}
		ae := apiError{status: class.status, code: class.code, message: err.Error()}
		if class.public != "" {
			ae.message = class.public
		}

		var buildErr *builder.BuildError
		var loadErr *plugins.LoadError
		switch {
		case errors.As(err, &buildErr):
			ae.details = map[string]string{"id": buildErr.ID, "stage": buildErr.Stage}
			if buildErr.Output != "" {
				ae.details["output"] = buildErr.Output
			}
		case errors.As(err, &loadErr):
			ae.details = map[string]string{"id": loadErr.ID}
		}
		return ae
	}

	return apiError{status: http.StatusInternalServerError, code: "internal_error", message: "internal server error"}
}
