package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/platinummonkey/plughost/pkg/gql"
	"github.com/platinummonkey/plughost/pkg/httputil"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/platinummonkey/plughost/pkg/plugins"
)

// root handles GET /
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteText(w, http.StatusOK, "it works")
}

// build handles GET /build/{id}
func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	id, _ := httputil.ParsePathString(r, "id")
	if err := s.builder.EnsureBuilt(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, ReplyOK)
}

// control handles GET /control/{verb}/{id}
func (s *Server) control(w http.ResponseWriter, r *http.Request) {
	verb, _ := httputil.ParsePathString(r, "verb")
	id, _ := httputil.ParsePathString(r, "id")

	switch verb {
	case "add":
		outcome, err := s.registry.EnsureLoaded(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if outcome == plugins.OutcomeAlreadyPresent {
			_ = httputil.WriteSuccess(w, ReplyAlreadyHasHandler)
			return
		}
		_ = httputil.WriteSuccess(w, ReplyOK)

	case "remove":
		if err := plugins.ValidateIdentifier(id); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.registry.Remove(id)
		_ = httputil.WriteSuccess(w, ReplyOK)

	default:
		s.writeError(w, r, fmt.Errorf("%w: %q", ErrUnknownVerb, verb))
	}
}

// graphqlQuery handles GET /api/{id}/graphql/{flag}
func (s *Server) graphqlQuery(w http.ResponseWriter, r *http.Request) {
	id, flag, ok := s.dispatchTarget(w, r)
	if !ok {
		return
	}
	result, err := s.dispatcher.DispatchQuery(r.Context(), id, flag, r.URL.Query())
	s.writeResult(w, r, result, err)
}

// graphqlBody handles POST /api/{id}/graphql/{flag}. A JSON content type
// selects the structured shape; anything else is a raw query.
func (s *Server) graphqlBody(w http.ResponseWriter, r *http.Request) {
	id, flag, ok := s.dispatchTarget(w, r)
	if !ok {
		return
	}

	body, err := httputil.ReadBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var result *gql.Result
	if isJSON(r.Header.Get("Content-Type")) {
		result, err = s.dispatcher.DispatchStructured(r.Context(), id, flag, body)
	} else {
		result, err = s.dispatcher.DispatchRaw(r.Context(), id, flag, body)
	}
	s.writeResult(w, r, result, err)
}

// graphiql handles GET /api/{id}/graphiql/{flag}
func (s *Server) graphiql(w http.ResponseWriter, r *http.Request) {
	id, flag, ok := s.dispatchTarget(w, r)
	if !ok {
		return
	}

	if _, err := s.registry.Acquire(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := gql.GraphiQLSource(fmt.Sprintf("/api/%s/graphql/%t", id, flag))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteHTML(w, http.StatusOK, page)
}

// listPlugins handles GET /plugins
func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	resp := PluginsResponse{
		Loaded:    s.registry.List(),
		Kinds:     []string{},
		Artifacts: []plugins.ArtifactInfo{},
	}
	if s.builder != nil {
		resp.Kinds = s.builder.Kinds()
	}
	if s.artifacts != nil {
		artifacts, err := s.artifacts.Artifacts()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.Artifacts = artifacts
	}
	_ = httputil.WriteSuccess(w, resp)
}

// listBuilds handles GET /builds
func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, BuildsResponse{Builds: s.builder.History()})
}

// getBuild handles GET /builds/{id}
func (s *Server) getBuild(w http.ResponseWriter, r *http.Request) {
	id, _ := httputil.ParsePathString(r, "id")
	record, ok := s.builder.Latest(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", ErrBuildNotFound, id))
		return
	}
	_ = httputil.WriteSuccess(w, record)
}

func (s *Server) dispatchTarget(w http.ResponseWriter, r *http.Request) (string, bool, bool) {
	id, _ := httputil.ParsePathString(r, "id")
	flag, err := httputil.ParsePathBool(r, "flag")
	if err != nil {
		// The route pattern only admits true and false
		httputil.WriteNotFound(w)
		return "", false, false
	}
	return id, flag, true
}

// writeResult answers 200 for a successful execution and 400 for one that
// reported errors. The body is the engine's response either way.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, result *gql.Result, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusBadRequest
	}
	_ = httputil.WriteRawJSON(w, status, result.Body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := observability.FromContext(r.Context()).WithError(err)

	if errors.Is(err, ErrCapability) {
		log.Error("Capability failed")
		httputil.WriteEmptyError(w, http.StatusInternalServerError)
		return
	}

	ae := classify(err)
	if ae.status >= http.StatusInternalServerError {
		log.WithField("code", ae.code).Error("Request failed")
	} else {
		log.WithField("code", ae.code).Debug("Request rejected")
	}
	httputil.WriteDetailedError(w, ae.status, ae.code, ae.message, ae.details)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
