package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/platinummonkey/plughost/pkg/httputil"
	"github.com/platinummonkey/plughost/pkg/middleware"
	"github.com/platinummonkey/plughost/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, body []byte) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func queryURL(id, flag, query string) string {
	return "/api/" + id + "/graphql/" + flag + "?query=" + url.QueryEscape(query)
}

func TestRoot(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "it works", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(httputil.RequestIDHeader))
}

func TestBuildThenQuery(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/build/foo")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `"ok"`, rec.Body.String())

	rec = f.get(queryURL("foo", "false", "{ foos { id } }"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"foos":[{"id":1},{"id":2}]}}`, rec.Body.String())

	rec = f.get(queryURL("foo", "true", "{ foos { id } }"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"foos":[{"id":3},{"id":4}]}}`, rec.Body.String())

	assert.Equal(t, 1, f.opener.count(), "second request should reuse the loaded handler")
}

func TestBuildErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/build/baz")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_kind", decodeError(t, rec.Body.Bytes()).Code)

	rec = f.get("/build/Foo")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_identifier", decodeError(t, rec.Body.Bytes()).Code)
}

func TestDispatch_ArtifactMissing(t *testing.T) {
	f := newFixture(t)

	rec := f.get(queryURL("foo", "false", "{ foos { id } }"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "artifact_missing", decodeError(t, rec.Body.Bytes()).Code)
	assert.Zero(t, f.registry.Len())
}

func TestDispatch_MissingQueryDoesNotLoad(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "foo")

	rec := f.get("/api/foo/graphql/false")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_query", decodeError(t, rec.Body.Bytes()).Code)
	assert.Zero(t, f.opener.count())
	assert.Zero(t, f.registry.Len())
}

func TestDispatch_InvalidVariables(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "foo")

	rec := f.get(queryURL("foo", "false", "{ foos { id } }") + "&variables=" + url.QueryEscape("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_variables", decodeError(t, rec.Body.Bytes()).Code)
	assert.Zero(t, f.opener.count())
}

func TestDispatch_QueryParamsWithVariables(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "bar")

	target := queryURL("bar", "false", "query One($id: Int!) { bar(id: $id) { id light } }") +
		"&operation_name=One&variables=" + url.QueryEscape(`{"id": 2}`)
	rec := f.get(target)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"bar":{"id":2,"light":"DARK"}}}`, rec.Body.String())
}

func TestDispatch_ExecutionErrorIs400(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "foo")

	rec := f.get(queryURL("foo", "false", "{ nope }"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "errors")
}

func TestDispatch_PostShapes(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "foo")

	t.Run("single", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/foo/graphql/false", "application/json",
			`{"query": "{ foos { id } }"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"data":{"foos":[{"id":1},{"id":2}]}}`, rec.Body.String())
	})

	t.Run("batch", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/foo/graphql/true", "application/json; charset=utf-8",
			`[{"query": "{ foos { id } }"}, {"query": "{ foo(id: 1) { name } }"}]`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body, 2)
	})

	t.Run("batch with a failing item", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/foo/graphql/true", "application/json",
			`[{"query": "{ foos { id } }"}, {"query": "{ nope }"}]`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("raw", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/foo/graphql/false", "application/graphql", "{ foos { id } }")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"data":{"foos":[{"id":1},{"id":2}]}}`, rec.Body.String())
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/foo/graphql/false", "application/json", `{"query":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_body", decodeError(t, rec.Body.Bytes()).Code)
	})

	t.Run("raw not utf-8", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/foo/graphql/false", "text/plain", "\xff\xfe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_body", decodeError(t, rec.Body.Bytes()).Code)
	})
}

func TestDispatch_CapabilityFailureIsEmpty500(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "broken")

	rec := f.get(queryURL("broken", "false", "{ x }"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestControl(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/control/add/foo")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec.Body.Bytes())
	assert.Equal(t, "artifact_missing", resp.Code)
	assert.Equal(t, "foo", resp.Details["id"])
	assert.NotContains(t, rec.Body.String(), f.libDir)

	f.placeArtifact(t, "foo")

	rec = f.get("/control/add/foo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"ok"`, rec.Body.String())

	rec = f.get("/control/add/foo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"already has handler"`, rec.Body.String())
	assert.Equal(t, 1, f.opener.count())

	rec = f.get("/control/remove/foo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"ok"`, rec.Body.String())
	assert.False(t, f.registry.Has("foo"))

	rec = f.get("/control/remove/foo")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.get("/control/restart/foo")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_verb", decodeError(t, rec.Body.Bytes()).Code)
}

func TestEvictionThenReload(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "bar")

	rec := f.get(queryURL("bar", "false", "{ bars { id } }"))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"bar"}, f.registry.Evict())
	assert.False(t, f.registry.Has("bar"))

	rec = f.get(queryURL("bar", "false", "{ bars { id } }"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"bars":[{"id":1},{"id":2},{"id":3},{"id":4},{"id":6},{"id":7}]}}`, rec.Body.String())
	assert.Equal(t, 2, f.opener.count())
}

func TestConcurrentFirstUseLoadsOnce(t *testing.T) {
	f := newFixture(t)
	f.placeArtifact(t, "foo")

	const n = 16
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = f.get(queryURL("foo", "false", "{ foos { id } }")).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, 1, f.opener.count())
	assert.Equal(t, 1, f.registry.Len())
}

func TestGraphiQL(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/api/foo/graphiql/true")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.placeArtifact(t, "foo")
	rec = f.get("/api/foo/graphiql/true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "/api/foo/graphql/true")
	assert.True(t, f.registry.Has("foo"))
}

func TestRouting(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/api/foo/graphql/maybe?query=x")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec.Body.Bytes()).Code)

	rec = f.do(http.MethodDelete, "/build/foo", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method_not_allowed", decodeError(t, rec.Body.Bytes()).Code)
}

func TestPluginsAndBuilds(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/builds/foo")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, f.get("/build/foo").Code)
	require.Equal(t, http.StatusOK, f.get("/control/add/foo").Code)

	rec = f.get("/plugins")
	require.Equal(t, http.StatusOK, rec.Code)
	var plugins PluginsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plugins))
	assert.Equal(t, []string{"bar", "foo"}, plugins.Kinds)
	require.Len(t, plugins.Loaded, 1)
	assert.Equal(t, "foo", plugins.Loaded[0].ID)
	require.Len(t, plugins.Artifacts, 1)
	require.NotNil(t, plugins.Artifacts[0].Manifest)
	assert.Equal(t, "foo", plugins.Artifacts[0].Manifest.Kind)

	rec = f.get("/builds")
	require.Equal(t, http.StatusOK, rec.Code)
	var builds BuildsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &builds))
	require.Len(t, builds.Builds, 1)
	assert.Equal(t, "success", builds.Builds[0].Status)

	rec = f.get("/builds/foo")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRoutesAreRateLimited(t *testing.T) {
	f := newFixture(t)
	f.server = NewServer(Config{
		Registry:  f.registry,
		Builder:   f.builder,
		Artifacts: f.loader,
		BuildLimiter: middleware.NewRateLimiter(&middleware.RateLimitConfig{
			RequestsPerWindow: 1,
			WindowDuration:    time.Hour,
			BurstSize:         1,
		}),
		Log: f.server.log,
	})

	assert.Equal(t, http.StatusOK, f.get("/build/foo").Code)
	assert.Equal(t, http.StatusOK, f.get("/control/add/foo").Code)

	rec := f.get("/build/bar")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rec.Body.Bytes()).Code)

	// dispatch is not throttled
	assert.Equal(t, http.StatusOK, f.get(queryURL("foo", "false", "{ foos { id } }")).Code)
}

func TestHealthRoutes(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.get("/health").Code)

	health := observability.NewHealthChecker("test")
	health.AddCheck("lib_dir", true, observability.DirCheck(f.libDir))
	f.server = NewServer(Config{
		Registry:  f.registry,
		Builder:   f.builder,
		Artifacts: f.loader,
		Health:    health,
		Log:       f.server.log,
	})

	assert.Equal(t, http.StatusOK, f.get("/health/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.get("/health/ready").Code, "lib dir does not exist yet")

	f.placeArtifact(t, "foo")
	rec := f.get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestDispatchMetricsIgnoreUnresolvedIDs(t *testing.T) {
	f := newFixture(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	f.server = NewServer(Config{
		Registry:  f.registry,
		Builder:   f.builder,
		Artifacts: f.loader,
		Metrics:   metrics,
		Log:       f.server.log,
	})

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusBadRequest, f.get(queryURL(fmt.Sprintf("JUNK-%d", i), "true", "{ foos { id } }")).Code)
		assert.Equal(t, http.StatusNotFound, f.get(queryURL(fmt.Sprintf("junk%d", i), "true", "{ foos { id } }")).Code)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.DispatchTotal))
	assert.Equal(t, 40.0, testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("unknown", "rejected")))

	require.Equal(t, http.StatusOK, f.get("/build/foo").Code)
	require.Equal(t, http.StatusOK, f.get(queryURL("foo", "false", "{ foos { id } }")).Code)
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.DispatchTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DispatchTotal.WithLabelValues("foo", "ok")))
}

type unavailableLimiter struct{}

func (unavailableLimiter) Take(context.Context, string) (bool, int, error) {
	return false, 0, errors.New("redis: connection refused")
}

func (unavailableLimiter) Config() *middleware.RateLimitConfig {
	return middleware.DefaultRateLimitConfig()
}

func TestBuildLimiterFailureMode(t *testing.T) {
	tests := []struct {
		name       string
		failClosed bool
		want       int
	}{
		{"fail open", false, http.StatusOK},
		{"fail closed", true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.server = NewServer(Config{
				Registry:               f.registry,
				Builder:                f.builder,
				Artifacts:              f.loader,
				BuildLimiter:           unavailableLimiter{},
				BuildLimiterFailClosed: tt.failClosed,
				Log:                    f.server.log,
			})

			rec := f.get("/build/foo")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
