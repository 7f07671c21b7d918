package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/plughost/pkg/codegen/builder"
	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/platinummonkey/plughost/pkg/dataset"
	"github.com/platinummonkey/plughost/pkg/demo"
	"github.com/platinummonkey/plughost/pkg/gql"
	"github.com/platinummonkey/plughost/pkg/plugins"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// countingOpener counts Open calls on top of the in-process factories
type countingOpener struct {
	inner plugins.Opener
	opens int32
}

func (o *countingOpener) Open(id, path string) (plugins.Unit, error) {
	atomic.AddInt32(&o.opens, 1)
	return o.inner.Open(id, path)
}

func (o *countingOpener) count() int {
	return int(atomic.LoadInt32(&o.opens))
}

// brokenCapability fails every call
type brokenCapability struct{}

func (brokenCapability) ID() string { return "broken" }

func (brokenCapability) HandleQuery(context.Context, *dataset.Context, *gql.Request) (*gql.Result, error) {
	return nil, errors.New("boom")
}

func (brokenCapability) HandleBatch(context.Context, *dataset.Context, *gql.BatchRequest) (*gql.Result, error) {
	return nil, errors.New("boom")
}

func (brokenCapability) HandleRaw(context.Context, *dataset.Context, []byte) (*gql.Result, error) {
	return nil, errors.New("boom")
}

type fixture struct {
	server   *Server
	registry *plugins.Registry
	loader   *plugins.Loader
	builder  *builder.Builder
	opener   *countingOpener
	libDir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	root := t.TempDir()
	libDir := filepath.Join(root, "libs")

	static := plugins.NewStaticOpener(demo.Factories())
	static.Register("broken", func() plugins.Capability { return brokenCapability{} })
	opener := &countingOpener{inner: static}

	loader, err := plugins.NewLoader(libDir, opener, nil, log)
	require.NoError(t, err)
	registry := plugins.NewRegistry(loader, nil, log)

	b, err := builder.New(builder.Config{
		LibDir:        libDir,
		ScratchDir:    filepath.Join(root, "scratch"),
		HostModuleDir: root,
		Command:       []string{"sh", "-c", `printf artifact > "$1"`, "sh", builder.OutputPlaceholder},
		Timeout:       5 * time.Second,
	}, templates.NewCatalog(), nil, log)
	require.NoError(t, err)

	server := NewServer(Config{
		Registry:  registry,
		Builder:   b,
		Artifacts: loader,
		Log:       log,
	})

	return &fixture{
		server:   server,
		registry: registry,
		loader:   loader,
		builder:  b,
		opener:   opener,
		libDir:   libDir,
	}
}

// placeArtifact puts an artifact for id on disk without running a build
func (f *fixture) placeArtifact(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.libDir, 0755))
	require.NoError(t, os.WriteFile(f.loader.Path(id), []byte("artifact"), 0644))
}

func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, target, "", "")
}
