package plugins

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"

	"github.com/platinummonkey/plughost/pkg/dataset"
	"github.com/platinummonkey/plughost/pkg/gql"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type fakeCapability struct {
	id string
}

func (f fakeCapability) ID() string { return f.id }

func (f fakeCapability) HandleQuery(ctx context.Context, dc *dataset.Context, req *gql.Request) (*gql.Result, error) {
	return nil, nil
}

func (f fakeCapability) HandleBatch(ctx context.Context, dc *dataset.Context, req *gql.BatchRequest) (*gql.Result, error) {
	return nil, nil
}

func (f fakeCapability) HandleRaw(ctx context.Context, dc *dataset.Context, body []byte) (*gql.Result, error) {
	return nil, nil
}

func fakeFactory(id string) Factory {
	return func() Capability { return fakeCapability{id: id} }
}

// symbolUnit exposes a fixed symbol table
type symbolUnit map[string]interface{}

func (u symbolUnit) Lookup(symbol string) (interface{}, error) {
	v, ok := u[symbol]
	if !ok {
		return nil, errors.New("symbol not found")
	}
	return v, nil
}

// countingOpener records how often each identifier is opened
type countingOpener struct {
	inner Opener
	opens atomic.Int32
}

func (o *countingOpener) Open(id, path string) (Unit, error) {
	o.opens.Add(1)
	return o.inner.Open(id, path)
}

// loaderFunc adapts a function to CapabilityLoader
type loaderFunc func(ctx context.Context, id string) (*Handle, error)

func (f loaderFunc) Load(ctx context.Context, id string) (*Handle, error) {
	return f(ctx, id)
}

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func placeArtifact(t *testing.T, libDir, id string) string {
	t.Helper()
	suffix, err := LibSuffix()
	require.NoError(t, err)
	path := ArtifactPath(libDir, id, suffix)
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0644))
	return path
}

func handleFor(id string) *Handle {
	return &Handle{Capability: fakeCapability{id: id}, Path: "/lib/" + id}
}
