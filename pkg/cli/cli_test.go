package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/plughost/pkg/api"
	"github.com/platinummonkey/plughost/pkg/codegen/builder"
	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/platinummonkey/plughost/pkg/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommandWithStreams(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestKinds(t *testing.T) {
	out, _, err := run(t, "kinds")
	require.NoError(t, err)
	assert.Equal(t, "bar\nfoo\n", out)
}

func TestRender(t *testing.T) {
	out, _, err := run(t, "render", "foo")
	require.NoError(t, err)
	assert.Contains(t, out, "// go.mod")
	assert.Contains(t, out, "module plughost.local/plugins/foo")
	assert.Contains(t, out, "func NewService() plugins.Capability")

	dir := filepath.Join(t.TempDir(), "bar")
	out, _, err = run(t, "render", "bar", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, dir)
	assert.FileExists(t, filepath.Join(dir, templates.ManifestFile))
	assert.FileExists(t, filepath.Join(dir, templates.SourceFile))

	_, _, err = run(t, "render", "nope")
	assert.ErrorIs(t, err, templates.ErrUnsupportedKind)
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	libDir := filepath.Join(root, "libs")
	common := []string{
		"--lib-dir", libDir,
		"--scratch-dir", root,
		"--host-module-dir", root,
		"--timeout", "5s",
	}

	args := append([]string{"build", "foo"}, common...)
	args = append(args, "--command=sh", "--command=-c", `--command=printf artifact > "$1"`,
		"--command=sh", "--command="+builder.OutputPlaceholder)
	out, _, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "built foo -> ")

	suffix, err := plugins.LibSuffix()
	require.NoError(t, err)
	assert.FileExists(t, plugins.ArtifactPath(libDir, "foo", suffix))

	out, _, err = run(t, append([]string{"build", "foo"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "already built")

	args = append([]string{"build", "bar"}, common...)
	args = append(args, "--command=sh", "--command=-c", "--command=echo broken source >&2; exit 1")
	_, errOut, err := run(t, args...)
	assert.ErrorIs(t, err, builder.ErrCompile)
	assert.Contains(t, errOut, "broken source")
}

func TestArtifacts(t *testing.T) {
	libDir := t.TempDir()

	out, _, err := run(t, "artifacts", "--lib-dir", libDir)
	require.NoError(t, err)
	assert.Contains(t, out, "no artifacts")

	suffix, err := plugins.LibSuffix()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(plugins.ArtifactPath(libDir, "foo", suffix), []byte("artifact"), 0644))
	require.NoError(t, plugins.SaveManifest(&plugins.Manifest{
		ID:      "foo",
		Kind:    "foo",
		BuildID: "build-123",
		BuiltAt: time.Now(),
		SHA256:  "0123456789abcdef",
	}, plugins.ManifestPath(libDir, "foo")))

	out, _, err = run(t, "artifacts", "--lib-dir", libDir)
	require.NoError(t, err)
	assert.Contains(t, out, "build-123")
	assert.Contains(t, out, "0123456789ab")
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/plugins", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.PluginsResponse{
			Loaded:    []plugins.Info{{ID: "foo", LoadedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}},
			Kinds:     []string{"bar", "foo"},
			Artifacts: []plugins.ArtifactInfo{{ID: "foo"}, {ID: "bar"}},
		})
	}))
	defer srv.Close()

	out, _, err := run(t, "status", "--server", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "kinds: bar, foo")
	assert.Contains(t, out, "2024-05-01T00:00:00Z")
	assert.Regexp(t, `bar\s+-\s+yes`, out)
}

func TestStatus_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := run(t, "status", "--server", srv.URL)
	assert.ErrorContains(t, err, "500")
}
