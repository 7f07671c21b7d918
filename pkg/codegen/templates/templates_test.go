package templates

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Get(t *testing.T) {
	c := NewCatalog()

	assert.Equal(t, []string{"bar", "foo"}, c.Kinds())

	tmpl, err := c.Get("foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", tmpl.Kind)

	_, err = c.Get("baz")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestTemplate_Render(t *testing.T) {
	c := NewCatalog()

	tests := []struct {
		kind      string
		wantQuery string
		wantField string
	}{
		{kind: "foo", wantQuery: `Name: "FooQuery"`, wantField: `"foos"`},
		{kind: "bar", wantQuery: `Name: "BarQuery"`, wantField: `"bars"`},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			tmpl, err := c.Get(tt.kind)
			require.NoError(t, err)

			out, err := tmpl.Render(RenderData{ID: tt.kind, HostModuleDir: "/srv/plughost"})
			require.NoError(t, err)

			file, err := parser.ParseFile(token.NewFileSet(), SourceFile, out.Source, parser.ImportsOnly)
			require.NoError(t, err)
			assert.Equal(t, "main", file.Name.Name)

			var imports []string
			for _, imp := range file.Imports {
				imports = append(imports, strings.Trim(imp.Path.Value, `"`))
			}
			assert.Contains(t, imports, DefaultHostModule+"/pkg/plugins")
			assert.Contains(t, imports, "github.com/graphql-go/graphql")

			src := string(out.Source)
			assert.Contains(t, src, tt.wantQuery)
			assert.Contains(t, src, tt.wantField)
			assert.Contains(t, src, "func NewService() plugins.Capability")
			assert.Contains(t, src, `gql.NewHandler("`+tt.kind+`", schema)`)

			mod := string(out.GoMod)
			assert.Contains(t, mod, "module plughost.local/plugins/"+tt.kind)
			assert.Contains(t, mod, "replace "+DefaultHostModule+" => /srv/plughost")
			assert.Contains(t, mod, "github.com/graphql-go/graphql "+DefaultGraphQLVersion)
		})
	}
}

func TestTemplate_RenderDefaultsID(t *testing.T) {
	tmpl, err := NewCatalog().Get("bar")
	require.NoError(t, err)

	out, err := tmpl.Render(RenderData{})
	require.NoError(t, err)
	assert.Contains(t, string(out.Source), `gql.NewHandler("bar", schema)`)
	assert.Contains(t, string(out.GoMod), "replace "+DefaultHostModule+" => .")
}
