// Package templates holds the source templates for every plugin kind the
// host knows how to build.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"sort"
	"text/template"

	"github.com/platinummonkey/plughost/pkg/plugins"
)

//go:embed *.tmpl
var files embed.FS

const (
	// DefaultHostModule is the import path generated plugins depend on
	DefaultHostModule = "github.com/platinummonkey/plughost"

	// DefaultGoVersion is written into generated go.mod files
	DefaultGoVersion = "1.24"

	// DefaultGraphQLVersion must match the host's graphql-go requirement
	DefaultGraphQLVersion = "v0.8.1"

	// SourceFile and ManifestFile are the names rendered files are written under
	SourceFile   = "plugin.go"
	ManifestFile = "go.mod"
)

// RenderData is the input to a template
type RenderData struct {
	ID             string
	HostModule     string
	HostModuleDir  string
	GoVersion      string
	GraphQLVersion string
}

func (d RenderData) withDefaults() RenderData {
	if d.HostModule == "" {
		d.HostModule = DefaultHostModule
	}
	if d.HostModuleDir == "" {
		d.HostModuleDir = "."
	}
	if d.GoVersion == "" {
		d.GoVersion = DefaultGoVersion
	}
	if d.GraphQLVersion == "" {
		d.GraphQLVersion = DefaultGraphQLVersion
	}
	return d
}

// ModulePath is the module path of the generated plugin
func (d RenderData) ModulePath() string {
	return "plughost.local/plugins/" + d.ID
}

// EntryPoint is the exported factory symbol in generated source
func (d RenderData) EntryPoint() string {
	return plugins.EntryPointSymbol
}

// Rendered is the output of a template: the module manifest and the source
type Rendered struct {
	GoMod  []byte
	Source []byte
}

// Template renders the module manifest and source for one plugin kind. It is
// immutable and safe for concurrent use.
type Template struct {
	Kind     string
	source   *template.Template
	manifest *template.Template
}

// Render executes the template. The generated source is gofmt'd, which
// also rejects output that is not valid Go.
func (t *Template) Render(data RenderData) (*Rendered, error) {
	data = data.withDefaults()
	if data.ID == "" {
		data.ID = t.Kind
	}

	var mod bytes.Buffer
	if err := t.manifest.Execute(&mod, data); err != nil {
		return nil, fmt.Errorf("%w: %s manifest: %v", ErrRender, t.Kind, err)
	}

	var src bytes.Buffer
	if err := t.source.ExecuteTemplate(&src, t.Kind+".go.tmpl", data); err != nil {
		return nil, fmt.Errorf("%w: %s source: %v", ErrRender, t.Kind, err)
	}

	formatted, err := format.Source(src.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %s source: %v", ErrRender, t.Kind, err)
	}

	return &Rendered{GoMod: mod.Bytes(), Source: formatted}, nil
}

// Catalog maps plugin kinds to their templates
type Catalog struct {
	templates map[string]*Template
}

// NewCatalog returns the catalog of built-in kinds
func NewCatalog() *Catalog {
	manifest := template.Must(template.ParseFS(files, "go.mod.tmpl"))

	c := &Catalog{templates: make(map[string]*Template)}
	for _, kind := range []string{"foo", "bar"} {
		c.templates[kind] = &Template{
			Kind:     kind,
			source:   template.Must(template.ParseFS(files, "common.go.tmpl", kind+".go.tmpl")),
			manifest: manifest,
		}
	}
	return c
}

// Get returns the template for kind
func (c *Catalog) Get(kind string) (*Template, error) {
	t, ok := c.templates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return t, nil
}

// Kinds lists the known kinds in sorted order
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.templates))
	for kind := range c.templates {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
