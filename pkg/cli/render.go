package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	*Options
	outDir        string
	hostModuleDir string
}

func newRenderCommand(o *Options) *cobra.Command {
	ro := &renderOptions{Options: o}

	cmd := &cobra.Command{
		Use:   "render <kind>",
		Short: "Print or write the generated sources for a plugin kind",
		Example: `  # show the generated plugin source
  plughostctl render foo

  # write go.mod and plugin.go into ./out/foo
  plughostctl render foo --out ./out/foo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.run(args[0])
		},
	}
	cmd.Flags().StringVar(&ro.outDir, "out", "", "directory to write go.mod and plugin.go into")
	cmd.Flags().StringVar(&ro.hostModuleDir, "host-module-dir", ".", "host module checkout the plugin's go.mod points at")
	return cmd
}

func (o *renderOptions) run(kind string) error {
	tmpl, err := templates.NewCatalog().Get(kind)
	if err != nil {
		return err
	}

	hostDir, err := filepath.Abs(o.hostModuleDir)
	if err != nil {
		return fmt.Errorf("failed to resolve host module dir: %w", err)
	}
	rendered, err := tmpl.Render(templates.RenderData{ID: kind, HostModuleDir: hostDir})
	if err != nil {
		return err
	}

	if o.outDir == "" {
		fmt.Fprintf(o.Out, "// %s\n%s\n// %s\n%s", templates.ManifestFile, rendered.GoMod, templates.SourceFile, rendered.Source)
		return nil
	}

	if err := os.MkdirAll(o.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(o.outDir, templates.ManifestFile), rendered.GoMod, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", templates.ManifestFile, err)
	}
	if err := os.WriteFile(filepath.Join(o.outDir, templates.SourceFile), rendered.Source, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", templates.SourceFile, err)
	}
	fmt.Fprintf(o.Out, "wrote %s and %s to %s\n", templates.ManifestFile, templates.SourceFile, o.outDir)
	return nil
}
