package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/plughost/pkg/codegen/builder"
	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/spf13/cobra"
)

type buildOptions struct {
	*Options
	scratchDir    string
	hostModuleDir string
	goBinary      string
	command       []string
	timeout       time.Duration
}

func newBuildCommand(o *Options) *cobra.Command {
	bo := &buildOptions{Options: o}

	cmd := &cobra.Command{
		Use:   "build <id>",
		Short: "Build a plugin artifact into the library directory",
		Long: `Build runs the same pipeline as the host's /build route, in this process.
An artifact that already exists is left alone.`,
		Example: `  plughostctl build foo --lib-dir /var/lib/plughost --host-module-dir /src/plughost`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return bo.run(cmd.Context(), args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&bo.scratchDir, "scratch-dir", "", "parent directory for build workspaces (default system temp)")
	flags.StringVar(&bo.hostModuleDir, "host-module-dir", ".", "host module checkout the plugin builds against")
	flags.StringVar(&bo.goBinary, "go", "go", "go toolchain binary")
	flags.StringArrayVar(&bo.command, "command", nil, "override the build command, one argument per flag; "+builder.OutputPlaceholder+" is the output path")
	flags.DurationVar(&bo.timeout, "timeout", 5*time.Minute, "bound on a single build")
	return cmd
}

func (o *buildOptions) run(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := builder.New(builder.Config{
		LibDir:        o.LibDir,
		ScratchDir:    o.scratchDir,
		HostModuleDir: o.hostModuleDir,
		HostModule:    templates.DefaultHostModule,
		GoBinary:      o.goBinary,
		Command:       o.command,
		Timeout:       o.timeout,
	}, templates.NewCatalog(), nil, o.logger())
	if err != nil {
		return err
	}

	err = b.EnsureBuilt(ctx, id)
	if err != nil {
		var be *builder.BuildError
		if errors.As(err, &be) && be.Output != "" {
			fmt.Fprintf(o.ErrOut, "%s stage output:\n%s\n", be.Stage, be.Output)
		}
		return err
	}

	if rec, ok := b.Latest(id); ok {
		fmt.Fprintf(o.Out, "built %s -> %s in %s\n", id, rec.Artifact, rec.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(o.Out, "%s already built at %s\n", id, b.ArtifactPath(id))
	}
	return nil
}
