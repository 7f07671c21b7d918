package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/platinummonkey/plughost/pkg/plugins"
	"github.com/spf13/cobra"
)

func newArtifactsCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts",
		Short: "List built artifacts in the library directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			suffix, err := plugins.LibSuffix()
			if err != nil {
				return err
			}
			artifacts, err := plugins.ListArtifacts(o.LibDir, suffix)
			if err != nil {
				return err
			}
			if len(artifacts) == 0 {
				fmt.Fprintf(o.Out, "no artifacts in %s\n", o.LibDir)
				return nil
			}

			w := tabwriter.NewWriter(o.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSIZE\tBUILT\tBUILD ID\tSHA256")
			for _, a := range artifacts {
				built, buildID, digest := a.ModTime.UTC().Format(time.RFC3339), "-", "-"
				if m := a.Manifest; m != nil {
					built = m.BuiltAt.UTC().Format(time.RFC3339)
					buildID = m.BuildID
					digest = shortDigest(m.SHA256)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", a.ID, a.Size, built, buildID, digest)
			}
			return w.Flush()
		},
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	if d == "" {
		return "-"
	}
	return d
}
