package cli

import (
	"fmt"

	"github.com/platinummonkey/plughost/pkg/codegen/templates"
	"github.com/spf13/cobra"
)

func newKindsCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the plugin kinds that can be built",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kind := range templates.NewCatalog().Kinds() {
				fmt.Fprintln(o.Out, kind)
			}
			return nil
		},
	}
}
