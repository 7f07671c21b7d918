package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/platinummonkey/plughost/pkg/api"
	"github.com/spf13/cobra"
)

func newStatusCommand(o *Options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show loaded plugins on a running host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := fetchPlugins(ctx, o.Server)
			if err != nil {
				return err
			}

			fmt.Fprintf(o.Out, "kinds: %s\n\n", strings.Join(resp.Kinds, ", "))

			w := tabwriter.NewWriter(o.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLOADED\tARTIFACT")
			built := make(map[string]bool, len(resp.Artifacts))
			for _, a := range resp.Artifacts {
				built[a.ID] = true
			}
			seen := make(map[string]bool, len(resp.Loaded))
			for _, p := range resp.Loaded {
				seen[p.ID] = true
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.LoadedAt.UTC().Format(time.RFC3339), yesNo(built[p.ID]))
			}
			for _, a := range resp.Artifacts {
				if !seen[a.ID] {
					fmt.Fprintf(w, "%s\t-\tyes\n", a.ID)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func fetchPlugins(ctx context.Context, server string) (*api.PluginsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/plugins", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", server, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	var out api.PluginsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
