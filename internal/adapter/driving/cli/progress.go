package cli

import (
	"github.com/spf13/cobra"
)

func newProgressCommand(rootOpts *RootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show breach-check progress across identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), rootOpts, nil, d, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // read-only command

			p, err := a.progress.GetProgress(cmd.Context())
			if err != nil {
				return err
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			RenderProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}
}
