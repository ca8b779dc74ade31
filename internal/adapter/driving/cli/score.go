package cli

import (
	"github.com/spf13/cobra"
)

func newScoreCommand(rootOpts *RootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Recompute and store the risk score of every record",
		Long: `Recompute the risk assessment of every record from its compromise flag,
breach state, account category, check age, password strength and password
reuse, store the results, and print a report ordered by score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), rootOpts, nil, d, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck // writes are committed by ScoreAll

			records, err := a.risk.ScoreAll(cmd.Context())
			if err != nil {
				return err
			}

			if rootOpts.Format == "json" {
				return RenderRiskJSON(cmd.OutOrStdout(), records)
			}
			return RenderRiskReport(cmd.OutOrStdout(), records)
		},
	}
}
