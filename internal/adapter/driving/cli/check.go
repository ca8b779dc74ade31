package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credaudit/internal/application"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	Limit  int
	Resume bool
}

// checkResult is the JSON output of the check command.
type checkResult struct {
	application.RunSummary
	NeedsResume bool `json:"needs_resume"`
}

func newCheckCommand(rootOpts *RootOptions, d *deps) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Look up breaches for every eligible identity",
		Long: `Look up every distinct email identity in the breach database, honoring the
configured rate limit, and record each result on all records sharing the identity.

Interrupting the command (Ctrl-C) stops between identities; results already
received are kept. Use --resume to skip identities that are already checked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, rootOpts, opts, d)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of identities to check (0 = all)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "skip identities that are already checked")

	return cmd
}

func runCheck(cmd *cobra.Command, rootOpts *RootOptions, opts *CheckOptions, d *deps) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, rootOpts, nil, d, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // read-mostly handle, nothing to flush

	summary, err := a.batch.RunBatch(ctx, application.RunOptions{Limit: opts.Limit, Resume: opts.Resume})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if rootOpts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), checkResult{RunSummary: summary, NeedsResume: summary.NeedsResume()})
	}
	RenderRunSummary(cmd.OutOrStdout(), summary)
	return nil
}
