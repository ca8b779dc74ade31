// Package cli is the command-line driving adapter.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/credaudit/internal/application"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	DBPath     string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// deps carries collaborators that tests replace.
type deps struct {
	clock application.Clock
}

// NewRootCommand creates the root command for the credaudit CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&deps{clock: application.SystemClock()})
}

func newRootCommand(d *deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "credaudit",
		Short: "Audit stored credentials against known breaches",
		Long: `credaudit checks the identities of stored credential records against the
Have I Been Pwned breach database under its rate limit, records the result on
every record sharing an identity, and scores each record's risk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML config file (overrides CREDAUDIT_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database path (overrides CREDAUDIT_DB_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newCheckCommand(opts, d))
	cmd.AddCommand(newProgressCommand(opts, d))
	cmd.AddCommand(newScoreCommand(opts, d))
	cmd.AddCommand(newWatchCommand(opts, d))

	return cmd
}
