// Package cli is the cobra command surface of todiscope. Commands wire
// the ledger, artifact store, and engines together and map typed
// internal errors to stable codes at the boundary.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the todiscope CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "todiscope",
		Short: "Todiscope - deterministic evidence and artifact integrity",
		Long: "Todiscope ingests datasets under checksum, runs analysis engines with\n" +
			"replay-stable identifiers, and exports reports as immutable artifacts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			logging.Init(level, opts.Format, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
