package cli

import (
	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/backfill"
	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
)

// BackfillOptions holds flags for the backfill command.
type BackfillOptions struct {
	*RootOptions
	Database   string
	BatchSize  int
	FlagLegacy bool
}

// NewBackfillCommand creates the backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackfillOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill checksums for legacy records",
		Long: `Compute and persist checksums for records that predate checksum capture.

Records whose checksum cannot be computed or verified are flagged
permanently legacy instead of being left unresolved. With
--flag-legacy, all missing records are flagged without any
computation. Both modes are idempotent.

Example:
  todiscope backfill --db ./todiscope.db --batch-size 200`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 100, "records per transaction")
	cmd.Flags().BoolVar(&opts.FlagLegacy, "flag-legacy", false, "flag all missing records legacy without computing")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runBackfill(opts *BackfillOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	app, err := openApp(opts.Database, "", "")
	if err != nil {
		return err
	}
	defer app.Close()

	coord := backfill.New(app.Ledger, logging.New("backfill"))
	ctx := cmd.Context()

	if opts.FlagLegacy {
		ids, err := coord.FlagLegacy(ctx)
		if err != nil {
			out.Error(ErrorCode(err), "flag-legacy failed")
			return WrapExitError(ExitCommandError, "flag-legacy failed", err)
		}
		return out.Success(map[string]any{"flagged_legacy": len(ids)})
	}

	report, err := coord.Run(ctx, opts.BatchSize)
	if err != nil {
		out.Error(ErrorCode(err), "backfill failed")
		return WrapExitError(ExitCommandError, "backfill failed", err)
	}
	return out.Success(map[string]any{
		"total_missing":  report.TotalMissing,
		"backfilled":     report.Backfilled,
		"flagged_legacy": report.FlaggedLegacy,
		"failures":       report.Failures,
	})
}
