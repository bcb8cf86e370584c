package cli

import (
	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	Dataset  string
	Strict   bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify record checksums in a dataset",
		Long: `Verify every raw record of a dataset against its stored checksum.

Legacy-flagged records always pass. In soft mode (the default) records
with missing checksums pass with a warning; --strict fails them.

Example:
  todiscope verify --db ./todiscope.db --dataset 0190a5e2-5f6a-7cde-8000-0000000000aa`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "dataset version ID (required)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail records with missing checksums")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	log := logging.New("verify")

	app, err := openApp(opts.Database, "", "")
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Ledger.ListRawRecordsForDataset(cmd.Context(), opts.Dataset)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list records", err)
	}

	verifier := checksum.NewVerifier(log)
	verified, failed := 0, 0
	var failedIDs []string
	for _, rec := range records {
		ok, err := verifier.Verify(rec.Verifiable(), opts.Strict, false)
		if err != nil || !ok {
			failed++
			failedIDs = append(failedIDs, rec.ID)
			out.VerboseLog("record %s failed verification", rec.ID)
			continue
		}
		verified++
	}

	result := map[string]any{
		"dataset_version_id": opts.Dataset,
		"total":              len(records),
		"verified":           verified,
		"failed":             failed,
	}
	if failed > 0 {
		result["failed_record_ids"] = failedIDs
		if err := out.Success(result); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "verification failed", nil)
	}
	return out.Success(result)
}
