package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/engine"
	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database    string
	StoreKind   string
	StoreDir    string
	ResultSetID string
	PolicyDir   string
	PolicyName  string
	Salt        string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Re-export the artifacts of an existing result set",
		Long: `Rebuild the report for a previously derived result set and write
its JSON and PDF artifacts again.

Artifacts are content-keyed and immutable, so re-exporting an
unchanged result set converges on the stored bytes. Use this to
regenerate artifacts after a store purge, or to produce an external
view of a result set that was originally exported internally.

Example:
  todiscope export --db ./todiscope.db --store fs --store-dir ./artifacts \
    --result-set 6a1f0c2e-... --policy-dir ./policies --policy deal_readiness`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.StoreKind, "store", "memory", "artifact store backend (memory|fs)")
	cmd.Flags().StringVar(&opts.StoreDir, "store-dir", "", "artifact store directory (fs backend)")
	cmd.Flags().StringVar(&opts.ResultSetID, "result-set", "", "result set ID to export (required)")
	cmd.Flags().StringVar(&opts.PolicyDir, "policy-dir", "", "directory of CUE externalization policies")
	cmd.Flags().StringVar(&opts.PolicyName, "policy", "", "policy name to externalize with")
	cmd.Flags().StringVar(&opts.Salt, "salt", "", "anonymization salt")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("result-set")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	runOpts := engine.RunOptions{Salt: opts.Salt}
	if opts.PolicyName != "" {
		if opts.PolicyDir == "" {
			return WrapExitError(ExitCommandError, "--policy requires --policy-dir", nil)
		}
		policies, err := policy.Load(opts.PolicyDir)
		if err != nil {
			out.Error(ErrorCode(err), "policy load failed")
			return WrapExitError(ExitCommandError, "failed to load policies", err)
		}
		pol, ok := policies[opts.PolicyName]
		if !ok {
			return WrapExitError(ExitCommandError, fmt.Sprintf("policy %q not found", opts.PolicyName), nil)
		}
		runOpts.Policy = &pol
	}

	app, err := openApp(opts.Database, opts.StoreKind, opts.StoreDir)
	if err != nil {
		return err
	}
	defer app.Close()

	runner := engine.NewRunner(app.Ledger, app.Exporter, logging.New("runner"))
	result, err := runner.ReExport(cmd.Context(), engine.DealReadiness{}, opts.ResultSetID, runOpts)
	if err != nil {
		out.Error(ErrorCode(err), "export failed")
		return WrapExitError(ExitFailure, "export failed", err)
	}

	return out.Success(map[string]any{
		"result_set_id": result.ResultSetID,
		"findings":      len(result.Findings),
		"json_uri":      result.JSON.URI,
		"json_sha256":   result.JSON.SHA256,
		"pdf_uri":       result.PDF.URI,
		"pdf_sha256":    result.PDF.SHA256,
	})
}
