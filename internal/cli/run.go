package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/engine"
	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

// RunCmdOptions holds flags for the run command.
type RunCmdOptions struct {
	*RootOptions
	Database   string
	StoreKind  string
	StoreDir   string
	Dataset    string
	StartedAt  string
	ParamsFile string
	PolicyDir  string
	PolicyName string
	Salt       string
}

// runParamsFile is the JSON shape of --params-file.
type runParamsFile struct {
	TransactionScope map[string]any                  `json:"transaction_scope"`
	Parameters       map[string]any                  `json:"parameters"`
	OptionalInputs   map[string]engine.OptionalInput `json:"optional_inputs"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the deal-readiness engine over a dataset",
		Long: `Run the deal-readiness engine and export its report.

The run verifies every record's checksum, derives a replay-stable
result set from the full input tuple, persists findings and evidence
through conflict-checked inserts, and writes JSON and PDF exports via
the immutable artifact writer. With --policy-dir and --policy the
report is externalized through the named policy first.

Example:
  todiscope run --db ./todiscope.db --store fs --store-dir ./artifacts \
    --dataset 0190a5e2-5f6a-7cde-8000-0000000000aa \
    --started-at 2026-05-01T10:05:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.StoreKind, "store", "memory", "artifact store backend (memory|fs)")
	cmd.Flags().StringVar(&opts.StoreDir, "store-dir", "", "artifact store directory (fs backend)")
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "dataset version ID (required)")
	cmd.Flags().StringVar(&opts.StartedAt, "started-at", "", "run start time, RFC 3339 with zone (required)")
	cmd.Flags().StringVar(&opts.ParamsFile, "params-file", "", "JSON file with scope/parameters/optional inputs")
	cmd.Flags().StringVar(&opts.PolicyDir, "policy-dir", "", "directory of CUE externalization policies")
	cmd.Flags().StringVar(&opts.PolicyName, "policy", "", "policy name to externalize with")
	cmd.Flags().StringVar(&opts.Salt, "salt", "", "anonymization salt")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("dataset")
	_ = cmd.MarkFlagRequired("started-at")

	return cmd
}

func runEngine(opts *RunCmdOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	req := engine.RunRequest{
		DatasetVersionID: opts.Dataset,
		StartedAt:        opts.StartedAt,
		TransactionScope: map[string]any{},
		Parameters:       map[string]any{},
	}
	if opts.ParamsFile != "" {
		params, err := readParamsFile(opts.ParamsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read params file", err)
		}
		if params.TransactionScope != nil {
			req.TransactionScope = params.TransactionScope
		}
		if params.Parameters != nil {
			req.Parameters = params.Parameters
		}
		req.OptionalInputs = params.OptionalInputs
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
	result, err := runner.Run(cmd.Context(), engine.DealReadiness{}, req, runOpts)
	if err != nil {
		out.Error(ErrorCode(err), "run failed")
		return WrapExitError(ExitFailure, "run failed", err)
	}

	return out.Success(map[string]any{
		"run_id":        result.RunID,
		"result_set_id": result.ResultSetID,
		"findings":      len(result.Findings),
		"json_uri":      result.JSON.URI,
		"json_sha256":   result.JSON.SHA256,
		"pdf_uri":       result.PDF.URI,
		"pdf_sha256":    result.PDF.SHA256,
	})
}

func readParamsFile(path string) (*runParamsFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var params runParamsFile
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &params, nil
}
