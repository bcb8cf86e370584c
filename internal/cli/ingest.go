package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Database string
}

// datasetFile is the JSON shape of an ingestion input file.
type datasetFile struct {
	DatasetVersion ledger.DatasetVersion `json:"dataset_version"`
	Records        []ledger.RawRecord    `json:"records"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <dataset.json>",
		Short: "Ingest a dataset file under checksum",
		Long: `Ingest a dataset version and its raw records.

Each record's payload is canonicalized and checksummed at ingestion
unless the record is marked legacy_no_checksum. Re-ingesting the same
file is a no-op: inserts are idempotent on record IDs.

Example:
  todiscope ingest --db ./todiscope.db ./dataset.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runIngest(opts *IngestOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	log := logging.New("ingest")

	ds, err := readDatasetFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dataset file", err)
	}

	app, err := openApp(opts.Database, "", "")
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.Ledger.CreateDatasetVersion(ctx, ds.DatasetVersion); err != nil {
		return WrapExitError(ExitCommandError, "failed to create dataset version", err)
	}

	for _, rec := range ds.Records {
		rec.DatasetVersionID = ds.DatasetVersion.ID
		if rec.IngestedAt == "" {
			rec.IngestedAt = ds.DatasetVersion.IngestedAt
		}
		if !rec.LegacyNoChecksum && rec.FileChecksum == "" {
			sum, err := checksum.Checksum(rec.Payload)
			if err != nil {
				out.Error(ErrorCode(err), fmt.Sprintf("record %s: payload not canonically encodable", rec.ID))
				return WrapExitError(ExitFailure, "ingest aborted", err)
			}
			rec.FileChecksum = sum
		}
		if err := app.Ledger.InsertRawRecord(ctx, rec); err != nil {
			return WrapExitError(ExitCommandError, "failed to insert record", err)
		}
	}

	log.Info("dataset ingested",
		"dataset_version_id", ds.DatasetVersion.ID,
		"records", len(ds.Records),
	)
	return out.Success(map[string]any{
		"dataset_version_id": ds.DatasetVersion.ID,
		"records":            len(ds.Records),
	})
}

// readDatasetFile decodes the input with UseNumber so numeric payload
// text survives byte for byte into the checksum.
func readDatasetFile(path string) (*datasetFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var ds datasetFile
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if ds.DatasetVersion.ID == "" {
		return nil, fmt.Errorf("dataset_version.id is required")
	}
	return &ds, nil
}
