// Package engine runs analysis engines over ingested datasets and
// persists their findings through the evidence ledger. An engine is a
// pure function of its inputs; everything stateful (verification,
// identifier derivation, persistence, export) lives in the Runner.
package engine

import (
	"context"

	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
)

// Inputs is the complete, verified input tuple handed to an engine.
type Inputs struct {
	DatasetVersionID string
	Records          []ledger.RawRecord
	TransactionScope map[string]any
	Parameters       map[string]any
	OptionalInputs   map[string]OptionalInput
}

// Draft is a finding an engine proposes before identifiers are
// derived. The evidence payload doubles as the content hashed into
// both the finding and evidence IDs, so it must contain every input
// the finding depends on.
type Draft struct {
	RawRecordID     string
	Kind            string
	Severity        string
	Title           string
	Detail          string
	EvidencePayload map[string]any
}

// Engine evaluates a dataset and proposes findings.
//
// Evaluate must be deterministic: no clock reads, no randomness, and a
// stable output order for identical inputs. Records arrive ordered by
// ID ascending and engines are expected to preserve that ordering.
type Engine interface {
	ID() string
	Version() string
	Evaluate(ctx context.Context, in Inputs) ([]Draft, error)
}
