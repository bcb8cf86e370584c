// Package ids derives the deterministic identifiers that bind findings,
// evidence, and result sets to their exact input tuples.
//
// Every ID here is a pure function of canonicalized inputs: no randomness,
// no clock reads, no counters. Identical inputs yield identical IDs across
// processes and over time, which is what makes replays produce bitwise
// identical exports.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/galapoto/todiscope-v3-sub003/internal/canon"
)

// Root namespace for all todiscope identifier kinds.
// Per-kind namespaces hang off this so a finding ID and an evidence ID
// derived from the same component strings can never collide.
var nsRoot = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://todiscope.dev/ids/v1"))

// Namespace constants, one per logical ID kind.
var (
	NamespaceFinding         = kindNamespace("finding")
	NamespaceEvidence        = kindNamespace("evidence")
	NamespaceResultSet       = kindNamespace("result-set")
	NamespaceManifest        = kindNamespace("manifest")
	NamespaceChecklistStatus = kindNamespace("checklist-status")
)

func kindNamespace(kind string) uuid.UUID {
	return uuid.NewSHA1(nsRoot, []byte(kind))
}

// componentSeparator joins ID components before hashing. A non-printable
// unit separator prevents ("ab","c") from colliding with ("a","bc").
const componentSeparator = "\x1f"

// Derive computes a version-5 UUID for the given components within ns.
// Components are joined with componentSeparator; callers must pass
// stable, canonical component strings.
func Derive(ns uuid.UUID, components ...string) uuid.UUID {
	return uuid.NewSHA1(ns, []byte(strings.Join(components, componentSeparator)))
}

// HashParameters canonicalizes params (keys sorted, compact separators)
// and returns the hex SHA-256 of the encoding. Two logically identical
// parameter sets hash identically regardless of construction order.
func HashParameters(params any) (string, error) {
	data, err := canon.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("hash parameters: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ResultSetID derives the replay-stable join key for an engine run.
// It is a pure function of (dataset version, engine version, transaction
// scope, parameters, optional inputs): two physical runs with identical
// inputs share one result set even though their run IDs differ.
func ResultSetID(datasetVersionID, engineID, engineVersion string, transactionScope, parameters, optionalInputs any) (uuid.UUID, error) {
	scopeHash, err := HashParameters(transactionScope)
	if err != nil {
		return uuid.Nil, fmt.Errorf("result set id: transaction scope: %w", err)
	}
	paramsHash, err := HashParameters(parameters)
	if err != nil {
		return uuid.Nil, fmt.Errorf("result set id: parameters: %w", err)
	}
	inputsHash, err := HashParameters(optionalInputs)
	if err != nil {
		return uuid.Nil, fmt.Errorf("result set id: optional inputs: %w", err)
	}

	return Derive(NamespaceResultSet,
		datasetVersionID,
		engineID,
		engineVersion,
		scopeHash,
		paramsHash,
		inputsHash,
	), nil
}

// FindingID derives the deterministic ID for a finding.
func FindingID(datasetVersionID, engineID, rawRecordID, kind string, payload any) (uuid.UUID, error) {
	payloadHash, err := HashParameters(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("finding id: %w", err)
	}
	return Derive(NamespaceFinding, datasetVersionID, engineID, rawRecordID, kind, payloadHash), nil
}

// EvidenceID derives the deterministic ID for an evidence record.
func EvidenceID(datasetVersionID, engineID, kind string, payload any) (uuid.UUID, error) {
	payloadHash, err := HashParameters(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("evidence id: %w", err)
	}
	return Derive(NamespaceEvidence, datasetVersionID, engineID, kind, payloadHash), nil
}

// RunIDGenerator produces run IDs. Runs are physical executions, so their
// IDs are time-ordered and unique, NOT deterministic; replay stability
// lives in ResultSetID instead.
type RunIDGenerator interface {
	NewRunID() string
}

// UUIDv7RunIDs generates time-sortable UUIDv7 run IDs.
// Stateless and safe for concurrent use.
type UUIDv7RunIDs struct{}

// NewRunID returns a fresh UUIDv7 as a hyphenated string.
func (UUIDv7RunIDs) NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedRunIDs returns predetermined run IDs for tests, enabling
// deterministic golden comparison. Safe for concurrent use.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator returning ids in order.
// Panics when exhausted to fail fast on test misconfiguration.
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	return &FixedRunIDs{ids: ids}
}

// NewRunID returns the next predetermined ID.
func (g *FixedRunIDs) NewRunID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedRunIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
