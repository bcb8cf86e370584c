package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one replay test: a dataset to ingest, the run
// request to execute, and how many times to execute it.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Dataset is ingested into a fresh ledger before the first run.
	Dataset DatasetSpec `yaml:"dataset"`

	// StartedAt is the run request timestamp. Defaults to the dataset's
	// ingested_at when empty.
	StartedAt string `yaml:"started_at,omitempty"`

	// Parameters are passed to the engine unchanged.
	Parameters map[string]any `yaml:"parameters,omitempty"`

	// Runs is how many times to execute the identical request. Values
	// above one exercise replay convergence.
	Runs int `yaml:"runs"`

	// Expect optionally states the expected outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// DatasetSpec is the dataset ingested for a scenario.
type DatasetSpec struct {
	ID         string       `yaml:"id"` // UUIDv7
	SourceName string       `yaml:"source_name"`
	IngestedAt string       `yaml:"ingested_at"` // RFC 3339
	Records    []RecordSpec `yaml:"records"`
}

// RecordSpec is one raw record in a scenario dataset.
type RecordSpec struct {
	ID             string         `yaml:"raw_record_id"`
	SourceSystem   string         `yaml:"source_system"`
	SourceRecordID string         `yaml:"source_record_id"`
	Payload        map[string]any `yaml:"payload"`

	// BadChecksum stores a checksum that cannot match the payload, so
	// strict verification must fail on this record.
	BadChecksum bool `yaml:"bad_checksum,omitempty"`

	// Legacy stores the record without a checksum and with the legacy
	// flag set, so verification bypasses it.
	Legacy bool `yaml:"legacy,omitempty"`
}

// ExpectClause states the expected scenario outcome. A non-empty Error
// means every run must fail with that error class; otherwise all runs
// must complete and, when Findings is set, produce that many findings.
type ExpectClause struct {
	Findings *int   `yaml:"findings,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// Expected error classes.
const (
	ExpectChecksumMismatch = "checksum_mismatch"
	ExpectValidation       = "validation"
	ExpectNotFound         = "not_found"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently dropping a
// record or an expectation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Dataset.ID == "" {
		return fmt.Errorf("dataset.id is required")
	}
	if s.Dataset.SourceName == "" {
		return fmt.Errorf("dataset.source_name is required")
	}
	if s.Dataset.IngestedAt == "" {
		return fmt.Errorf("dataset.ingested_at is required")
	}
	if len(s.Dataset.Records) == 0 {
		return fmt.Errorf("dataset.records must be non-empty")
	}
	for i, rec := range s.Dataset.Records {
		if rec.ID == "" {
			return fmt.Errorf("records[%d]: raw_record_id is required", i)
		}
		if rec.Legacy && rec.BadChecksum {
			return fmt.Errorf("record %s: legacy and bad_checksum are mutually exclusive", rec.ID)
		}
		if err := rejectFloats(rec.Payload); err != nil {
			return fmt.Errorf("record %s payload: %w", rec.ID, err)
		}
	}
	if err := rejectFloats(s.Parameters); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	if s.Runs < 1 {
		return fmt.Errorf("runs must be at least 1")
	}
	if s.Expect != nil && s.Expect.Error != "" {
		switch s.Expect.Error {
		case ExpectChecksumMismatch, ExpectValidation, ExpectNotFound:
		default:
			return fmt.Errorf("expect.error: unknown error class %q", s.Expect.Error)
		}
	}
	return nil
}

// rejectFloats refuses float values anywhere in a scenario value tree.
// YAML floats lose their source text, which would make checksums depend
// on Go's float formatting; decimals must be quoted strings.
func rejectFloats(v any) error {
	switch val := v.(type) {
	case float64, float32:
		return fmt.Errorf("float value %v: quote decimals as strings", val)
	case map[string]any:
		for k, elem := range val {
			if err := rejectFloats(elem); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	case []any:
		for i, elem := range val {
			if err := rejectFloats(elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}
