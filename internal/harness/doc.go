// Package harness provides scenario-driven replay testing for the
// evidence ledger and its engines.
//
// A scenario is a YAML file describing one ingested dataset, the run
// parameters, and how many times to execute the engine against it. The
// harness ingests the records into a throwaway SQLite ledger, executes
// the runs against an in-memory artifact store, and reports whether the
// replays converged on one result set and byte-identical artifacts.
//
// # Scenario Format
//
//	name: readiness-baseline
//	description: "What this scenario demonstrates"
//	dataset:
//	  id: 0190a5e2-5f6a-7cde-8000-0000000000aa
//	  source_name: crm-export
//	  ingested_at: "2026-05-01T10:00:00Z"
//	  records:
//	    - raw_record_id: r-1
//	      source_system: crm
//	      source_record_id: c-1
//	      payload: { amount: "900.00" }
//	      bad_checksum: false
//	      legacy: false
//	parameters:
//	  amount_threshold: "100000.00"
//	runs: 2
//	expect:
//	  findings: 3
//
// Decimal payload values must be quoted strings: YAML floats lose their
// source text and are rejected at load time.
//
// Records marked bad_checksum are stored with a checksum that cannot
// match their payload, so every run against them must abort. Records
// marked legacy carry no checksum and bypass verification.
//
// # Golden Files
//
// RunWithGolden snapshots the scenario outcome as canonical JSON and
// compares it against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
