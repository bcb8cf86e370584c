package harness

import (
	"fmt"

	"github.com/galapoto/todiscope-v3-sub003/internal/checksum"
	"github.com/galapoto/todiscope-v3-sub003/internal/engine"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
)

// AssertionError reports a failed scenario expectation with the
// expected and actual outcomes side by side.
type AssertionError struct {
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed:\n  expected: %s\n  actual: %s", e.Expected, e.Actual)
}

// CheckExpectations validates a result against the scenario's expect
// clause. A scenario without one only requires that every run completed.
func CheckExpectations(res *Result) error {
	exp := res.Scenario.Expect

	if exp != nil && exp.Error != "" {
		if res.Err == nil {
			return &AssertionError{
				Expected: fmt.Sprintf("run failure of class %q", exp.Error),
				Actual:   "all runs completed",
			}
		}
		if !matchesErrorClass(exp.Error, res.Err) {
			return &AssertionError{
				Expected: fmt.Sprintf("run failure of class %q", exp.Error),
				Actual:   res.Err.Error(),
			}
		}
		return nil
	}

	if res.Err != nil {
		return &AssertionError{
			Expected: "all runs completed",
			Actual:   res.Err.Error(),
		}
	}

	if exp != nil && exp.Findings != nil {
		got := len(res.Runs[0].Findings)
		if got != *exp.Findings {
			return &AssertionError{
				Expected: fmt.Sprintf("%d findings", *exp.Findings),
				Actual:   fmt.Sprintf("%d findings", got),
			}
		}
	}
	return nil
}

// AssertReplayStable verifies replay convergence across the completed
// runs: one result set, byte-identical artifacts, and a distinct run ID
// per execution.
func AssertReplayStable(res *Result) error {
	if len(res.Runs) == 0 {
		return &AssertionError{Expected: "at least one completed run", Actual: "none"}
	}
	if !res.ResultSetStable() {
		return &AssertionError{
			Expected: "one result set ID across all runs",
			Actual:   fmt.Sprintf("diverging result sets: %s", resultSetIDs(res.Runs)),
		}
	}
	if !res.ArtifactsStable() {
		return &AssertionError{
			Expected: "byte-identical artifacts across all runs",
			Actual:   "artifact digests diverged between runs",
		}
	}

	seen := make(map[string]bool, len(res.Runs))
	for _, run := range res.Runs {
		if seen[run.RunID] {
			return &AssertionError{
				Expected: "a distinct run ID per execution",
				Actual:   fmt.Sprintf("run ID %s repeated", run.RunID),
			}
		}
		seen[run.RunID] = true
	}
	return nil
}

func matchesErrorClass(class string, err error) bool {
	switch class {
	case ExpectChecksumMismatch:
		return checksum.IsChecksumMismatch(err)
	case ExpectValidation:
		return engine.IsValidation(err)
	case ExpectNotFound:
		return ledger.IsNotFound(err)
	default:
		return false
	}
}

func resultSetIDs(runs []engine.RunResult) []string {
	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.ResultSetID
	}
	return ids
}
