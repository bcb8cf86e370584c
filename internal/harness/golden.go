package harness

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/galapoto/todiscope-v3-sub003/internal/canon"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
)

// Snapshot renders a completed scenario result as canonical JSON for
// golden file comparison. Only replay-stable facts go in: finding
// content and the convergence booleans, never run IDs or digests.
//
// Findings are ordered by (raw_record_id, kind) rather than by their
// ledger order, which is keyed on opaque deterministic IDs, so golden
// files stay human-readable.
func Snapshot(res *Result) ([]byte, error) {
	if res.Err != nil {
		return nil, fmt.Errorf("cannot snapshot a failed scenario: %w", res.Err)
	}
	if len(res.Runs) == 0 {
		return nil, fmt.Errorf("cannot snapshot a scenario with no runs")
	}

	findings := append([]ledger.FindingRecord(nil), res.Runs[0].Findings...)
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].RawRecordID != findings[j].RawRecordID {
			return findings[i].RawRecordID < findings[j].RawRecordID
		}
		return findings[i].Kind < findings[j].Kind
	})

	list := make([]any, len(findings))
	for i, f := range findings {
		list[i] = map[string]any{
			"raw_record_id": f.RawRecordID,
			"kind":          f.Kind,
			"severity":      f.Severity,
			"title":         f.Title,
		}
	}

	return canon.Marshal(map[string]any{
		"scenario_name":     res.Scenario.Name,
		"result_set_stable": res.ResultSetStable(),
		"artifacts_stable":  res.ArtifactsStable(),
		"finding_count":     json.Number(strconv.Itoa(len(findings))),
		"findings":          list,
	})
}

// RunWithGolden executes a scenario in a test temp dir, checks its
// expectations, and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario, t.TempDir())
	if err != nil {
		return err
	}
	if err := CheckExpectations(result); err != nil {
		return err
	}

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
