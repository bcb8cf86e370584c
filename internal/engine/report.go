package engine

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
)

// AssembleReport composes the internal report for a result set.
// Findings must already be in ledger order (id ASC); the section
// layout is a pure function of its arguments.
func AssembleReport(resultSetID string, dv ledger.DatasetVersion, findings []ledger.FindingRecord, params map[string]any) map[string]any {
	entries := make([]any, 0, len(findings))
	bySeverity := map[string]int{}
	for _, f := range findings {
		bySeverity[f.Severity]++
		entries = append(entries, map[string]any{
			"finding_id":    f.ID,
			"raw_record_id": f.RawRecordID,
			"kind":          f.Kind,
			"severity":      f.Severity,
			"title":         f.Title,
			"detail":        f.Detail,
			"evidence_id":   f.EvidenceID,
		})
	}

	severityCounts := make(map[string]any, len(bySeverity))
	for sev, n := range bySeverity {
		severityCounts[sev] = json.Number(strconv.Itoa(n))
	}

	return map[string]any{
		"summary": map[string]any{
			"result_set_id":      resultSetID,
			"dataset_version_id": dv.ID,
			"source_name":        dv.SourceName,
			"finding_count":      json.Number(strconv.Itoa(len(findings))),
			"severity_counts":    severityCounts,
		},
		"findings": entries,
		"internal_notes": map[string]any{
			"parameters":          params,
			"dataset_ingested_at": dv.IngestedAt,
		},
	}
}

// ReportLines renders one text line per finding for the PDF export.
func ReportLines(findings []ledger.FindingRecord) []string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", f.Severity, f.Kind, f.Title))
	}
	return lines
}
