package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// DealReadinessID is the engine identifier; it selects the physical
// finding and run tables in the ledger.
const DealReadinessID = "deal-readiness"

// dealReadinessVersion participates in result-set derivation: bumping
// it makes replays of old runs land in new result sets.
const dealReadinessVersion = "2.3.0"

// defaultRequiredFields are checked when the run parameters do not
// override required_fields.
var defaultRequiredFields = []string{"counterparty", "amount", "signing_date"}

// DealReadiness flags transaction records that are not ready for deal
// execution: required fields absent, signing dates gone stale, or
// amounts above the review threshold.
//
// Evaluation is a pure function of Inputs. Records are processed in
// the order given and checks run in a fixed order per record, so the
// draft sequence is replay-stable.
type DealReadiness struct{}

func (DealReadiness) ID() string      { return DealReadinessID }
func (DealReadiness) Version() string { return dealReadinessVersion }

// Evaluate runs the readiness checks over every record.
func (e DealReadiness) Evaluate(_ context.Context, in Inputs) ([]Draft, error) {
	required := requiredFields(in.Parameters)
	staleBefore, err := staleBoundary(in.Parameters)
	if err != nil {
		return nil, err
	}
	threshold, err := amountThreshold(in.Parameters)
	if err != nil {
		return nil, err
	}

	var drafts []Draft
	for _, rec := range in.Records {
		payload, ok := rec.Payload.(map[string]any)
		if !ok {
			continue
		}

		for _, field := range required {
			if hasValue(payload, field) {
				continue
			}
			drafts = append(drafts, Draft{
				RawRecordID: rec.ID,
				Kind:        "missing_field",
				Severity:    "high",
				Title:       fmt.Sprintf("Missing required field %q", field),
				Detail:      fmt.Sprintf("record %s from %s has no value for %q", rec.ID, rec.SourceSystem, field),
				EvidencePayload: map[string]any{
					"raw_record_id": rec.ID,
					"field":         field,
				},
			})
		}

		if staleBefore != nil {
			if signed, ok := recordDate(payload, "signing_date"); ok && signed.Before(*staleBefore) {
				drafts = append(drafts, Draft{
					RawRecordID: rec.ID,
					Kind:        "stale_date",
					Severity:    "medium",
					Title:       "Signing date is stale",
					Detail:      fmt.Sprintf("record %s was signed %s, before the staleness boundary", rec.ID, payload["signing_date"]),
					EvidencePayload: map[string]any{
						"raw_record_id": rec.ID,
						"signing_date":  payload["signing_date"],
					},
				})
			}
		}

		if threshold != nil {
			if amount, ok := recordAmount(payload, "amount"); ok && amount.Cmp(threshold) > 0 {
				drafts = append(drafts, Draft{
					RawRecordID: rec.ID,
					Kind:        "amount_threshold",
					Severity:    "low",
					Title:       "Amount exceeds review threshold",
					Detail:      fmt.Sprintf("record %s carries amount %s above the configured threshold", rec.ID, amountText(payload["amount"])),
					EvidencePayload: map[string]any{
						"raw_record_id": rec.ID,
						"amount":        payload["amount"],
					},
				})
			}
		}
	}
	return drafts, nil
}

func requiredFields(params map[string]any) []string {
	raw, ok := params["required_fields"].([]any)
	if !ok {
		return defaultRequiredFields
	}
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			fields = append(fields, s)
		}
	}
	return fields
}

func staleBoundary(params map[string]any) (*time.Time, error) {
	raw, ok := params["stale_before"].(string)
	if !ok {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, &ValidationError{
			Code: ErrCodeMissingField, Field: "parameters.stale_before",
			Message: fmt.Sprintf("not a YYYY-MM-DD date: %v", err),
		}
	}
	return &t, nil
}

func amountThreshold(params map[string]any) (*big.Rat, error) {
	raw, present := params["amount_threshold"]
	if !present {
		return nil, nil
	}
	r, ok := parseDecimal(raw)
	if !ok {
		return nil, &ValidationError{
			Code: ErrCodeMissingField, Field: "parameters.amount_threshold",
			Message: fmt.Sprintf("not a decimal number: %v", raw),
		}
	}
	return r, nil
}

func hasValue(payload map[string]any, field string) bool {
	v, present := payload[field]
	if !present || v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

func recordDate(payload map[string]any, field string) (time.Time, bool) {
	s, ok := payload[field].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func recordAmount(payload map[string]any, field string) (*big.Rat, bool) {
	v, present := payload[field]
	if !present {
		return nil, false
	}
	return parseDecimal(v)
}

// parseDecimal accepts the decimal-as-string convention plus
// json.Number. Exact rational comparison, no float conversion.
func parseDecimal(v any) (*big.Rat, bool) {
	var text string
	switch val := v.(type) {
	case string:
		text = val
	case json.Number:
		text = val.String()
	default:
		return nil, false
	}
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, false
	}
	return r, true
}

func amountText(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
