// Package policy defines externalization policies: which report
// sections may leave the system and which fields inside them must be
// redacted or anonymized first. Policies are authored in CUE and
// validated at load time, before any export runs.
package policy

import (
	"fmt"
	"sort"
)

// Visibility classifies a report section.
type Visibility string

const (
	// External sections are exported after field-level filtering.
	External Visibility = "external"
	// Internal sections never appear in an external view.
	Internal Visibility = "internal"
)

// Policy is a validated externalization policy. Sections absent from
// the map are treated as unclassified and dropped by the pipeline.
type Policy struct {
	Name             string
	Sections         map[string]Visibility
	RedactedFields   map[string]bool
	AnonymizedFields map[string]bool
}

// New builds and validates a policy from plain slices.
func New(name string, sections map[string]Visibility, redacted, anonymized []string) (Policy, error) {
	p := Policy{
		Name:             name,
		Sections:         map[string]Visibility{},
		RedactedFields:   map[string]bool{},
		AnonymizedFields: map[string]bool{},
	}
	for id, vis := range sections {
		p.Sections[id] = vis
	}
	for _, f := range redacted {
		p.RedactedFields[f] = true
	}
	for _, f := range anonymized {
		p.AnonymizedFields[f] = true
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate enforces the startup invariants: every section visibility
// is a known value, and no field sits in both the redacted and the
// anonymized set. A field in both would make export behavior depend on
// evaluation order, so overlap is rejected outright.
func (p Policy) Validate() error {
	for _, id := range sortedKeys(p.Sections) {
		vis := p.Sections[id]
		if vis != External && vis != Internal {
			return &PolicyError{
				Code:   ErrCodeInvalidVisibility,
				Policy: p.Name,
				Detail: fmt.Sprintf("section %q has visibility %q, want %q or %q", id, vis, External, Internal),
			}
		}
	}
	for _, f := range sortedFieldSet(p.RedactedFields) {
		if p.AnonymizedFields[f] {
			return &PolicyError{
				Code:   ErrCodeOverlap,
				Policy: p.Name,
				Detail: fmt.Sprintf("field %q is both redacted and anonymized", f),
			}
		}
	}
	return nil
}

// SectionVisibility reports the classification of a section and
// whether the policy classifies it at all.
func (p Policy) SectionVisibility(id string) (Visibility, bool) {
	vis, ok := p.Sections[id]
	return vis, ok
}

// IsRedacted reports whether a field must be omitted from external views.
func (p Policy) IsRedacted(field string) bool { return p.RedactedFields[field] }

// IsAnonymized reports whether a field's string values must be
// replaced with salted references.
func (p Policy) IsAnonymized(field string) bool { return p.AnonymizedFields[field] }

func sortedKeys(m map[string]Visibility) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldSet(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
