// Package export turns assembled reports into externalized views and
// deterministic JSON/PDF artifacts. Every transformation here is a
// pure function of its inputs so that repeated exports of the same
// logical report produce byte-identical artifacts.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

// OmittedSectionsKey records the names of report sections the policy
// did not classify. Unclassified structure is never exported.
const OmittedSectionsKey = "__omitted_internal_sections__"

// Anonymize maps an identifier to a salted deterministic reference.
// Pure in (value, salt): independent exports with the same salt agree
// byte for byte, which the immutable writer depends on.
func Anonymize(value, salt string) string {
	sum := sha256.Sum256([]byte(value + salt))
	return "REF-" + hex.EncodeToString(sum[:])[:8]
}

// CreateExternalView filters report through pol.
//
// Top-level sections are classified by the policy: unknown sections
// are dropped and listed under OmittedSectionsKey, internal sections
// are dropped outright, external sections are walked recursively.
// Inside an external section, redacted fields are omitted and
// anonymized fields have string values replaced via Anonymize
// (lists of strings element-wise; anything else is omitted). Every
// other value, numbers included, passes through unmodified.
func CreateExternalView(report map[string]any, pol policy.Policy, salt string) (map[string]any, error) {
	view := map[string]any{}
	omitted := []any{}

	sections := make([]string, 0, len(report))
	for s := range report {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	for _, section := range sections {
		vis, known := pol.SectionVisibility(section)
		if !known {
			omitted = append(omitted, section)
			continue
		}
		if vis == policy.Internal {
			continue
		}
		view[section] = filterValue(report[section], pol, salt)
	}

	view[OmittedSectionsKey] = omitted

	if err := ValidateExternalView(view, pol); err != nil {
		return nil, err
	}
	return view, nil
}

func filterValue(v any, pol policy.Policy, salt string) any {
	switch val := v.(type) {
	case map[string]any:
		out := map[string]any{}
		for k, child := range val {
			if pol.IsRedacted(k) {
				continue
			}
			if pol.IsAnonymized(k) {
				if anon, ok := anonymizeValue(child, salt); ok {
					out[k] = anon
				}
				continue
			}
			out[k] = filterValue(child, pol, salt)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, filterValue(item, pol, salt))
		}
		return out
	default:
		return v
	}
}

// anonymizeValue replaces a string or list-of-strings with references.
// Any other shape reports false and the field is dropped; replacing a
// structured value with a hash would silently change its type.
func anonymizeValue(v any, salt string) (any, bool) {
	switch val := v.(type) {
	case string:
		return Anonymize(val, salt), true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, Anonymize(s, salt))
		}
		return out, true
	default:
		return nil, false
	}
}

// ValidateExternalView re-scans view independently of how it was
// built and fails hard if any internal section or redacted field name
// survived. CreateExternalView calls it on its own output; callers
// holding views from elsewhere can run it directly.
func ValidateExternalView(view map[string]any, pol policy.Policy) error {
	for section, v := range view {
		if section == OmittedSectionsKey {
			continue
		}
		if vis, ok := pol.SectionVisibility(section); ok && vis == policy.Internal {
			return &ViewError{
				Code:   ErrCodeViewViolation,
				Path:   section,
				Detail: "internal section present in external view",
			}
		}
		if err := scanForRedacted(section, v, pol); err != nil {
			return err
		}
	}
	return nil
}

func scanForRedacted(path string, v any, pol policy.Policy) error {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			childPath := path + "." + k
			if pol.IsRedacted(k) {
				return &ViewError{
					Code:   ErrCodeViewViolation,
					Path:   childPath,
					Detail: "redacted field present in external view",
				}
			}
			if err := scanForRedacted(childPath, child, pol); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range val {
			if err := scanForRedacted(fmt.Sprintf("%s[%d]", path, i), item, pol); err != nil {
				return err
			}
		}
	}
	return nil
}
