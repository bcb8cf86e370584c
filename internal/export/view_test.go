package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

func testPolicy(t *testing.T) policy.Policy {
	t.Helper()
	p, err := policy.New("deal_readiness",
		map[string]policy.Visibility{
			"summary":        policy.External,
			"findings":       policy.External,
			"internal_notes": policy.Internal,
		},
		[]string{"ssn", "bank_account"},
		[]string{"counterparty", "deal_codename"},
	)
	require.NoError(t, err)
	return p
}

func TestCreateExternalView_SectionClassification(t *testing.T) {
	report := map[string]any{
		"summary":        map[string]any{"status": "ready"},
		"internal_notes": map[string]any{"reviewer": "jt"},
		"never_declared": map[string]any{"anything": "at all"},
	}

	view, err := CreateExternalView(report, testPolicy(t), "salt-1")
	require.NoError(t, err)

	assert.Contains(t, view, "summary")
	assert.NotContains(t, view, "internal_notes")
	assert.NotContains(t, view, "never_declared")
	assert.Equal(t, []any{"never_declared"}, view[OmittedSectionsKey])
}

func TestCreateExternalView_RedactedFieldsOmitted(t *testing.T) {
	report := map[string]any{
		"summary": map[string]any{
			"status": "ready",
			"ssn":    "123-45-6789",
			"nested": map[string]any{"bank_account": "DE89...", "ok": "kept"},
		},
	}

	view, err := CreateExternalView(report, testPolicy(t), "salt-1")
	require.NoError(t, err)

	summary := view["summary"].(map[string]any)
	assert.NotContains(t, summary, "ssn")
	assert.Equal(t, "ready", summary["status"])

	nested := summary["nested"].(map[string]any)
	assert.NotContains(t, nested, "bank_account")
	assert.Equal(t, "kept", nested["ok"])
}

func TestCreateExternalView_AnonymizedFields(t *testing.T) {
	report := map[string]any{
		"summary": map[string]any{
			"counterparty":  "Acme Holdings GmbH",
			"deal_codename": []any{"orion", "vega"},
		},
	}

	view, err := CreateExternalView(report, testPolicy(t), "salt-1")
	require.NoError(t, err)

	summary := view["summary"].(map[string]any)
	assert.Equal(t, Anonymize("Acme Holdings GmbH", "salt-1"), summary["counterparty"])
	assert.Equal(t, []any{
		Anonymize("orion", "salt-1"),
		Anonymize("vega", "salt-1"),
	}, summary["deal_codename"])
}

func TestCreateExternalView_NonStringAnonymizableOmitted(t *testing.T) {
	report := map[string]any{
		"summary": map[string]any{
			"counterparty":  map[string]any{"name": "Acme"},
			"deal_codename": []any{"orion", json.Number("7")},
		},
	}

	view, err := CreateExternalView(report, testPolicy(t), "salt-1")
	require.NoError(t, err)

	summary := view["summary"].(map[string]any)
	assert.NotContains(t, summary, "counterparty")
	assert.NotContains(t, summary, "deal_codename")
}

func TestCreateExternalView_NumbersPassThroughUntouched(t *testing.T) {
	report := map[string]any{
		"findings": map[string]any{
			"amount": json.Number("5000.00"),
			"count":  json.Number("12"),
		},
	}

	view, err := CreateExternalView(report, testPolicy(t), "salt-1")
	require.NoError(t, err)

	findings := view["findings"].(map[string]any)
	assert.Equal(t, json.Number("5000.00"), findings["amount"])
	assert.Equal(t, json.Number("12"), findings["count"])
}

func TestAnonymize_PureFunctionOfValueAndSalt(t *testing.T) {
	a := Anonymize("Acme Holdings GmbH", "salt-1")
	b := Anonymize("Acme Holdings GmbH", "salt-1")
	c := Anonymize("Acme Holdings GmbH", "salt-2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("REF-")+8)
	assert.Equal(t, "REF-", a[:4])
}

func TestValidateExternalView_CatchesSurvivingRedactedField(t *testing.T) {
	view := map[string]any{
		"summary": map[string]any{
			"details": []any{map[string]any{"ssn": "123"}},
		},
	}
	err := ValidateExternalView(view, testPolicy(t))
	assert.True(t, IsViewViolation(err), "expected violation, got %v", err)
}

func TestValidateExternalView_CatchesInternalSection(t *testing.T) {
	view := map[string]any{
		"internal_notes": map[string]any{"reviewer": "jt"},
	}
	err := ValidateExternalView(view, testPolicy(t))
	assert.True(t, IsViewViolation(err), "expected violation, got %v", err)
}

func TestValidateExternalView_CleanViewPasses(t *testing.T) {
	view := map[string]any{
		"summary":          map[string]any{"status": "ready"},
		OmittedSectionsKey: []any{},
	}
	assert.NoError(t, ValidateExternalView(view, testPolicy(t)))
}
