package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPolicySpec = `
package policy

policy: deal_readiness: {
	sections: {
		summary:        "external"
		findings:       "external"
		internal_notes: "internal"
	}
	redacted_fields: ["ssn", "bank_account"]
	anonymized_fields: ["counterparty", "deal_codename"]
}
`

func writePolicyDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "policies.cue"), []byte(content), 0644)
	require.NoError(t, err)
	return dir
}

func TestLoad_ValidPolicy(t *testing.T) {
	dir := writePolicyDir(t, validPolicySpec)

	policies, err := Load(dir)
	require.NoError(t, err)
	require.Contains(t, policies, "deal_readiness")

	p := policies["deal_readiness"]
	assert.Equal(t, "deal_readiness", p.Name)

	vis, ok := p.SectionVisibility("summary")
	assert.True(t, ok)
	assert.Equal(t, External, vis)

	vis, ok = p.SectionVisibility("internal_notes")
	assert.True(t, ok)
	assert.Equal(t, Internal, vis)

	_, ok = p.SectionVisibility("never_declared")
	assert.False(t, ok)

	assert.True(t, p.IsRedacted("ssn"))
	assert.True(t, p.IsAnonymized("counterparty"))
	assert.False(t, p.IsRedacted("counterparty"))
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNotFound, pe.Code)
}

func TestLoad_NoCUEFiles(t *testing.T) {
	_, err := Load(t.TempDir())
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeNoFiles, pe.Code)
}

func TestLoad_OverlappingFieldRejected(t *testing.T) {
	dir := writePolicyDir(t, `
package policy

policy: bad: {
	sections: {summary: "external"}
	redacted_fields: ["counterparty"]
	anonymized_fields: ["counterparty"]
}
`)
	_, err := Load(dir)
	assert.True(t, IsOverlap(err), "expected POLICY_OVERLAP, got %v", err)
}

func TestLoad_InvalidVisibilityRejected(t *testing.T) {
	dir := writePolicyDir(t, `
package policy

policy: bad: {
	sections: {summary: "public"}
	redacted_fields: []
	anonymized_fields: []
}
`)
	_, err := Load(dir)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeInvalidVisibility, pe.Code)
}

func TestLoad_NoPoliciesDeclared(t *testing.T) {
	dir := writePolicyDir(t, `
package policy

other: {a: 1}
`)
	_, err := Load(dir)
	var pe *PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrCodeEmpty, pe.Code)
}

func TestNew_ValidatesOverlap(t *testing.T) {
	_, err := New("p",
		map[string]Visibility{"summary": External},
		[]string{"ssn"},
		[]string{"ssn"},
	)
	assert.True(t, IsOverlap(err))
}
