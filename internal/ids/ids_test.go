package ids

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	id1 := Derive(NamespaceFinding, "dsv-1", "engine-a", "rec-9")
	id2 := Derive(NamespaceFinding, "dsv-1", "engine-a", "rec-9")
	assert.Equal(t, id1, id2, "identical components must derive identical IDs")
	assert.Equal(t, uuid.Version(5), id1.Version())
}

func TestDerive_ComponentBoundaries(t *testing.T) {
	// ("ab","c") and ("a","bc") must not collide.
	id1 := Derive(NamespaceFinding, "ab", "c")
	id2 := Derive(NamespaceFinding, "a", "bc")
	assert.NotEqual(t, id1, id2)
}

func TestDerive_NamespacesPreventCrossKindCollisions(t *testing.T) {
	finding := Derive(NamespaceFinding, "dsv-1", "x")
	evidence := Derive(NamespaceEvidence, "dsv-1", "x")
	manifest := Derive(NamespaceManifest, "dsv-1", "x")
	assert.NotEqual(t, finding, evidence)
	assert.NotEqual(t, finding, manifest)
	assert.NotEqual(t, evidence, manifest)
}

func TestHashParameters_OrderIndependent(t *testing.T) {
	a := map[string]any{"region": "emea", "threshold": "250000.00", "strict": true}
	b := map[string]any{"strict": true, "region": "emea", "threshold": "250000.00"}

	hashA, err := HashParameters(a)
	require.NoError(t, err)
	hashB, err := HashParameters(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64)
}

func TestResultSetID_StableAcrossInvocations(t *testing.T) {
	scope := map[string]any{"deal": "acme-merger"}
	params := map[string]any{"threshold": "100000.00"}
	inputs := map[string]any{"control_catalog": map[string]any{"artifact_key": "catalogs/v4", "sha256": "ab12"}}

	id1, err := ResultSetID("dsv-1", "deal-readiness", "2.3.0", scope, params, inputs)
	require.NoError(t, err)
	id2, err := ResultSetID("dsv-1", "deal-readiness", "2.3.0", scope, params, inputs)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "result_set_id must be a pure function of the input tuple")
}

func TestResultSetID_SensitiveToEachInput(t *testing.T) {
	scope := map[string]any{"deal": "acme-merger"}
	params := map[string]any{"threshold": "100000.00"}
	var inputs any = map[string]any{}

	base, err := ResultSetID("dsv-1", "deal-readiness", "2.3.0", scope, params, inputs)
	require.NoError(t, err)

	otherVersion, err := ResultSetID("dsv-1", "deal-readiness", "2.4.0", scope, params, inputs)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherVersion)

	otherParams, err := ResultSetID("dsv-1", "deal-readiness", "2.3.0", scope, map[string]any{"threshold": "100000.01"}, inputs)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherParams)

	otherDataset, err := ResultSetID("dsv-2", "deal-readiness", "2.3.0", scope, params, inputs)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherDataset)
}

func TestUUIDv7RunIDs_UniquePerExecution(t *testing.T) {
	gen := UUIDv7RunIDs{}
	id1 := gen.NewRunID()
	id2 := gen.NewRunID()
	assert.NotEqual(t, id1, id2, "run IDs are per-execution, never deterministic")

	parsed, err := uuid.Parse(id1)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedRunIDs_ReturnsInOrder(t *testing.T) {
	gen := NewFixedRunIDs("run-1", "run-2")
	assert.Equal(t, "run-1", gen.NewRunID())
	assert.Equal(t, "run-2", gen.NewRunID())
	assert.Panics(t, func() { gen.NewRunID() })
}
