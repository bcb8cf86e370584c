package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatasetID = "0190a5e2-5f6a-7cde-8000-0000000000aa"

func validRequest() RunRequest {
	return RunRequest{
		DatasetVersionID: testDatasetID,
		StartedAt:        "2026-05-01T10:05:00+02:00",
		TransactionScope: map[string]any{"deal": "acme-merger"},
		Parameters:       map[string]any{},
	}
}

func TestRunRequestValidate_Valid(t *testing.T) {
	assert.NoError(t, validRequest().Validate())
}

func TestRunRequestValidate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*RunRequest)
		wantCode string
	}{
		{
			name:     "empty dataset version id",
			mutate:   func(r *RunRequest) { r.DatasetVersionID = "" },
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "malformed dataset version id",
			mutate:   func(r *RunRequest) { r.DatasetVersionID = "not-a-uuid" },
			wantCode: ErrCodeInvalidDatasetVersionID,
		},
		{
			name: "wrong uuid version",
			mutate: func(r *RunRequest) {
				r.DatasetVersionID = "0190a5e2-5f6a-4cde-8000-0000000000aa"
			},
			wantCode: ErrCodeInvalidDatasetVersionID,
		},
		{
			name:     "empty started_at",
			mutate:   func(r *RunRequest) { r.StartedAt = "" },
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "started_at without zone",
			mutate:   func(r *RunRequest) { r.StartedAt = "2026-05-01T10:05:00" },
			wantCode: ErrCodeInvalidStartedAt,
		},
		{
			name:     "nil transaction scope",
			mutate:   func(r *RunRequest) { r.TransactionScope = nil },
			wantCode: ErrCodeMissingField,
		},
		{
			name:     "nil parameters",
			mutate:   func(r *RunRequest) { r.Parameters = nil },
			wantCode: ErrCodeMissingField,
		},
		{
			name: "optional input without artifact key",
			mutate: func(r *RunRequest) {
				r.OptionalInputs = map[string]OptionalInput{"extra": {}}
			},
			wantCode: ErrCodeInvalidOptionalInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := req.Validate()
			require.Error(t, err)
			assert.True(t, IsValidation(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantCode, ve.Code)
		})
	}
}
