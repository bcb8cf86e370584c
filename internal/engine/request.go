package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OptionalInput references an artifact a run may consume in addition
// to the dataset's raw records.
type OptionalInput struct {
	ArtifactKey string `json:"artifact_key"`
	SHA256      string `json:"sha256,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// RunRequest is the boundary shape of an engine run. Validation is
// strict and happens before any persistence: a rejected request leaves
// no partial writes behind.
type RunRequest struct {
	DatasetVersionID string
	StartedAt        string
	TransactionScope map[string]any
	Parameters       map[string]any
	OptionalInputs   map[string]OptionalInput
}

// Validate checks the request shape. The dataset version ID must be a
// version-7 UUID, started_at an RFC 3339 timestamp with an explicit
// zone, and scope/parameters present (empty maps are fine, nil is not).
func (r RunRequest) Validate() error {
	if r.DatasetVersionID == "" {
		return &ValidationError{
			Code: ErrCodeMissingField, Field: "dataset_version_id",
			Message: "required field is empty",
		}
	}
	id, err := uuid.Parse(r.DatasetVersionID)
	if err != nil {
		return &ValidationError{
			Code: ErrCodeInvalidDatasetVersionID, Field: "dataset_version_id",
			Message: fmt.Sprintf("not a valid UUID: %v", err),
		}
	}
	if id.Version() != 7 {
		return &ValidationError{
			Code: ErrCodeInvalidDatasetVersionID, Field: "dataset_version_id",
			Message: fmt.Sprintf("UUID version %d, want 7", id.Version()),
		}
	}

	if r.StartedAt == "" {
		return &ValidationError{
			Code: ErrCodeMissingField, Field: "started_at",
			Message: "required field is empty",
		}
	}
	if _, err := time.Parse(time.RFC3339, r.StartedAt); err != nil {
		return &ValidationError{
			Code: ErrCodeInvalidStartedAt, Field: "started_at",
			Message: fmt.Sprintf("not an RFC 3339 timestamp with zone: %v", err),
		}
	}

	if r.TransactionScope == nil {
		return &ValidationError{
			Code: ErrCodeMissingField, Field: "transaction_scope",
			Message: "required field is missing",
		}
	}
	if r.Parameters == nil {
		return &ValidationError{
			Code: ErrCodeMissingField, Field: "parameters",
			Message: "required field is missing",
		}
	}

	for name, in := range r.OptionalInputs {
		if in.ArtifactKey == "" {
			return &ValidationError{
				Code: ErrCodeInvalidOptionalInput, Field: "optional_inputs." + name,
				Message: "artifact_key is empty",
			}
		}
	}
	return nil
}

// optionalInputsValue converts optional inputs to a canonicalizable
// structure for result-set derivation.
func optionalInputsValue(inputs map[string]OptionalInput) map[string]any {
	out := make(map[string]any, len(inputs))
	for name, in := range inputs {
		out[name] = map[string]any{
			"artifact_key": in.ArtifactKey,
			"sha256":       in.SHA256,
			"content_type": in.ContentType,
		}
	}
	return out
}
