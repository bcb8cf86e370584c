package ledger

import (
	"fmt"

	"github.com/galapoto/todiscope-v3-sub003/internal/canon"
)

// marshalPayload converts an opaque payload to canonical JSON TEXT for
// storage. Canonical encoding makes stored text directly comparable for
// conflict detection: byte equality is semantic equality.
func marshalPayload(payload any) (string, error) {
	data, err := canon.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored canonical JSON TEXT back into the
// opaque payload shape, with numbers as json.Number.
func unmarshalPayload(data string) (any, error) {
	if data == "" {
		return nil, nil
	}
	v, err := canon.Decode([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}
