// Package artifact provides key-addressed byte storage with SHA-256
// identification, and an immutability wrapper that guarantees every key
// ever written carries exactly one byte sequence.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// StoredArtifact describes content persisted under a key.
// Immutable once created: never updated, read-only afterward.
type StoredArtifact struct {
	URI         string `json:"uri"`
	SHA256      string `json:"sha256"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// Store is key-addressed byte storage. Put overwrites unconditionally;
// immutability is enforced by ImmutableWriter, not the backend.
// Concurrent calls on different keys must not block each other.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (StoredArtifact, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// sum256 returns the hex SHA-256 of data.
func sum256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryStore is the in-memory reference backend.
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

// Put stores data under key, overwriting any existing value.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (StoredArtifact, error) {
	if key == "" {
		return StoredArtifact{}, fmt.Errorf("put: empty key")
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = memObject{data: cp, contentType: contentType}
	s.mu.Unlock()

	return StoredArtifact{
		URI:         s.uri(key),
		SHA256:      sum256(data),
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Get returns the bytes stored under key.
// Returns a NOT_FOUND StoreError if the key is absent.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()

	if !ok {
		return nil, &StoreError{Code: ErrCodeNotFound, Key: key, Message: "artifact not found"}
	}

	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

// uri implements uriReporter. The memory scheme encodes backend + key.
func (s *MemoryStore) uri(key string) string {
	return "memory://" + key
}

// ExportKey builds the conventional export key:
//
//	exports/{engine_id}/{dataset_version_id}/{result_set_id}/{view_type}/{kind}/{sha256}.{ext}
//
// The embedded sha256 is of the exported bytes themselves, giving
// content-addressing at the path level in addition to the store's hash.
func ExportKey(engineID, datasetVersionID, resultSetID, viewType, kind, sha256Hex, ext string) string {
	return strings.Join([]string{
		"exports", engineID, datasetVersionID, resultSetID, viewType, kind,
		sha256Hex + "." + ext,
	}, "/")
}
