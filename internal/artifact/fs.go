package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore is an object-store-style backend over a local directory.
// Keys are slash-separated paths under the root; each object is a file
// plus a small sidecar recording its content type. It implements the
// same contract as a remote object storage backend, which lets the rest
// of the system treat backend choice as pure configuration.
type FSStore struct {
	root string
}

// NewFSStore creates a store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: create root: %w", err)
	}
	return &FSStore{root: dir}, nil
}

const contentTypeSuffix = ".content-type"

// keyPath maps a store key to a filesystem path, rejecting traversal.
func (s *FSStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("fs store: empty key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("fs store: invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Put stores data under key, overwriting any existing object.
// The write goes through a temp file + rename so readers never observe
// a partially written object.
func (s *FSStore) Put(_ context.Context, key string, data []byte, contentType string) (StoredArtifact, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return StoredArtifact{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return StoredArtifact{}, fmt.Errorf("fs store: put %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return StoredArtifact{}, fmt.Errorf("fs store: put %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return StoredArtifact{}, fmt.Errorf("fs store: put %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return StoredArtifact{}, fmt.Errorf("fs store: put %q: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return StoredArtifact{}, fmt.Errorf("fs store: put %q: %w", key, err)
	}

	if err := os.WriteFile(path+contentTypeSuffix, []byte(contentType), 0o644); err != nil {
		return StoredArtifact{}, fmt.Errorf("fs store: put %q: record content type: %w", key, err)
	}

	return StoredArtifact{
		URI:         s.uri(key),
		SHA256:      sum256(data),
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Get returns the bytes stored under key.
// Returns a NOT_FOUND StoreError if the key is absent.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &StoreError{Code: ErrCodeNotFound, Key: key, Message: "artifact not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("fs store: get %q: %w", key, err)
	}
	return data, nil
}

// uri implements uriReporter.
func (s *FSStore) uri(key string) string {
	path, err := s.keyPath(key)
	if err != nil {
		return "file://" + key
	}
	return "file://" + filepath.ToSlash(path)
}
