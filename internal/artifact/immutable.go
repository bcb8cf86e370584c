package artifact

import (
	"bytes"
	"context"
	"hash/fnv"
	"sync"
)

// lockStripes is the number of per-key lock stripes in ImmutableWriter.
// Stripe collisions only cost unnecessary serialization, never correctness.
const lockStripes = 64

// ImmutableWriter wraps a Store to enforce at-most-one-value-per-key.
//
// PutImmutable on a fresh key delegates to Put. On an existing key it
// compares bytes: identical content is an idempotent no-op returning a
// deterministically reconstructed StoredArtifact; differing content
// fails with IMMUTABLE_WRITE_VIOLATION.
//
// The existence check and the write for a given key run under a striped
// per-key lock, closing the window where two concurrent writers to a
// brand-new key could both observe "absent" and both write.
type ImmutableWriter struct {
	store Store
	locks [lockStripes]sync.Mutex
}

// NewImmutableWriter wraps store.
func NewImmutableWriter(store Store) *ImmutableWriter {
	return &ImmutableWriter{store: store}
}

// Store returns the wrapped backend, for read paths that bypass
// immutability checks.
func (w *ImmutableWriter) Store() Store {
	return w.store
}

func (w *ImmutableWriter) keyLock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &w.locks[h.Sum32()%lockStripes]
}

// PutImmutable writes data under key with at-most-once-write semantics.
func (w *ImmutableWriter) PutImmutable(ctx context.Context, key string, data []byte, contentType string) (StoredArtifact, error) {
	lock := w.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := w.store.Get(ctx, key)
	if IsNotFound(err) {
		return w.store.Put(ctx, key, data, contentType)
	}
	if err != nil {
		return StoredArtifact{}, err
	}

	if !bytes.Equal(existing, data) {
		return StoredArtifact{}, &StoreError{
			Code:    ErrCodeImmutableViolation,
			Key:     key,
			Message: "key already holds different content",
		}
	}

	// Identical bytes: reconstruct the descriptor without re-writing.
	return StoredArtifact{
		URI:         w.describeURI(key),
		SHA256:      sum256(data),
		SizeBytes:   int64(len(data)),
		ContentType: contentType,
	}, nil
}

// uriReporter is implemented by backends that can rebuild the URI they
// would report for a key without performing a write.
type uriReporter interface {
	uri(key string) string
}

// describeURI rebuilds the URI a backend would report for key.
// Kept deterministic so repeated idempotent puts return equal descriptors.
func (w *ImmutableWriter) describeURI(key string) string {
	if r, ok := w.store.(uriReporter); ok {
		return r.uri(key)
	}
	return key
}
