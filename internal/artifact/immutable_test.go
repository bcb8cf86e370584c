package artifact

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestPutImmutable_FirstWrite(t *testing.T) {
	w := NewImmutableWriter(NewMemoryStore())
	ctx := context.Background()

	art, err := w.PutImmutable(ctx, "k", []byte("content"), "text/plain")
	if err != nil {
		t.Fatalf("PutImmutable() failed: %v", err)
	}
	if art.SHA256 == "" || art.SizeBytes != 7 {
		t.Errorf("unexpected descriptor: %+v", art)
	}
}

func TestPutImmutable_IdempotentOnEqualBytes(t *testing.T) {
	w := NewImmutableWriter(NewMemoryStore())
	ctx := context.Background()

	first, err := w.PutImmutable(ctx, "k", []byte("content"), "text/plain")
	if err != nil {
		t.Fatalf("first PutImmutable() failed: %v", err)
	}
	second, err := w.PutImmutable(ctx, "k", []byte("content"), "text/plain")
	if err != nil {
		t.Fatalf("second PutImmutable() failed: %v", err)
	}

	if first.SHA256 != second.SHA256 {
		t.Errorf("sha256 differs: %q vs %q", first.SHA256, second.SHA256)
	}
	if first.URI != second.URI {
		t.Errorf("uri differs: %q vs %q", first.URI, second.URI)
	}
}

func TestPutImmutable_DifferentBytesFail(t *testing.T) {
	w := NewImmutableWriter(NewMemoryStore())
	ctx := context.Background()

	if _, err := w.PutImmutable(ctx, "k", []byte("original"), "text/plain"); err != nil {
		t.Fatalf("first PutImmutable() failed: %v", err)
	}
	_, err := w.PutImmutable(ctx, "k", []byte("tampered"), "text/plain")
	if !IsImmutableViolation(err) {
		t.Errorf("expected IMMUTABLE_WRITE_VIOLATION, got %v", err)
	}

	// Original bytes must survive the rejected write.
	data, err := w.Store().Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != "original" {
		t.Errorf("stored bytes = %q, want original preserved", data)
	}
}

func TestPutImmutable_ConcurrentSameKey(t *testing.T) {
	// Many concurrent writers race on a brand-new key with identical
	// bytes: all must succeed and agree. A second wave with different
	// bytes must all fail.
	w := NewImmutableWriter(NewMemoryStore())
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.PutImmutable(ctx, "contended", []byte("same"), "text/plain")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("writer %d with identical bytes failed: %v", i, err)
		}
	}

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.PutImmutable(ctx, "contended", []byte("different"), "text/plain")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !IsImmutableViolation(err) {
			t.Errorf("writer %d with different bytes: expected violation, got %v", i, err)
		}
	}
}

func TestPutImmutable_DistinctKeysDoNotInterfere(t *testing.T) {
	w := NewImmutableWriter(NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("exports/k-%d", i)
			if _, err := w.PutImmutable(ctx, key, []byte(key), "text/plain"); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("independent key write failed: %v", err)
	}
}

func TestExportKey_Layout(t *testing.T) {
	key := ExportKey("deal-readiness", "dsv-1", "rs-1", "external", "report", "abc123", "json")
	want := "exports/deal-readiness/dsv-1/rs-1/external/report/abc123.json"
	if key != want {
		t.Errorf("ExportKey() = %q, want %q", key, want)
	}
}
