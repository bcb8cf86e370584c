package artifact

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	art, err := s.Put(ctx, "exports/a/b", []byte("payload"), "application/json")
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if art.URI != "memory://exports/a/b" {
		t.Errorf("URI = %q", art.URI)
	}
	if art.SizeBytes != 7 {
		t.Errorf("SizeBytes = %d, want 7", art.SizeBytes)
	}
	if len(art.SHA256) != 64 {
		t.Errorf("SHA256 length = %d, want 64", len(art.SHA256))
	}

	data, err := s.Get(ctx, "exports/a/b")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Get() = %q", data)
	}
}

func TestMemoryStore_GetAbsentKey(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}

func TestMemoryStore_PutOverwrites(t *testing.T) {
	// The raw store allows overwrite; only ImmutableWriter forbids it.
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", []byte("one"), "text/plain"); err != nil {
		t.Fatalf("first Put() failed: %v", err)
	}
	if _, err := s.Put(ctx, "k", []byte("two"), "text/plain"); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	data, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != "two" {
		t.Errorf("Get() = %q, want overwrite to win", data)
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Put(ctx, "k", []byte("abc"), "text/plain"); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	data, _ := s.Get(ctx, "k")
	data[0] = 'X'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored bytes mutated through Get() result: %q", again)
	}
}

func TestFSStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}
	ctx := context.Background()

	art, err := s.Put(ctx, "exports/e1/obj.json", []byte(`{"a":1}`), "application/json")
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	want := "file://" + filepath.ToSlash(filepath.Join(dir, "exports/e1/obj.json"))
	if art.URI != want {
		t.Errorf("URI = %q, want %q", art.URI, want)
	}

	data, err := s.Get(ctx, "exports/e1/obj.json")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("Get() = %q", data)
	}
}

func TestFSStore_GetAbsentKey(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}
	_, err = s.Get(context.Background(), "no/such/key")
	if !IsNotFound(err) {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}

func TestFSStore_RejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() failed: %v", err)
	}
	if _, err := s.Put(context.Background(), "../escape", []byte("x"), "text/plain"); err == nil {
		t.Error("expected error for traversal key, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Backend: BackendMemory}, false},
		{"fs with dir", Config{Backend: BackendFS, Dir: "/tmp/x"}, false},
		{"fs without dir", Config{Backend: BackendFS}, true},
		{"unknown", Config{Backend: "s3"}, true},
		{"empty", Config{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	mem, err := Open(Config{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	if _, ok := mem.(*MemoryStore); !ok {
		t.Errorf("Open(memory) = %T", mem)
	}

	fsStore, err := Open(Config{Backend: BackendFS, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(fs) failed: %v", err)
	}
	if _, ok := fsStore.(*FSStore); !ok {
		t.Errorf("Open(fs) = %T", fsStore)
	}
}
