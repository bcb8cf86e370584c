package artifact

import "fmt"

// Backend names a storage backend variant. The set is closed: backends
// are selected by parsed configuration, never by runtime type inspection.
type Backend string

const (
	// BackendMemory is the in-memory reference backend.
	BackendMemory Backend = "memory"

	// BackendFS is the filesystem object store.
	BackendFS Backend = "fs"
)

// Config selects and parameterizes a storage backend.
type Config struct {
	Backend Backend `yaml:"backend"`
	Dir     string  `yaml:"dir,omitempty"` // required for fs
}

// Validate checks the configuration before any backend is constructed.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendFS:
		if c.Dir == "" {
			return fmt.Errorf("artifact config: fs backend requires dir")
		}
		return nil
	default:
		return fmt.Errorf("artifact config: unknown backend %q (must be %q or %q)",
			c.Backend, BackendMemory, BackendFS)
	}
}

// Open constructs the configured backend. Called once at startup; the
// resulting Store is process-wide and injected into request handlers.
func Open(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFS:
		return NewFSStore(cfg.Dir)
	default:
		// Unreachable after Validate.
		return nil, fmt.Errorf("artifact config: unknown backend %q", cfg.Backend)
	}
}
