package cli

import (
	"fmt"

	"github.com/galapoto/todiscope-v3-sub003/internal/artifact"
	"github.com/galapoto/todiscope-v3-sub003/internal/export"
	"github.com/galapoto/todiscope-v3-sub003/internal/ledger"
	"github.com/galapoto/todiscope-v3-sub003/internal/logging"
)

// App holds the process-wide collaborators a command needs. It is
// constructed once per invocation and passed explicitly; no command
// reaches for lazy global state.
type App struct {
	Ledger   *ledger.Ledger
	Writer   *artifact.ImmutableWriter
	Exporter *export.Exporter
}

// openApp opens the ledger and, when storeBackend is non-empty, the
// artifact store behind an immutable writer.
func openApp(dbPath, storeBackend, storeDir string) (*App, error) {
	l, err := ledger.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	app := &App{Ledger: l}
	if storeBackend != "" {
		store, err := artifact.Open(artifact.Config{
			Backend: artifact.Backend(storeBackend),
			Dir:     storeDir,
		})
		if err != nil {
			l.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open artifact store", err)
		}
		app.Writer = artifact.NewImmutableWriter(store)
		app.Exporter = export.NewExporter(app.Writer, logging.New("export"))
	}
	return app, nil
}

// Close releases the app's resources.
func (a *App) Close() error {
	if a.Ledger != nil {
		if err := a.Ledger.Close(); err != nil {
			return fmt.Errorf("closing ledger: %w", err)
		}
	}
	return nil
}
