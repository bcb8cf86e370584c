package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/galapoto/todiscope-v3-sub003/internal/artifact"
	"github.com/galapoto/todiscope-v3-sub003/internal/canon"
)

// Meta locates an export in the artifact keyspace.
type Meta struct {
	EngineID         string
	DatasetVersionID string
	ResultSetID      string
	ViewType         string // "external" or "internal"
}

// Exporter writes report views through the immutable artifact writer.
// Keys embed the sha256 of the exported bytes, so a replayed export of
// the same logical report lands on the same key with the same content
// and the write degrades to an idempotent no-op.
type Exporter struct {
	Writer *artifact.ImmutableWriter
	Log    *slog.Logger
}

// NewExporter returns an Exporter over w logging through log.
func NewExporter(w *artifact.ImmutableWriter, log *slog.Logger) *Exporter {
	return &Exporter{Writer: w, Log: log}
}

// ExportJSON writes the canonical JSON encoding of view.
func (e *Exporter) ExportJSON(ctx context.Context, meta Meta, view map[string]any) (artifact.StoredArtifact, error) {
	data, err := canon.Marshal(view)
	if err != nil {
		return artifact.StoredArtifact{}, fmt.Errorf("export json: %w", err)
	}
	return e.write(ctx, meta, "report", "json", "application/json", data)
}

// ExportPDF writes the deterministic PDF rendering of title and lines.
func (e *Exporter) ExportPDF(ctx context.Context, meta Meta, title string, lines []string) (artifact.StoredArtifact, error) {
	return e.write(ctx, meta, "report", "pdf", "application/pdf", PDF(title, lines))
}

func (e *Exporter) write(ctx context.Context, meta Meta, kind, ext, contentType string, data []byte) (artifact.StoredArtifact, error) {
	sum := sha256.Sum256(data)
	key := artifact.ExportKey(
		meta.EngineID, meta.DatasetVersionID, meta.ResultSetID,
		meta.ViewType, kind, hex.EncodeToString(sum[:]), ext,
	)

	stored, err := e.Writer.PutImmutable(ctx, key, data, contentType)
	if err != nil {
		return artifact.StoredArtifact{}, fmt.Errorf("export %s: %w", ext, err)
	}

	e.log().Info("export written",
		"key", key,
		"sha256", stored.SHA256,
		"size_bytes", stored.SizeBytes,
	)
	return stored, nil
}

func (e *Exporter) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
