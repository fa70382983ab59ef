package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/vectorstore"
)

// Deleter performs cascade delete: the row is the source of truth, so
// deletion is acknowledged only once the row is gone. The vector entry and
// clip file are removed best-effort first; failures there are logged, not
// fatal. A clip file left behind is reported by cmd/reconcile; a vector
// entry left behind is not detected by it.
type Deleter struct {
	log         *logger.Logger
	exercises   ExerciseRepo
	vectors     vectorstore.VectorStore
	contentRoot string
}

func NewDeleter(log *logger.Logger, exerciseRepo ExerciseRepo, vectors vectorstore.VectorStore, contentRoot string) *Deleter {
	return &Deleter{log: log.With("service", "pipeline.Deleter"), exercises: exerciseRepo, vectors: vectors, contentRoot: contentRoot}
}

// CascadeDelete returns (found, error): found is false if the row did not
// exist, in which case metadata and vector lookups are both "not found" by
// construction.
func (d *Deleter) CascadeDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx

	row, err := d.exercises.Get(dbc, id)
	if err != nil {
		return false, err
	}
	if row == nil {
		return false, nil
	}

	if row.VectorID != nil {
		if err := d.vectors.Delete(ctx, row.VectorID.String()); err != nil {
			d.log.Warn("cascade delete: failed to remove vector entry", "exercise_id", id.String(), "vector_id", row.VectorID.String(), "error", err.Error())
		}
	}
	absClipPath := filepath.Join(d.contentRoot, row.ClipPath)
	if err := os.Remove(absClipPath); err != nil && !os.IsNotExist(err) {
		d.log.Warn("cascade delete: failed to remove clip file", "exercise_id", id.String(), "clip_path", absClipPath, "error", err.Error())
	}

	if _, err := d.exercises.Delete(dbc, id); err != nil {
		return false, err
	}
	return true, nil
}
