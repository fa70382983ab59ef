// Command reconcile sweeps the clip filesystem for files no live Exercise
// row references, and reports Exercise rows whose clip_path is missing on
// disk. It is the operator's tool for finding what an interrupted
// persistence transaction left behind (process crash between writing a
// clip and committing its row, or vice versa). It only reports: it deletes
// nothing, and it does not check the vector store.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/exercises"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/envutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/postgres"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	contentRoot := envutil.GetEnv("CONTENT_ROOT", "./storage/clips", log)

	pg, err := postgres.New(log)
	if err != nil {
		log.Error("init postgres", "error", err.Error())
		os.Exit(1)
	}
	exerciseRepo := exercises.NewExerciseRepo(pg.DB(), log)

	dbc := dbctx.Background(nil)
	rows, err := exerciseRepo.List(dbc, domain.ExerciseFilter{})
	if err != nil {
		log.Error("list exercises", "error", err.Error())
		os.Exit(1)
	}

	live := make(map[string]bool, len(rows))
	missing := 0
	for _, row := range rows {
		abs := filepath.Join(contentRoot, row.ClipPath)
		live[abs] = true
		if _, err := os.Stat(abs); err != nil {
			missing++
			log.Warn("exercise row references a missing clip file", "exercise_id", row.ID.String(), "clip_path", abs)
		}
	}

	orphans := 0
	walkErr := filepath.WalkDir(contentRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !live[path] {
			orphans++
			log.Warn("clip file has no referencing exercise row", "clip_path", path)
		}
		return nil
	})
	if walkErr != nil {
		log.Warn("walk content root", "content_root", contentRoot, "error", walkErr.Error())
	}

	// Vector-side reconciliation (orphan vector entries with no resolving
	// database_id) needs a provider list/scan capability the provider-
	// neutral VectorStore contract does not expose; left for a
	// provider-specific follow-up, not attempted here.

	log.Info("reconciliation sweep complete", "exercises", len(rows), "missing_clips", missing, "orphan_clips", orphans)
}
