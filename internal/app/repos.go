package app

import (
	"gorm.io/gorm"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/exercises"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/jobs"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/routines"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// Repos bundles every relational repository constructed against the shared
// *gorm.DB handle.
type Repos struct {
	Exercises exercises.ExerciseRepo
	Routines  routines.RoutineRepo
	Jobs      jobs.JobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Exercises: exercises.NewExerciseRepo(db, log),
		Routines:  routines.NewRoutineRepo(db, log),
		Jobs:      jobs.NewJobRepo(db, log),
	}
}
