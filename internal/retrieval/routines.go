package retrieval

import (
	"context"

	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/exercises"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/routines"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
)

// Curator exposes the routine CRUD and bulk-get operations the retrieval
// API surfaces on top of the Exercise Store and Routine Store.
type Curator struct {
	exercises exercises.ExerciseRepo
	routines  routines.RoutineRepo
}

func NewCurator(exerciseRepo exercises.ExerciseRepo, routineRepo routines.RoutineRepo) *Curator {
	return &Curator{exercises: exerciseRepo, routines: routineRepo}
}

func (c *Curator) CreateRoutine(ctx context.Context, name, description string, exerciseIDs []uuid.UUID) (*domain.Routine, error) {
	row := &domain.Routine{Name: name, Description: description}
	if err := row.SetExerciseIDs(exerciseIDs); err != nil {
		return nil, err
	}
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	return c.routines.Create(dbc, row)
}

func (c *Curator) GetRoutine(ctx context.Context, id uuid.UUID) (*domain.Routine, error) {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	return c.routines.Get(dbc, id)
}

func (c *Curator) ListRoutines(ctx context.Context, limit, offset int) ([]*domain.Routine, error) {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	return c.routines.List(dbc, limit, offset)
}

func (c *Curator) DeleteRoutine(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	return c.routines.Delete(dbc, id)
}

// BulkGetExercises preserves input order and silently skips unknown ids,
// per the curation contract.
func (c *Curator) BulkGetExercises(ctx context.Context, ids []uuid.UUID) ([]*domain.Exercise, error) {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	return c.exercises.GetMany(dbc, ids)
}
