package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Routine is a user-curated ordered sequence of Exercise ids.
// ExerciseIDs tolerates stale ids; no foreign-key constraint is enforced,
// so deleting an Exercise is never blocked by a Routine. The deleted id
// stays in the stored list and is skipped when the ids are resolved to
// Exercise rows. The list is stored as a JSON array (jsonb column).
type Routine struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null;size:200" json:"name"`
	Description string         `gorm:"column:description" json:"description,omitempty"`
	ExerciseIDs datatypes.JSON `gorm:"column:exercise_ids;type:jsonb;not null" json:"exercise_ids"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Routine) TableName() string { return "workout_routines" }

// ExerciseIDList decodes ExerciseIDs into an ordered slice of uuid.UUID,
// dropping any entry that fails to parse.
func (r *Routine) ExerciseIDList() []uuid.UUID {
	if r == nil {
		return nil
	}
	raw, err := decodeUUIDArray(r.ExerciseIDs)
	if err != nil {
		return nil
	}
	return raw
}

// SetExerciseIDs encodes an ordered slice of uuid.UUID (duplicates allowed)
// into the JSON column.
func (r *Routine) SetExerciseIDs(ids []uuid.UUID) error {
	encoded, err := encodeUUIDArray(ids)
	if err != nil {
		return err
	}
	r.ExerciseIDs = encoded
	return nil
}
