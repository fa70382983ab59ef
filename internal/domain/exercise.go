package domain

import (
	"time"

	"github.com/google/uuid"
)

// Exercise is one extracted movement, persisted in the `exercises` table.
// The triple (NormalizedURL, CarouselIndex, Name) is the ingestion
// fingerprint and carries a unique index at the storage layer.
type Exercise struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	SourceURL     string `gorm:"column:url;not null" json:"source_url"`
	NormalizedURL string `gorm:"column:normalized_url;not null;index:idx_exercise_fingerprint,unique,priority:1" json:"normalized_url"`
	CarouselIndex int    `gorm:"column:carousel_index;not null;default:1;index:idx_exercise_fingerprint,unique,priority:2" json:"carousel_index"`

	Name string `gorm:"column:name;not null;size:200;index:idx_exercise_fingerprint,unique,priority:3" json:"name"`

	StartTime float64 `gorm:"column:start_time;type:decimal(10,3);not null" json:"start_time"`
	EndTime   float64 `gorm:"column:end_time;type:decimal(10,3);not null" json:"end_time"`

	ClipPath string `gorm:"column:clip_path;not null" json:"clip_path"`

	HowTo       string `gorm:"column:how_to" json:"how_to,omitempty"`
	Benefits    string `gorm:"column:benefits" json:"benefits,omitempty"`
	Counteracts string `gorm:"column:counteracts" json:"counteracts,omitempty"`
	RoundsReps  string `gorm:"column:rounds_reps" json:"rounds_reps,omitempty"`

	FitnessLevel int `gorm:"column:fitness_level;index" json:"fitness_level"`
	Intensity    int `gorm:"column:intensity;index" json:"intensity"`

	VectorID *uuid.UUID `gorm:"column:vector_id;type:uuid" json:"vector_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();index" json:"created_at"`
}

func (Exercise) TableName() string { return "exercises" }

// Duration returns EndTime - StartTime in seconds.
func (e *Exercise) Duration() float64 {
	if e == nil {
		return 0
	}
	return e.EndTime - e.StartTime
}

// MinExerciseDuration is the floor enforced on every stored exercise.
const MinExerciseDuration = 3.5

// ExerciseFilter is the set of query filters the Exercise Store accepts.
type ExerciseFilter struct {
	FitnessLevelMin *int
	FitnessLevelMax *int
	IntensityMin    *int
	IntensityMax    *int
	NameContains    string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time

	Limit  int
	Offset int
}

// Fingerprint is the (normalized_url, carousel_index, name) uniqueness tuple.
type Fingerprint struct {
	NormalizedURL string
	CarouselIndex int
	Name          string
}
