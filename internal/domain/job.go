package domain

import (
	"time"

	"gorm.io/datatypes"
)

// JobState is one of the four states a Job may occupy.
type JobState string

const (
	JobPending    JobState = "pending"
	JobInProgress JobState = "in_progress"
	JobDone       JobState = "done"
	JobFailed     JobState = "failed"
)

// Valid reports whether s is one of the four recognized states.
func (s JobState) Valid() bool {
	switch s {
	case JobPending, JobInProgress, JobDone, JobFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a terminal state (done or failed).
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// jobTransitions enumerates the only monotonic moves a Job may make:
// pending -> in_progress -> {done|failed}.
var jobTransitions = map[JobState]map[JobState]bool{
	JobPending:    {JobInProgress: true},
	JobInProgress: {JobDone: true, JobFailed: true},
}

// CanTransition reports whether moving from `from` to `to` is a legal,
// forward-only state transition.
func CanTransition(from, to JobState) bool {
	if from == to {
		return true // idempotent re-application is handled by callers
	}
	next, ok := jobTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Job is a background ingestion task row.
type Job struct {
	JobID string `gorm:"column:job_id;primaryKey" json:"job_id"`

	State JobState `gorm:"column:state;not null" json:"state"`

	Result datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// JobItemStatus describes one carousel item's outcome within a job result.
type JobItemStatus string

const (
	JobItemCreated         JobItemStatus = "created"
	JobItemDuplicateSkip   JobItemStatus = "duplicate_skipped"
	JobItemFailed          JobItemStatus = "failed"
)

// JobResultItem is one created (or skipped, or failed) exercise within a
// job's terminal result payload.
type JobResultItem struct {
	Status      JobItemStatus `json:"status"`
	ExerciseID  string        `json:"exercise_id,omitempty"`
	Name        string        `json:"name,omitempty"`
	ClipPath    string        `json:"clip_path,omitempty"`
	StartTime   float64       `json:"start_time,omitempty"`
	EndTime     float64       `json:"end_time,omitempty"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	ErrorReason string        `json:"message,omitempty"`
}

// JobResultDone is the `result` payload for a Job in the `done` state.
type JobResultDone struct {
	Items []JobResultItem `json:"items"`
}

// JobResultFailed is the `result` payload for a Job in the `failed` state.
type JobResultFailed struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}
