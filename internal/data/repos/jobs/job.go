// Package jobs implements the Job Ledger: create/start/finish/get over the
// four-state ingestion job row, plus the SKIP LOCKED claim query the worker
// polls against.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// TransitionError reports an illegal or non-idempotent state move.
type TransitionError struct {
	JobID string
	From  domain.JobState
	To    domain.JobState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: illegal transition %s -> %s", e.JobID, e.From, e.To)
}

type JobRepo interface {
	Create(dbc dbctx.Context, jobID string) (*domain.Job, error)
	Start(dbc dbctx.Context, jobID string) (*domain.Job, error)
	Finish(dbc dbctx.Context, jobID string, state domain.JobState, result any) (*domain.Job, error)
	Get(dbc dbctx.Context, jobID string) (*domain.Job, error)
	ClaimNextPending(dbc dbctx.Context) (*domain.Job, error)
	List(dbc dbctx.Context, filter JobFilter) ([]*domain.Job, error)
}

// JobFilter paginates the job ledger for the admin-facing list endpoint,
// newest first. State is an optional exact-match filter.
type JobFilter struct {
	State  domain.JobState
	Limit  int
	Offset int
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{db: db, log: baseLog.With("repo", "JobRepo")}
}

func (r *jobRepo) Create(dbc dbctx.Context, jobID string) (*domain.Job, error) {
	t := dbc.DB(r.db)
	row := &domain.Job{JobID: jobID, State: domain.JobPending}
	if err := t.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *jobRepo) Get(dbc dbctx.Context, jobID string) (*domain.Job, error) {
	t := dbc.DB(r.db)
	var row domain.Job
	err := t.WithContext(dbc.Ctx).Where("job_id = ?", jobID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *jobRepo) Start(dbc dbctx.Context, jobID string) (*domain.Job, error) {
	t := dbc.DB(r.db)
	row, err := r.Get(dbctx.Context{Ctx: dbc.Ctx, Tx: t}, jobID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if row.State == domain.JobInProgress {
		return row, nil // idempotent re-application
	}
	if !domain.CanTransition(row.State, domain.JobInProgress) {
		return nil, &TransitionError{JobID: jobID, From: row.State, To: domain.JobInProgress}
	}
	now := time.Now().UTC()
	if err := t.WithContext(dbc.Ctx).Model(&domain.Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{"state": domain.JobInProgress, "updated_at": now}).Error; err != nil {
		return nil, err
	}
	row.State = domain.JobInProgress
	row.UpdatedAt = now
	return row, nil
}

func (r *jobRepo) Finish(dbc dbctx.Context, jobID string, state domain.JobState, result any) (*domain.Job, error) {
	if state != domain.JobDone && state != domain.JobFailed {
		return nil, fmt.Errorf("finish requires a terminal state, got %s", state)
	}
	t := dbc.DB(r.db)
	row, err := r.Get(dbctx.Context{Ctx: dbc.Ctx, Tx: t}, jobID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("job %s not found", jobID)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	if row.State.Terminal() {
		if row.State == state && string(row.Result) == string(payload) {
			return row, nil // idempotent re-application with identical payload
		}
		return nil, &TransitionError{JobID: jobID, From: row.State, To: state}
	}
	if !domain.CanTransition(row.State, state) {
		return nil, &TransitionError{JobID: jobID, From: row.State, To: state}
	}

	now := time.Now().UTC()
	if err := t.WithContext(dbc.Ctx).Model(&domain.Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{
			"state":      state,
			"result":     datatypes.JSON(payload),
			"updated_at": now,
		}).Error; err != nil {
		return nil, err
	}
	row.State = state
	row.Result = datatypes.JSON(payload)
	row.UpdatedAt = now
	return row, nil
}

// List returns jobs newest-first, optionally narrowed to one state, for
// the paginated admin list endpoint.
func (r *jobRepo) List(dbc dbctx.Context, filter JobFilter) ([]*domain.Job, error) {
	t := dbc.DB(r.db).WithContext(dbc.Ctx).Model(&domain.Job{})
	if filter.State != "" {
		t = t.Where("state = ?", filter.State)
	}
	t = t.Order("created_at DESC")
	if filter.Limit > 0 {
		t = t.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		t = t.Offset(filter.Offset)
	}
	var out []*domain.Job
	if err := t.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextPending locks and returns the oldest pending job, transitioning
// it to in_progress in the same transaction, or nil if none are runnable.
func (r *jobRepo) ClaimNextPending(dbc dbctx.Context) (*domain.Job, error) {
	t := dbc.DB(r.db)
	var claimed *domain.Job
	err := t.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var row domain.Job
		err := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state = ?", domain.JobPending).
			Order("created_at ASC").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := txx.Model(&domain.Job{}).
			Where("job_id = ?", row.JobID).
			Updates(map[string]any{"state": domain.JobInProgress, "updated_at": now}).Error; err != nil {
			return err
		}
		row.State = domain.JobInProgress
		row.UpdatedAt = now
		claimed = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
