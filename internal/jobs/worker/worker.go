// Package worker polls the Job Ledger for pending ingestion jobs and drives
// each through the Pipeline Orchestrator.
package worker

import (
	"context"
	"time"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/apierr"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/jobs"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/observability"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/pipeline"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// URLLookup resolves a job_id back to the URL it was admitted with; the
// caller (the admission HTTP handler) is responsible for keeping this
// association, since the Job row itself only carries state and result.
type URLLookup interface {
	URLForJob(jobID string) (string, bool)
}

// IngestLockReleaser frees the per-URL admission lock once a job reaches a
// terminal state, so a later, legitimately distinct ingestion of the same
// URL isn't blocked until the lock's TTL expires.
type IngestLockReleaser interface {
	Release(ctx context.Context, normalizedURL string)
}

type Worker struct {
	log          *logger.Logger
	jobs         jobs.JobRepo
	orchestrator *pipeline.Orchestrator
	urls         URLLookup
	lock         IngestLockReleaser
	pollInterval time.Duration
	concurrency  int
	sem          chan struct{}
}

func New(log *logger.Logger, jobRepo jobs.JobRepo, orchestrator *pipeline.Orchestrator, urls URLLookup, lock IngestLockReleaser, maxConcurrent int) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{
		log:          log.With("component", "jobs.Worker"),
		jobs:         jobRepo,
		orchestrator: orchestrator,
		urls:         urls,
		lock:         lock,
		pollInterval: time.Second,
		concurrency:  maxConcurrent,
		sem:          make(chan struct{}, maxConcurrent),
	}
}

// Start runs the poll loop until ctx is cancelled. It never blocks the
// caller: the loop body runs in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.claimAndRun(ctx)
			}
		}
	}()
}

func (w *Worker) claimAndRun(ctx context.Context) {
	select {
	case w.sem <- struct{}{}:
	default:
		return // at the concurrency ceiling, skip this tick
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	job, err := w.jobs.ClaimNextPending(dbc)
	if err != nil {
		<-w.sem
		w.log.Warn("claim next pending job failed", "error", err.Error())
		return
	}
	if job == nil {
		<-w.sem
		return
	}

	go func() {
		defer func() { <-w.sem }()
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("job handler panic", "job_id", job.JobID, "panic", r)
				w.finishFailed(ctx, job.JobID, apierr.KindInternal, "internal panic")
			}
		}()
		w.run(ctx, job)
	}()
}

func (w *Worker) run(ctx context.Context, job *domain.Job) {
	log := w.log.With("job_id", job.JobID)

	url, ok := w.urls.URLForJob(job.JobID)
	if !ok {
		log.Error("no url associated with job")
		w.finishFailed(ctx, job.JobID, apierr.KindInternal, "no url associated with job")
		return
	}
	defer w.releaseLock(ctx, url)

	results, err := w.orchestrator.Ingest(ctx, url, job.JobID)
	if err != nil {
		kind := apierr.KindOf(err)
		log.Warn("ingestion failed", "kind", kind, "error", err.Error())
		w.finishFailed(ctx, job.JobID, kind, err.Error())
		return
	}

	items := make([]domain.JobResultItem, 0)
	allFailed := len(results) > 0
	for _, r := range results {
		observability.IngestItemsTotal.WithLabelValues(string(r.Status)).Inc()
		if r.Status != domain.JobItemFailed {
			allFailed = false
		}
		if len(r.Exercises) == 0 {
			items = append(items, domain.JobResultItem{Status: r.Status, ErrorKind: string(r.ErrorKind), ErrorReason: r.ErrorReason})
			continue
		}
		for _, ex := range r.Exercises {
			items = append(items, domain.JobResultItem{
				Status:     r.Status,
				ExerciseID: ex.ID.String(),
				Name:       ex.Name,
				ClipPath:   ex.ClipPath,
				StartTime:  ex.StartTime,
				EndTime:    ex.EndTime,
			})
		}
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	if allFailed {
		if _, err := w.jobs.Finish(dbc, job.JobID, domain.JobFailed, domain.JobResultFailed{ErrorKind: string(apierr.KindAnalyzeFailed), Message: "all carousel items failed"}); err != nil {
			log.Error("failed to record job failure", "error", err.Error())
		}
		observability.JobsFinishedTotal.WithLabelValues(string(domain.JobFailed)).Inc()
		return
	}
	if _, err := w.jobs.Finish(dbc, job.JobID, domain.JobDone, domain.JobResultDone{Items: items}); err != nil {
		log.Error("failed to record job completion", "error", err.Error())
	}
	observability.JobsFinishedTotal.WithLabelValues(string(domain.JobDone)).Inc()
}

func (w *Worker) releaseLock(ctx context.Context, normalizedURL string) {
	if w.lock == nil {
		return
	}
	w.lock.Release(ctx, normalizedURL)
}

func (w *Worker) finishFailed(ctx context.Context, jobID string, kind apierr.Kind, message string) {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	if _, err := w.jobs.Finish(dbc, jobID, domain.JobFailed, domain.JobResultFailed{ErrorKind: string(kind), Message: message}); err != nil {
		w.log.Error("failed to record job failure", "job_id", jobID, "error", err.Error())
	}
	observability.JobsFinishedTotal.WithLabelValues(string(domain.JobFailed)).Inc()
}
