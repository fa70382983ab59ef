package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/canon"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/jobs"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/http/response"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
)

// URLRegistrar bridges an admitted job_id back to the URL it was submitted
// with, since the Job Ledger row itself carries no URL column.
type URLRegistrar interface {
	Put(jobID, url string)
}

// IngestLocker serializes admission of the same normalized URL ahead of
// the Exercise Store's uniqueness constraint. A nil Locker (Redis unset)
// degrades to "always proceed", so it is held behind this narrow
// interface rather than imported concretely.
type IngestLocker interface {
	TryAcquire(ctx context.Context, normalizedURL string) (bool, error)
}

type IngestionHandler struct {
	jobs jobs.JobRepo
	urls URLRegistrar
	lock IngestLocker
}

func NewIngestionHandler(jobRepo jobs.JobRepo, urls URLRegistrar, lock IngestLocker) *IngestionHandler {
	return &IngestionHandler{jobs: jobRepo, urls: urls, lock: lock}
}

type ingestRequest struct {
	URL string `json:"url" binding:"required"`
}

// POST /api/ingest admits a URL for background processing: it creates a
// pending Job row and hands back the job_id immediately. The worker poll
// loop picks it up and drives the Pipeline Orchestrator. A concurrent
// admission of the same normalized URL is rejected before it ever reaches
// a pending row, so the dedup fast-path never races the worker.
func (h *IngestionHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	normalizedURL, err := canon.Normalize(req.URL)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_url", err)
		return
	}

	if h.lock != nil {
		acquired, err := h.lock.TryAcquire(c.Request.Context(), normalizedURL)
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "lock_check_failed", err)
			return
		}
		if !acquired {
			response.RespondError(c, http.StatusConflict, "ingest_in_progress", fmt.Errorf("an ingestion for this url is already in progress"))
			return
		}
	}

	jobID := uuid.New().String()
	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()

	job, err := h.jobs.Create(dbc, jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return
	}

	h.urls.Put(jobID, normalizedURL)
	response.RespondCreated(c, gin.H{"job": job})
}
