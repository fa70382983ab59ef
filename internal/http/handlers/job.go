package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/jobs"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/http/response"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
)

type JobHandler struct {
	jobs jobs.JobRepo
}

func NewJobHandler(jobRepo jobs.JobRepo) *JobHandler {
	return &JobHandler{jobs: jobRepo}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("job id required"))
		return
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()
	job, err := h.jobs.Get(dbc, jobID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs lists jobs newest-first, optionally filtered by state, for
// operator/dashboard use.
func (h *JobHandler) List(c *gin.Context) {
	filter := jobs.JobFilter{
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if state := c.Query("state"); state != "" {
		filter.State = domain.JobState(state)
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()
	list, err := h.jobs.List(dbc, filter)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": list})
}
