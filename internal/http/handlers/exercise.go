package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/exercises"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/http/response"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/pipeline"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
)

type ExerciseHandler struct {
	exercises exercises.ExerciseRepo
	deleter   *pipeline.Deleter
}

func NewExerciseHandler(exerciseRepo exercises.ExerciseRepo, deleter *pipeline.Deleter) *ExerciseHandler {
	return &ExerciseHandler{exercises: exerciseRepo, deleter: deleter}
}

// GET /api/exercises
func (h *ExerciseHandler) List(c *gin.Context) {
	filter := domain.ExerciseFilter{
		NameContains: c.Query("name"),
		Limit:        queryInt(c, "limit", 50),
		Offset:       queryInt(c, "offset", 0),
	}
	if v, ok := queryIntPtr(c, "fitness_level_min"); ok {
		filter.FitnessLevelMin = v
	}
	if v, ok := queryIntPtr(c, "fitness_level_max"); ok {
		filter.FitnessLevelMax = v
	}
	if v, ok := queryIntPtr(c, "intensity_min"); ok {
		filter.IntensityMin = v
	}
	if v, ok := queryIntPtr(c, "intensity_max"); ok {
		filter.IntensityMax = v
	}
	if v := c.Query("created_after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedAfter = &t
		}
	}
	if v := c.Query("created_before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedBefore = &t
		}
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()
	rows, err := h.exercises.List(dbc, filter)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"exercises": rows})
}

// GET /api/exercises/:id
func (h *ExerciseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()
	row, err := h.exercises.Get(dbc, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_failed", err)
		return
	}
	if row == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"exercise": row})
}

type bulkGetRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// POST /api/exercises/bulk_get preserves caller order, skipping unknown ids.
func (h *ExerciseHandler) BulkGet(c *gin.Context) {
	var req bulkGetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		ids = append(ids, id)
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()
	rows, err := h.exercises.GetMany(dbc, ids)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "bulk_get_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"exercises": rows})
}

// GET /api/exercises/search_by_url?url=...
func (h *ExerciseHandler) SearchByURL(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		response.RespondError(c, http.StatusBadRequest, "url_required", nil)
		return
	}
	dbc := dbctx.Background(nil)
	dbc.Ctx = c.Request.Context()
	rows, err := h.exercises.SearchByURL(dbc, url)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "search_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"exercises": rows})
}

// DELETE /api/exercises/:id cascades to the vector entry and clip file.
func (h *ExerciseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	found, err := h.deleter.CascadeDelete(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	if !found {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryIntPtr(c *gin.Context, key string) (*int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
