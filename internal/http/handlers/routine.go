package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/http/response"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/retrieval"
)

type RoutineHandler struct {
	curator *retrieval.Curator
}

func NewRoutineHandler(curator *retrieval.Curator) *RoutineHandler {
	return &RoutineHandler{curator: curator}
}

type createRoutineRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	ExerciseIDs []string `json:"exercise_ids"`
}

// POST /api/routines
func (h *RoutineHandler) Create(c *gin.Context) {
	var req createRoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ExerciseIDs))
	for _, raw := range req.ExerciseIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_exercise_id", err)
			return
		}
		ids = append(ids, id)
	}

	row, err := h.curator.CreateRoutine(c.Request.Context(), req.Name, req.Description, ids)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "create_routine_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"routine": row})
}

// GET /api/routines/:id
func (h *RoutineHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	row, err := h.curator.GetRoutine(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_routine_failed", err)
		return
	}
	if row == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"routine": row})
}

// GET /api/routines
func (h *RoutineHandler) List(c *gin.Context) {
	rows, err := h.curator.ListRoutines(c.Request.Context(), queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_routines_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"routines": rows})
}

// DELETE /api/routines/:id
func (h *RoutineHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.curator.DeleteRoutine(c.Request.Context(), id); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "delete_routine_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkGetExercisesRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// POST /api/routines/bulk_get_exercises resolves a routine's ExerciseIDs
// (or any caller-supplied id list) against the Exercise Store.
func (h *RoutineHandler) BulkGetExercises(c *gin.Context) {
	var req bulkGetExercisesRequest
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
	rows, err := h.curator.BulkGetExercises(c.Request.Context(), ids)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "bulk_get_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"exercises": rows})
}
