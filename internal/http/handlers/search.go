package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/http/response"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/retrieval"
)

type SearchHandler struct {
	searcher *retrieval.Searcher
	stories  *retrieval.StoryGenerator
}

func NewSearchHandler(searcher *retrieval.Searcher, stories *retrieval.StoryGenerator) *SearchHandler {
	return &SearchHandler{searcher: searcher, stories: stories}
}

type diverseSearchRequest struct {
	Query          string  `json:"query" binding:"required"`
	K              int     `json:"k"`
	ScoreThreshold float64 `json:"score_threshold"`
	MaxPerCategory int     `json:"max_per_category"`
}

// POST /api/search/diverse runs the category-capped diverse search directly
// against a free-text query.
func (h *SearchHandler) DiverseSearch(c *gin.Context) {
	var req diverseSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.K <= 0 {
		req.K = 10
	}
	if req.ScoreThreshold <= 0 {
		req.ScoreThreshold = 0.3
	}
	if req.MaxPerCategory <= 0 {
		req.MaxPerCategory = 2
	}

	hits, err := h.searcher.DiverseSearch(c.Request.Context(), req.Query, req.K, req.ScoreThreshold, req.MaxPerCategory)
	if err != nil {
		response.RespondKindError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"hits": hits})
}

type routineSearchRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	StoryCount  int    `json:"story_count"`
	KPerStory   int    `json:"k_per_story"`
}

// POST /api/search/routine turns a goal prompt into a handful of stories,
// each independently searched, and returns the union of resolved ids in
// story order for the caller to assemble into a Routine.
func (h *SearchHandler) RoutineSearch(c *gin.Context) {
	var req routineSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.StoryCount <= 0 {
		req.StoryCount = 3
	}
	if req.KPerStory <= 0 {
		req.KPerStory = 3
	}

	stories := h.stories.GenerateStories(c.Request.Context(), req.Prompt, req.StoryCount)

	seen := make(map[string]bool)
	ids := make([]string, 0, req.StoryCount*req.KPerStory)
	for _, story := range stories {
		storyIDs, err := h.searcher.SearchIDsForStory(c.Request.Context(), story, req.KPerStory)
		if err != nil {
			continue
		}
		for _, id := range storyIDs {
			s := id.String()
			if seen[s] {
				continue
			}
			seen[s] = true
			ids = append(ids, s)
		}
	}

	response.RespondOK(c, gin.H{"stories": stories, "exercise_ids": ids})
}
