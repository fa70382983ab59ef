// Package retrieval implements story generation and the diverse-search
// curation primitive on top of the Vector Store and Exercise Store, plus
// Routine CRUD.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/embed"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/exercises"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/observability"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/vectorstore"
)

const (
	defaultScoreThreshold = 0.3
	defaultMaxPerCategory = 2
	searchBuffer          = 40
)

// categoryKeywords maps a movement-family category to the keywords that
// identify it in an exercise's name + how_to text. Order is fixed: the
// first matching category wins, so more specific families are listed
// before broader ones.
var categoryOrder = []string{"handstand", "stretch", "core", "push", "hip_leg", "balance", "wall", "floor"}

var categoryKeywords = map[string][]string{
	"handstand": {"handstand", "headstand"},
	"stretch":   {"stretch", "mobility", "flexibility"},
	"core":      {"core", "ab ", "abs", "plank", "crunch"},
	"push":      {"push", "press", "pushup"},
	"hip_leg":   {"squat", "lunge", "deadlift", "hip", "leg"},
	"balance":   {"balance", "single leg", "stability"},
	"wall":      {"wall"},
	"floor":     {"floor", "ground"},
}

const otherCategory = "other"

// Searcher is the diverse-search core primitive: embed a query, pull a
// generous buffer of hits above threshold, then greedily select up to
// kFinal results capped per movement-family category.
type Searcher struct {
	log       *logger.Logger
	embedder  embed.Embedder
	vectors   vectorstore.VectorStore
	exercises exercises.ExerciseRepo
}

func NewSearcher(log *logger.Logger, embedder embed.Embedder, vectors vectorstore.VectorStore, exerciseRepo exercises.ExerciseRepo) *Searcher {
	return &Searcher{log: log.With("service", "retrieval.Searcher"), embedder: embedder, vectors: vectors, exercises: exerciseRepo}
}

// DiverseHit pairs a vector-store hit's score with its joined Exercise row.
type DiverseHit struct {
	Exercise *domain.Exercise
	Score    float64
}

// DiverseSearch implements the five-step procedure: embed, over-fetch,
// categorize, greedily cap per category, post-join against the metadata
// store (dropping orphans whose database_id no longer resolves).
func (s *Searcher) DiverseSearch(ctx context.Context, queryText string, kFinal int, scoreThreshold float64, maxPerCategory int) ([]DiverseHit, error) {
	start := time.Now()
	defer func() { observability.SearchLatencySeconds.Observe(time.Since(start).Seconds()) }()

	if scoreThreshold <= 0 {
		scoreThreshold = defaultScoreThreshold
	}
	if maxPerCategory <= 0 {
		maxPerCategory = defaultMaxPerCategory
	}

	vecs, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil || len(vecs) != 1 {
		return nil, err
	}

	fetchCount := 2*kFinal + searchBuffer
	hits, err := s.vectors.Search(ctx, vecs[0], fetchCount, scoreThreshold, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	counts := map[string]int{}
	var picked []vectorstore.Hit
	for _, hit := range hits {
		if len(picked) >= kFinal {
			break
		}
		cat := categorize(hit.Payload)
		if counts[cat] >= maxPerCategory {
			continue
		}
		counts[cat]++
		picked = append(picked, hit)
	}

	ids := make([]uuid.UUID, 0, len(picked))
	idToHit := map[uuid.UUID]vectorstore.Hit{}
	for _, hit := range picked {
		raw, ok := hit.Payload[vectorstore.DatabaseIDKey].(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		idToHit[id] = hit
	}

	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	rows, err := s.exercises.GetMany(dbc, ids)
	if err != nil {
		return nil, err
	}

	out := make([]DiverseHit, 0, len(rows))
	for _, row := range rows {
		hit := idToHit[row.ID]
		out = append(out, DiverseHit{Exercise: row, Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// SearchIDsForStory runs DiverseSearch and returns only ordered ids, the
// shape the curation API exposes.
func (s *Searcher) SearchIDsForStory(ctx context.Context, story string, k int) ([]uuid.UUID, error) {
	hits, err := s.DiverseSearch(ctx, story, k, defaultScoreThreshold, defaultMaxPerCategory)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.Exercise.ID)
	}
	return ids, nil
}

func categorize(payload map[string]any) string {
	var text strings.Builder
	if name, ok := payload["name"].(string); ok {
		text.WriteString(strings.ToLower(name))
		text.WriteString(" ")
	}
	if howTo, ok := payload["how_to"].(string); ok {
		text.WriteString(strings.ToLower(howTo))
	}
	blob := text.String()
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(blob, kw) {
				return cat
			}
		}
	}
	return otherCategory
}
