// Package fallback implements a keyword-matching Analyzer used when no
// multimodal backend is configured, or as a degraded mode when the
// multimodal call itself fails. It never inspects frame pixels, only the
// transcript, and reports low confidence accordingly.
package fallback

import (
	"context"
	"strings"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
)

const fallbackConfidence = 0.3

const minSegmentSeconds = 3.5

// keywords maps a lowercase transcript term to the exercise name it implies.
// Deliberately small: this backend exists to keep the pipeline alive when
// multimodal analysis is unavailable, not to replace it.
var keywords = map[string]string{
	"squat":      "Squat",
	"pushup":     "Push-Up",
	"push-up":    "Push-Up",
	"push up":    "Push-Up",
	"plank":      "Plank",
	"lunge":      "Lunge",
	"burpee":     "Burpee",
	"deadlift":   "Deadlift",
	"situp":      "Sit-Up",
	"sit-up":     "Sit-Up",
	"crunch":     "Crunch",
	"jumping jack": "Jumping Jack",
	"mountain climber": "Mountain Climber",
	"stretch":    "Stretch",
}

type analyzer struct{}

func New() analyze.Analyzer {
	return &analyzer{}
}

func (a *analyzer) Analyze(ctx context.Context, frames []domain.Keyframe, transcript []domain.TranscriptSegment, analyzerCtx domain.AnalyzerContext) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for _, seg := range transcript {
		if seg.End-seg.Start < minSegmentSeconds {
			continue
		}
		lower := strings.ToLower(seg.Text)
		name, ok := matchKeyword(lower)
		if !ok {
			continue
		}
		out = append(out, domain.Candidate{
			Name:       name,
			Start:      seg.Start,
			End:        seg.End,
			HowTo:      seg.Text,
			Confidence: fallbackConfidence,
		})
	}
	return out, nil
}

func matchKeyword(text string) (string, bool) {
	for kw, name := range keywords {
		if strings.Contains(text, kw) {
			return name, true
		}
	}
	return "", false
}
