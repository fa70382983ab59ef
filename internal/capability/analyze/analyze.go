// Package analyze defines the pluggable Multimodal Analyzer contract:
// given frames, an optional transcript, and context, return candidate
// exercise segments.
package analyze

import (
	"context"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
)

type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return "analyze_failed: " + e.Message + ": " + e.Cause.Error()
	}
	return "analyze_failed: " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Analyzer must enforce the prompt invariants itself: segments ≥3.5s,
// no overlapping duplicates for the same movement, an empty list rather
// than a fabrication when no exercise is present, and confidence in [0,1].
// The Segment Normalizer re-checks these rather than trusting the
// implementation blindly.
type Analyzer interface {
	Analyze(ctx context.Context, frames []domain.Keyframe, transcript []domain.TranscriptSegment, analyzerCtx domain.AnalyzerContext) ([]domain.Candidate, error)
}
