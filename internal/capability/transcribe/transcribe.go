// Package transcribe defines the pluggable Transcriber contract: produce
// time-aligned text segments from an audio track.
package transcribe

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
		return "transcribe_failed: " + e.Message + ": " + e.Cause.Error()
	}
	return "transcribe_failed: " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Transcriber produces segments in ascending Start order; the core does
// not require word-level alignment.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaFile string) ([]domain.TranscriptSegment, error)
}

const (
	// MinQualityChars and MinQualityTokens gate whether a transcript is
	// substantial enough to hand to the Analyzer (music-only captions
	// must not drive exercise detection).
	MinQualityChars  = 20
	MinQualityTokens = 3
)

// PassesQualityGate applies the Orchestrator's transcript quality check
// ahead of the Analyzer call.
func PassesQualityGate(segments []domain.TranscriptSegment) bool {
	var text string
	for _, s := range segments {
		text += s.Text + " "
	}
	if len(text) < MinQualityChars {
		return false
	}
	return countDistinctAlphabeticTokens(text) >= MinQualityTokens
}

func countDistinctAlphabeticTokens(text string) int {
	seen := map[string]bool{}
	var cur []rune
	flush := func() {
		if len(cur) == 0 {
			return
		}
		seen[string(cur)] = true
		cur = cur[:0]
	}
	for _, r := range text {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if isAlpha {
			if r >= 'A' && r <= 'Z' {
				r = r + ('a' - 'A')
			}
			cur = append(cur, r)
			continue
		}
		flush()
	}
	flush()
	return len(seen)
}
