// Package pipeline hosts the Orchestrator and the stages it drives between
// capability calls: segment normalization (this file) and the per-exercise
// materialize/persist transaction (orchestrator.go).
package pipeline

import (
	"sort"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
)

const (
	minSegmentSeconds      = 3.5
	nearDuplicateWindowSec = 3.0
	overlapIoUThreshold    = 0.5
	singleSegmentCoverage  = 0.8
	minConfidence          = 0.3
)

// NormalizeSegments runs the seven-step cleanup over raw Analyzer candidates:
// clip to [0,T], drop sub-minimum spans, collapse near-duplicates and
// overlaps keeping the higher-confidence (then longer) survivor, extend a
// lone short segment to cover the full video, drop low-confidence leftovers,
// and return the rest ordered by ascending start.
func NormalizeSegments(candidates []domain.Candidate, videoDurationSec float64) []domain.Candidate {
	clipped := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.Start = clamp(c.Start, 0, videoDurationSec)
		c.End = clamp(c.End, 0, videoDurationSec)
		if c.End-c.Start < minSegmentSeconds {
			continue
		}
		clipped = append(clipped, c)
	}

	sort.SliceStable(clipped, func(i, j int) bool { return clipped[i].Start < clipped[j].Start })

	deduped := suppressNearDuplicates(clipped)
	consolidated := consolidateOverlaps(deduped)

	if len(consolidated) == 1 && consolidated[0].Duration() < singleSegmentCoverage*videoDurationSec {
		consolidated[0].Start = 0
		consolidated[0].End = videoDurationSec
	}

	final := make([]domain.Candidate, 0, len(consolidated))
	for _, c := range consolidated {
		if c.Confidence < minConfidence {
			continue
		}
		final = append(final, c)
	}

	sort.SliceStable(final, func(i, j int) bool { return final[i].Start < final[j].Start })
	return final
}

// suppressNearDuplicates collapses candidates whose starts fall within
// nearDuplicateWindowSec of one another, keeping the higher-confidence one
// and breaking ties by longer duration. Input must already be start-sorted.
func suppressNearDuplicates(sorted []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(sorted))
	for _, c := range sorted {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if c.Start-last.Start < nearDuplicateWindowSec {
				if preferFirst(*last, c) {
					continue
				}
				*last = c
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// consolidateOverlaps repeatedly merges the first pair whose
// intersection-over-union exceeds overlapIoUThreshold until no pair
// qualifies. Candidates are few per video so the quadratic scan is fine.
func consolidateOverlaps(in []domain.Candidate) []domain.Candidate {
	cur := append([]domain.Candidate(nil), in...)
	for {
		merged := false
		for i := 0; i < len(cur); i++ {
			for j := i + 1; j < len(cur); j++ {
				if iou(cur[i], cur[j]) <= overlapIoUThreshold {
					continue
				}
				winner := cur[i]
				if !preferFirst(cur[i], cur[j]) {
					winner = cur[j]
				}
				next := make([]domain.Candidate, 0, len(cur)-1)
				for k, c := range cur {
					if k == i || k == j {
						continue
					}
					next = append(next, c)
				}
				next = append(next, winner)
				cur = next
				merged = true
				break
			}
			if merged {
				break
			}
		}
		if !merged {
			break
		}
	}
	sort.SliceStable(cur, func(i, j int) bool { return cur[i].Start < cur[j].Start })
	return cur
}

// preferFirst reports whether a should win over b: higher confidence, or
// equal confidence and longer duration.
func preferFirst(a, b domain.Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Duration() >= b.Duration()
}

func iou(a, b domain.Candidate) float64 {
	interStart := maxf(a.Start, b.Start)
	interEnd := minf(a.End, b.End)
	inter := maxf(0, interEnd-interStart)
	union := (a.End - a.Start) + (b.End - b.Start) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
