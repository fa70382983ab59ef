package pipeline

import (
	"testing"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
)

func TestNormalizeSegments_DropsSubMinimum(t *testing.T) {
	in := []domain.Candidate{{Name: "Too Short", Start: 1, End: 2, Confidence: 0.9}}
	out := NormalizeSegments(in, 60)
	if len(out) != 0 {
		t.Fatalf("expected sub-minimum segment dropped, got %+v", out)
	}
}

func TestNormalizeSegments_NearDuplicateKeepsHigherConfidence(t *testing.T) {
	in := []domain.Candidate{
		{Name: "Squat A", Start: 0, End: 5, Confidence: 0.4},
		{Name: "Squat B", Start: 1, End: 6, Confidence: 0.9},
	}
	out := NormalizeSegments(in, 60)
	if len(out) != 1 || out[0].Name != "Squat B" {
		t.Fatalf("expected single higher-confidence survivor, got %+v", out)
	}
}

func TestNormalizeSegments_OverlapConsolidation(t *testing.T) {
	in := []domain.Candidate{
		{Name: "Plank A", Start: 0, End: 10, Confidence: 0.5},
		{Name: "Plank B", Start: 4, End: 11, Confidence: 0.6},
	}
	out := NormalizeSegments(in, 60)
	if len(out) != 1 || out[0].Name != "Plank B" {
		t.Fatalf("expected overlap collapsed to higher-confidence candidate, got %+v", out)
	}
}

func TestNormalizeSegments_SingleSegmentExtension(t *testing.T) {
	in := []domain.Candidate{{Name: "Lunge", Start: 5, End: 10, Confidence: 0.9}}
	out := NormalizeSegments(in, 60)
	if len(out) != 1 {
		t.Fatalf("expected one candidate, got %d", len(out))
	}
	if out[0].Start != 0 || out[0].End != 60 {
		t.Fatalf("expected extension to [0,T], got [%f,%f]", out[0].Start, out[0].End)
	}
}

func TestNormalizeSegments_ConfidenceFilter(t *testing.T) {
	in := []domain.Candidate{
		{Name: "A", Start: 0, End: 10, Confidence: 0.9},
		{Name: "B", Start: 20, End: 30, Confidence: 0.1},
	}
	out := NormalizeSegments(in, 60)
	if len(out) != 1 || out[0].Name != "A" {
		t.Fatalf("expected low-confidence candidate dropped, got %+v", out)
	}
}

func TestNormalizeSegments_StableAscendingOrder(t *testing.T) {
	in := []domain.Candidate{
		{Name: "Late", Start: 30, End: 40, Confidence: 0.9},
		{Name: "Early", Start: 0, End: 10, Confidence: 0.9},
	}
	out := NormalizeSegments(in, 60)
	if len(out) != 2 || out[0].Name != "Early" || out[1].Name != "Late" {
		t.Fatalf("expected ascending start order, got %+v", out)
	}
}
