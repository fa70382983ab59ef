// Package keyframe implements the cut-detection + dense-sampling +
// change-significance pruning pipeline that picks the minimum frame set the
// Multimodal Analyzer needs to reason about a video's movements.
package keyframe

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/gcp"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/localmedia"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

const (
	cutScanFPS  = 2.0
	denseFPS    = 8.0
	rateFloor   = 1.0
	rateCeiling = 8.0
	cutStdevK   = 3.0
)

type Extractor struct {
	log    *logger.Logger
	tools  localmedia.Tools
	scorer gcp.FrameScorer // optional; nil means the ceiling step keeps its histogram-diff-only ordering
}

func NewExtractor(log *logger.Logger, tools localmedia.Tools) *Extractor {
	return &Extractor{log: log.With("service", "KeyframeExtractor"), tools: tools}
}

// WithFrameScorer attaches a tie-breaker used when the per-second ceiling
// must drop frames whose DiffScore ties or nearly ties; nil disables it.
func (x *Extractor) WithFrameScorer(scorer gcp.FrameScorer) *Extractor {
	x.scorer = scorer
	return x
}

// Extract runs the full five-step algorithm against videoPath, writing
// candidate frame images under workDir and returning the kept subset in
// ascending timestamp order.
func (x *Extractor) Extract(ctx context.Context, videoPath, workDir string, durationSec float64) ([]domain.Keyframe, error) {
	if durationSec <= 0 {
		return nil, fmt.Errorf("keyframe: non-positive duration %v", durationSec)
	}

	scanDir := filepath.Join(workDir, "cutscan")
	scanFrames, err := x.tools.ExtractFramesAtFPS(ctx, videoPath, scanDir, 0, durationSec, cutScanFPS)
	if err != nil {
		return nil, fmt.Errorf("keyframe: cut-scan extraction: %w", err)
	}
	if len(scanFrames) == 0 {
		return nil, fmt.Errorf("keyframe: cut-scan produced no frames")
	}

	scanHists, err := x.histogramsParallel(ctx, scanFrames)
	if err != nil {
		return nil, err
	}

	cutTimestamps := detectCuts(scanHists, cutScanFPS, durationSec)

	type segment struct {
		start, end float64
		index      int
	}
	segments := make([]segment, 0, len(cutTimestamps)-1)
	for i := 0; i+1 < len(cutTimestamps); i++ {
		segments = append(segments, segment{start: cutTimestamps[i], end: cutTimestamps[i+1], index: i})
	}

	var kept []domain.Keyframe
	originalFrameNum := 0

	for _, seg := range segments {
		if seg.end-seg.start <= 0 {
			continue
		}
		denseDir := filepath.Join(workDir, fmt.Sprintf("cut_%03d", seg.index))
		denseFrames, err := x.tools.ExtractFramesAtFPS(ctx, videoPath, denseDir, seg.start, seg.end, denseFPS)
		if err != nil {
			return nil, fmt.Errorf("keyframe: dense sample segment %d: %w", seg.index, err)
		}
		if len(denseFrames) == 0 {
			continue
		}
		denseHists, err := x.histogramsParallel(ctx, denseFrames)
		if err != nil {
			return nil, err
		}

		segKept := pruneSegment(denseFrames, denseHists, seg.index, seg.start, denseFPS, &originalFrameNum)
		kept = append(kept, segKept...)
	}

	kept = x.enforceRateBounds(ctx, kept, durationSec)

	sort.Slice(kept, func(i, j int) bool { return kept[i].TimestampMS < kept[j].TimestampMS })
	return kept, nil
}

func (x *Extractor) histogramsParallel(ctx context.Context, paths []string) ([][histogramBuckets]float64, error) {
	out := make([][histogramBuckets]float64, len(paths))
	errs := make([]error, len(paths))

	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	var wg sync.WaitGroup
	for i, p := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("keyframe: acquire worker slot: %w", err)
		}
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			defer sem.Release(1)
			h, err := luminanceHistogram(path)
			out[idx] = h
			errs[idx] = err
		}(i, p)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("keyframe: histogram frame %d: %w", i, err)
		}
	}
	return out, nil
}

// detectCuts declares a cut boundary whenever the diff score between
// consecutive cut-scan frames exceeds a sliding-window mean + k*stdev
// threshold. The video's start and end are always boundaries.
func detectCuts(hists [][histogramBuckets]float64, scanFPS, durationSec float64) []float64 {
	if len(hists) < 2 {
		return []float64{0, durationSec}
	}

	diffs := make([]float64, len(hists)-1)
	for i := 0; i+1 < len(hists); i++ {
		diffs[i] = histogramDiff(hists[i], hists[i+1])
	}

	const window = 15
	boundaries := []float64{0}
	for i, d := range diffs {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		mean, stdev := meanStdev(diffs[lo:i])
		threshold := mean + cutStdevK*stdev
		if i > 0 && d > threshold && d > 0 {
			boundaries = append(boundaries, float64(i+1)/scanFPS)
		}
	}
	boundaries = append(boundaries, durationSec)

	sort.Float64s(boundaries)
	out := boundaries[:1]
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i]-out[len(out)-1] > 1e-6 {
			out = append(out, boundaries[i])
		}
	}
	return out
}

func meanStdev(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}

// pruneSegment keeps dense frames whose diff against the previously kept
// frame exceeds the segment's own mean diff, always keeping the segment's
// boundary (first) and last frame.
func pruneSegment(paths []string, hists [][histogramBuckets]float64, cutIndex int, segStart, fps float64, originalFrameNum *int) []domain.Keyframe {
	diffsFromPrevKept := make([]float64, len(paths))
	var lastKeptHist [histogramBuckets]float64
	hasLastKept := false

	segMean, _ := meanStdev(segmentSelfDiffs(hists))

	keepFlags := make([]bool, len(paths))
	for i := range paths {
		if i == 0 || i == len(paths)-1 {
			keepFlags[i] = true
			lastKeptHist = hists[i]
			hasLastKept = true
			continue
		}
		d := histogramDiff(hists[i], lastKeptHist)
		diffsFromPrevKept[i] = d
		if !hasLastKept || d > segMean {
			keepFlags[i] = true
			lastKeptHist = hists[i]
			hasLastKept = true
		}
	}

	out := make([]domain.Keyframe, 0, len(paths))
	for i, keep := range keepFlags {
		if !keep {
			*originalFrameNum++
			continue
		}
		ts := segStart + float64(i)/fps
		out = append(out, domain.Keyframe{
			Path:             paths[i],
			CutIndex:         cutIndex,
			OriginalFrameNum: *originalFrameNum,
			TimestampMS:      int64(ts * 1000),
			DiffScore:        diffsFromPrevKept[i],
		})
		*originalFrameNum++
	}
	return out
}

// breakCeilingTies nudges DiffScore within a narrow band around the
// bucket's own mean so the ceiling's sort prefers the sharper, better
// exposed frame among near-ties, without overriding a real histogram-diff
// gap. A scoring failure for any one frame is logged and skipped; the
// bucket still gets capped by its unmodified DiffScore.
func (x *Extractor) breakCeilingTies(ctx context.Context, frames []domain.Keyframe) {
	if x.scorer == nil {
		return
	}
	mean, stdev := meanStdev(diffScoresOf(frames))
	band := stdev * 0.25
	for i := range frames {
		if math.Abs(frames[i].DiffScore-mean) > band {
			continue // not a near-tie, leave the histogram-diff ordering alone
		}
		score, err := x.scorer.Score(ctx, frames[i].Path)
		if err != nil {
			x.log.Warn("frame quality score failed, keeping histogram-diff order", "path", frames[i].Path, "error", err.Error())
			continue
		}
		// Within the near-tie band, order by vision quality instead of the
		// statistically indistinguishable histogram diff.
		frames[i].DiffScore = mean + score*band
	}
}

func diffScoresOf(frames []domain.Keyframe) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.DiffScore
	}
	return out
}

func segmentSelfDiffs(hists [][histogramBuckets]float64) []float64 {
	if len(hists) < 2 {
		return nil
	}
	out := make([]float64, 0, len(hists)-1)
	for i := 0; i+1 < len(hists); i++ {
		out = append(out, histogramDiff(hists[i], hists[i+1]))
	}
	return out
}

// enforceRateBounds drops the lowest-score frames in any second exceeding 8
// kept frames (ceiling), then fills every gap wider than 1s with evenly
// spaced entries so that no gap stays above 1s (floor). A fill entry reuses
// the image file of the kept frame before the gap; no new frame is decoded
// for it.
func (x *Extractor) enforceRateBounds(ctx context.Context, kept []domain.Keyframe, durationSec float64) []domain.Keyframe {
	if len(kept) == 0 {
		return kept
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].TimestampMS < kept[j].TimestampMS })

	// Ceiling: cap at rateCeiling frames per whole-second bucket, dropping
	// the lowest-score frames first (boundary frames carry DiffScore 0 and
	// are deliberately not prioritized for removal beyond their score).
	buckets := map[int64][]domain.Keyframe{}
	for _, kf := range kept {
		sec := kf.TimestampMS / 1000
		buckets[sec] = append(buckets[sec], kf)
	}
	capped := make([]domain.Keyframe, 0, len(kept))
	for _, frames := range buckets {
		if len(frames) <= rateCeiling {
			capped = append(capped, frames...)
			continue
		}
		x.breakCeilingTies(ctx, frames)
		sort.Slice(frames, func(i, j int) bool { return frames[i].DiffScore > frames[j].DiffScore })
		capped = append(capped, frames[:int(rateCeiling)]...)
	}
	sort.Slice(capped, func(i, j int) bool { return capped[i].TimestampMS < capped[j].TimestampMS })

	// Floor: split any gap > 1s into evenly spaced steps of at most 1s.
	out := make([]domain.Keyframe, 0, len(capped))
	for i, kf := range capped {
		out = append(out, kf)
		if i+1 >= len(capped) {
			continue
		}
		gapMS := capped[i+1].TimestampMS - kf.TimestampMS
		if gapMS <= 1000 {
			continue
		}
		fillCount := int((gapMS+999)/1000) - 1
		for f := 1; f <= fillCount; f++ {
			ts := kf.TimestampMS + int64(f)*gapMS/int64(fillCount+1)
			out = append(out, domain.Keyframe{
				Path:             kf.Path,
				CutIndex:         kf.CutIndex,
				OriginalFrameNum: kf.OriginalFrameNum,
				TimestampMS:      ts,
				DiffScore:        0,
			})
		}
	}
	return out
}
