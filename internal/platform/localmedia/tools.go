// Package localmedia is the ffmpeg/ffprobe glue the Keyframe Extractor and
// Clip Materializer both shell out through. No Go video-decoding library is
// wired because none in the corpus covers frame-accurate cutting; the
// corpus's pattern for this kind of work is always exec.CommandContext
// against the system binary.
package localmedia

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/ctxutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type Tools interface {
	AssertReady(ctx context.Context) error

	Probe(ctx context.Context, mediaPath string) (*ProbeResult, error)
	DumpFrame(ctx context.Context, videoPath, outPath string, timestampSec float64) error
	ExtractFramesAtFPS(ctx context.Context, videoPath, outDir string, startSec, endSec, fps float64) ([]string, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string, sampleRateHz int) (string, error)
	CutClip(ctx context.Context, sourcePath, targetPath string, startSec, endSec float64) error
}

type ProbeResult struct {
	DurationSec  float64
	HasVideo     bool
	Width        int
	Height       int
}

type tools struct {
	log        *logger.Logger
	ffmpegPath string
	ffprobePath string

	workRoot       string
	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		workRoot:       "/tmp/fittness-builder-media",
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	_ = ctx
	return os.MkdirAll(m.workRoot, 0o755)
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

func (m *tools) Probe(ctx context.Context, mediaPath string) (*ProbeResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type,width,height",
		"-of", "json",
		mediaPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("ffprobe: parse output: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: unreadable duration %q: %w", parsed.Format.Duration, err)
	}

	res := &ProbeResult{DurationSec: dur}
	for _, s := range parsed.Streams {
		if s.CodecType == "video" {
			res.HasVideo = true
			res.Width, res.Height = s.Width, s.Height
			break
		}
	}
	return res, nil
}

// DumpFrame decodes the single frame nearest timestampSec to outPath. The
// Keyframe Extractor does not call it: cut detection and dense sampling
// both render their frames in bulk through ExtractFramesAtFPS.
func (m *tools) DumpFrame(ctx context.Context, videoPath, outPath string, timestampSec float64) error {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("mkdir outPath dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-ss", formatSeconds(timestampSec),
		"-i", videoPath,
		"-frames:v", "1",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg dump frame failed: %w; out=%s", err, truncateOutput(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("frame output missing at %s", outPath)
	}
	return nil
}

// ExtractFramesAtFPS renders dense frames for [startSec, endSec) at fps,
// the Keyframe Extractor's per-segment dense-sampling step.
func (m *tools) ExtractFramesAtFPS(ctx context.Context, videoPath, outDir string, startSec, endSec, fps float64) ([]string, error) {
	ctx = ctxutil.Default(ctx)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}
	if fps <= 0 {
		fps = 8
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	outPattern := filepath.Join(outDir, "dense_%06d.jpg")
	args := []string{
		"-y",
		"-ss", formatSeconds(startSec),
		"-to", formatSeconds(endSec),
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%0.6f", fps),
		"-q:v", "3",
		outPattern,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg dense sample failed: %w; out=%s", err, truncateOutput(out))
	}

	frames, err := globSorted(outDir, `^dense_\d+\.jpg$`)
	if err != nil {
		return nil, err
	}
	return frames, nil
}

func (m *tools) ExtractAudio(ctx context.Context, videoPath, outPath string, sampleRateHz int) (string, error) {
	ctx = ctxutil.Default(ctx)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}
	if sampleRateHz <= 0 {
		sampleRateHz = 16000
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRateHz),
		"-f", "wav",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, truncateOutput(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio output missing at %s", outPath)
	}
	return outPath, nil
}

// CutClip extracts [startSec, endSec) into targetPath. It first attempts a
// lossless stream copy (-c copy); if that ffmpeg run fails or its output
// does not pass isValidCut, it falls back to a re-encode. Whether the cut
// points land on keyframes is not checked.
func (m *tools) CutClip(ctx context.Context, sourcePath, targetPath string, startSec, endSec float64) error {
	ctx = ctxutil.Default(ctx)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("mkdir targetPath dir: %w", err)
	}
	duration := endSec - startSec
	if duration <= 0 {
		return fmt.Errorf("cut clip: end must be after start")
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	copyArgs := []string{
		"-y",
		"-ss", formatSeconds(startSec),
		"-i", sourcePath,
		"-t", formatSeconds(duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		targetPath,
	}
	cmd := exec.CommandContext(ctx, m.ffmpegPath, copyArgs...)
	if out, err := cmd.CombinedOutput(); err == nil {
		if isValidCut(targetPath) {
			return nil
		}
		m.log.Debug("stream-copy cut produced unusable output, re-encoding", "target_path", targetPath)
	} else {
		m.log.Debug("stream-copy cut rejected, re-encoding", "error", err.Error(), "out", truncateOutput(out))
	}
	_ = os.Remove(targetPath)

	reencodeArgs := []string{
		"-y",
		"-ss", formatSeconds(startSec),
		"-i", sourcePath,
		"-t", formatSeconds(duration),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-movflags", "+faststart",
		targetPath,
	}
	cmd = exec.CommandContext(ctx, m.ffmpegPath, reencodeArgs...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg cut clip failed: %w; out=%s", err, truncateOutput(out))
	}
	return nil
}

func isValidCut(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func formatSeconds(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func truncateOutput(out []byte) string {
	const max = 2048
	if len(out) <= max {
		return string(out)
	}
	return string(out[:max]) + "..."
}

func globSorted(dir, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if re.MatchString(strings.ToLower(e.Name())) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
