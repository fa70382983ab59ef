// Package clip cuts a verified, self-contained media file out of a source
// video for one normalized segment and names it deterministically.
package clip

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/apierr"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/localmedia"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

const durationToleranceSec = 0.25

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

type Materializer struct {
	log   *logger.Logger
	tools localmedia.Tools
}

func NewMaterializer(log *logger.Logger, tools localmedia.Tools) *Materializer {
	return &Materializer{log: log.With("service", "ClipMaterializer"), tools: tools}
}

// Materialize cuts [start, end) out of sourcePath into outDir and returns
// the produced file's path. Any partial output is removed before returning
// on failure.
func (m *Materializer) Materialize(ctx context.Context, sourcePath, outDir, name string, start, end float64) (string, error) {
	if end <= start {
		return "", apierr.New(apierr.KindMaterializeFailed, "end must be after start")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", apierr.Wrap(apierr.KindMaterializeFailed, "create output dir", err)
	}

	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = ".mp4"
	}
	targetPath := filepath.Join(outDir, OutputFilename(name, sourcePath, start)+ext)

	if err := m.tools.CutClip(ctx, sourcePath, targetPath, start, end); err != nil {
		_ = os.Remove(targetPath)
		return "", apierr.Wrap(apierr.KindMaterializeFailed, "tool_exit_nonzero", err)
	}

	info, statErr := os.Stat(targetPath)
	if statErr != nil || info.Size() == 0 {
		_ = os.Remove(targetPath)
		return "", apierr.New(apierr.KindMaterializeFailed, "io: output file missing or empty")
	}

	probe, err := m.tools.Probe(ctx, targetPath)
	if err != nil {
		_ = os.Remove(targetPath)
		return "", apierr.Wrap(apierr.KindMaterializeFailed, "probe_failed", err)
	}
	if !probe.HasVideo {
		_ = os.Remove(targetPath)
		return "", apierr.New(apierr.KindMaterializeFailed, "probe_failed: no readable video stream")
	}

	want := end - start
	if math.Abs(probe.DurationSec-want) > durationToleranceSec {
		_ = os.Remove(targetPath)
		return "", apierr.New(apierr.KindMaterializeFailed,
			fmt.Sprintf("duration_mismatch: want=%.3f got=%.3f", want, probe.DurationSec))
	}

	return targetPath, nil
}

// OutputFilename builds {slug(name)}_{short_hash(name,source,start)},
// without extension.
func OutputFilename(name, sourcePath string, start float64) string {
	slug := slugify(name)
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.3f", name, sourcePath, start)))
	shortHash := hex.EncodeToString(h[:])[:10]
	return fmt.Sprintf("%s_%s", slug, shortHash)
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		s = "clip"
	}
	return s
}
