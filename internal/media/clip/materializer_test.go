package clip

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/apierr"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/localmedia"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type fakeTools struct {
	localmedia.Tools
	cutErr      error
	probeResult *localmedia.ProbeResult
	probeErr    error
	writeBytes  int
}

func (f *fakeTools) CutClip(ctx context.Context, sourcePath, targetPath string, start, end float64) error {
	if f.cutErr != nil {
		return f.cutErr
	}
	n := f.writeBytes
	if n == 0 {
		n = 100
	}
	return os.WriteFile(targetPath, make([]byte, n), 0o644)
}

func (f *fakeTools) Probe(ctx context.Context, path string) (*localmedia.ProbeResult, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.probeResult, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestMaterialize_Success(t *testing.T) {
	dir := t.TempDir()
	tools := &fakeTools{probeResult: &localmedia.ProbeResult{DurationSec: 5.0, HasVideo: true}}
	m := NewMaterializer(newTestLogger(t), tools)

	path, err := m.Materialize(context.Background(), filepath.Join(dir, "source.mp4"), dir, "Jump Squat", 10, 15)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected output file to exist: %v", statErr)
	}
}

func TestMaterialize_DurationMismatch(t *testing.T) {
	dir := t.TempDir()
	tools := &fakeTools{probeResult: &localmedia.ProbeResult{DurationSec: 1.0, HasVideo: true}}
	m := NewMaterializer(newTestLogger(t), tools)

	_, err := m.Materialize(context.Background(), filepath.Join(dir, "source.mp4"), dir, "Jump Squat", 10, 15)
	if err == nil {
		t.Fatal("expected duration mismatch error")
	}
	if apierr.KindOf(err) != apierr.KindMaterializeFailed {
		t.Fatalf("expected KindMaterializeFailed, got %v", apierr.KindOf(err))
	}
}

func TestMaterialize_NoVideoStream(t *testing.T) {
	dir := t.TempDir()
	tools := &fakeTools{probeResult: &localmedia.ProbeResult{DurationSec: 5.0, HasVideo: false}}
	m := NewMaterializer(newTestLogger(t), tools)

	path, err := m.Materialize(context.Background(), filepath.Join(dir, "source.mp4"), dir, "Jump Squat", 10, 15)
	if err == nil {
		t.Fatal("expected error for missing video stream")
	}
	if path != "" {
		t.Fatalf("expected empty path on failure, got %q", path)
	}
	target := filepath.Join(dir, OutputFilename("Jump Squat", filepath.Join(dir, "source.mp4"), 10)+".mp4")
	if _, statErr := os.Stat(target); statErr == nil {
		t.Fatal("expected partial output to be removed")
	}
}

func TestOutputFilename_SlugAndLength(t *testing.T) {
	name := "Über Long Exercise Name!! With Lots Of Punctuation $$$ " +
		"and repeated words and repeated words and repeated words to exceed eighty chars"
	got := OutputFilename(name, "/tmp/source.mp4", 12.5)
	slug := got[:len(got)-11] // strip "_" + 10-char hash
	if len(slug) > 80 {
		t.Fatalf("slug exceeds 80 chars: %d", len(slug))
	}
	if slug != slugify(name) {
		t.Fatalf("slug mismatch: got %q want %q", slug, slugify(name))
	}
}
