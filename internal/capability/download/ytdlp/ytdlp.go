// Package ytdlp implements the Downloader capability by shelling out to the
// yt-dlp binary, one variant per platform family so each can carry its own
// carousel-fetch quirks while sharing the same exec plumbing.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/download"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/canon"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type ytdlpInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Tags        []string `json:"tags"`

	// Entries is populated when yt-dlp resolves a playlist-shaped URL
	// (Instagram carousels present this way).
	Entries []ytdlpInfo `json:"entries,omitempty"`
}

type downloader struct {
	log        *logger.Logger
	platform   canon.Platform
	binPath    string
	workRoot   string
	timeout    time.Duration
	maxRetries int
}

func NewTikTok(log *logger.Logger) download.Downloader {
	return newDownloader(log, canon.PlatformTikTok)
}

func NewInstagram(log *logger.Logger) download.Downloader {
	return newDownloader(log, canon.PlatformInstagram)
}

func NewYouTubeShorts(log *logger.Logger) download.Downloader {
	return newDownloader(log, canon.PlatformYouTubeShorts)
}

func newDownloader(log *logger.Logger, platform canon.Platform) download.Downloader {
	binPath := strings.TrimSpace(os.Getenv("YTDLP_PATH"))
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &downloader{
		log:        log.With("service", "ytdlp.Downloader", "platform", string(platform)),
		platform:   platform,
		binPath:    binPath,
		workRoot:   "/tmp/fittness-builder-downloads",
		timeout:    10 * time.Minute,
		maxRetries: 3,
	}
}

func (d *downloader) Download(ctx context.Context, normalizedURL string) ([]download.Result, error) {
	workDir, err := os.MkdirTemp(d.workRoot, "job-*")
	if err != nil {
		if mkErr := os.MkdirAll(d.workRoot, 0o755); mkErr != nil {
			return nil, &download.Error{Kind: download.ErrorDecode, Message: "create work root", Cause: mkErr}
		}
		workDir, err = os.MkdirTemp(d.workRoot, "job-*")
		if err != nil {
			return nil, &download.Error{Kind: download.ErrorDecode, Message: "create temp workdir", Cause: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	info, err := retryOnNetworkError(ctx, d.maxRetries, d.log, "fetch metadata", func() (ytdlpInfo, error) {
		return d.fetchMetadata(ctx, normalizedURL)
	})
	if err != nil {
		return nil, err
	}

	items := []ytdlpInfo{info}
	if len(info.Entries) > 0 {
		items = info.Entries
	}

	results := make([]download.Result, 0, len(items))
	for _, item := range items {
		path, err := retryOnNetworkError(ctx, d.maxRetries, d.log, "fetch media", func() (string, error) {
			return d.fetchMedia(ctx, item.ID, normalizedURL, workDir)
		})
		if err != nil {
			return nil, err
		}
		results = append(results, download.Result{
			MediaFiles: []string{path},
			Metadata: download.Metadata{
				Description: item.Description,
				Tags:        item.Tags,
				DurationSec: item.Duration,
				Title:       item.Title,
			},
			TempDir: workDir,
		})
	}
	return results, nil
}

func (d *downloader) fetchMetadata(ctx context.Context, url string) (ytdlpInfo, error) {
	args := []string{"--dump-json", "--no-playlist", url}
	if d.platform == canon.PlatformInstagram {
		// Instagram carousels resolve as a playlist of entries; allow it
		// here even though single items pass --no-playlist above.
		args = []string{"--dump-json", url}
	}

	cmd := exec.CommandContext(ctx, d.binPath, args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.ToLower(string(exitErr.Stderr))
			switch {
			case strings.Contains(msg, "unsupported url"):
				return ytdlpInfo{}, &download.Error{Kind: download.ErrorUnsupported, Message: "yt-dlp: unsupported url", Cause: err}
			case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
				return ytdlpInfo{}, &download.Error{Kind: download.ErrorNotFound, Message: "yt-dlp: not found", Cause: err}
			case strings.Contains(msg, "login") || strings.Contains(msg, "private"):
				return ytdlpInfo{}, &download.Error{Kind: download.ErrorAuth, Message: "yt-dlp: auth required", Cause: err}
			}
		}
		return ytdlpInfo{}, &download.Error{Kind: download.ErrorNetwork, Message: "yt-dlp metadata fetch failed", Cause: err}
	}

	info, err := decodeInfo(out)
	if err != nil {
		return ytdlpInfo{}, &download.Error{Kind: download.ErrorDecode, Message: "parse yt-dlp metadata", Cause: err}
	}
	return info, nil
}

func (d *downloader) fetchMedia(ctx context.Context, id, url, workDir string) (string, error) {
	outTemplate := filepath.Join(workDir, id+".%(ext)s")
	args := []string{
		"-f", "bestvideo+bestaudio/best",
		"-o", outTemplate,
		"--no-playlist",
		url,
	}
	cmd := exec.CommandContext(ctx, d.binPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &download.Error{Kind: download.ErrorNetwork, Message: fmt.Sprintf("yt-dlp download failed: %s", truncate(out)), Cause: err}
	}

	candidates, err := filepath.Glob(filepath.Join(workDir, id+".*"))
	if err != nil || len(candidates) == 0 {
		return "", &download.Error{Kind: download.ErrorDecode, Message: "no output file after download"}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return extPriority(filepath.Ext(candidates[i])) < extPriority(filepath.Ext(candidates[j]))
	})
	return candidates[0], nil
}

func decodeInfo(raw []byte) (ytdlpInfo, error) {
	data := strings.TrimSpace(string(raw))
	var info ytdlpInfo
	if err := json.Unmarshal([]byte(data), &info); err == nil {
		return info, nil
	}
	// yt-dlp emits one JSON object per line for playlist-shaped resolves;
	// treat each line as a carousel entry.
	var entries []ytdlpInfo
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var item ytdlpInfo
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			continue
		}
		entries = append(entries, item)
	}
	if len(entries) == 0 {
		return ytdlpInfo{}, fmt.Errorf("no parseable yt-dlp JSON output")
	}
	return ytdlpInfo{Entries: entries}, nil
}

func extPriority(ext string) int {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mp4":
		return 0
	case "mkv":
		return 1
	case "webm":
		return 2
	case "mov":
		return 3
	default:
		return 9
	}
}

// retryOnNetworkError retries fn with bounded exponential backoff, but only
// for download.ErrorNetwork failures; anything else (unsupported url, auth,
// decode) is definitive and returned immediately.
func retryOnNetworkError[T any](ctx context.Context, maxRetries int, log *logger.Logger, op string, fn func() (T, error)) (T, error) {
	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		var derr *download.Error
		if !errors.As(err, &derr) || derr.Kind != download.ErrorNetwork {
			var zero T
			return zero, err
		}
		if attempt == maxRetries {
			break
		}
		log.Warn("yt-dlp retrying", "op", op, "attempt", attempt, "error", err)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
	var zero T
	return zero, lastErr
}

func truncate(out []byte) string {
	const max = 512
	if len(out) <= max {
		return string(out)
	}
	return string(out[:max]) + "..."
}
