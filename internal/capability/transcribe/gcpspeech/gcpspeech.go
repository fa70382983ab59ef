// Package gcpspeech implements the Transcriber capability against GCP
// Speech-to-Text, staging the extracted audio track through GCS since the
// API requires a gs:// source URI.
package gcpspeech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/transcribe"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/gcp"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/localmedia"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

const sampleRateHz = 16000

type transcriber struct {
	log     *logger.Logger
	tools   localmedia.Tools
	staging gcp.Staging
	speech  gcp.Speech
}

func New(log *logger.Logger, tools localmedia.Tools, staging gcp.Staging, speech gcp.Speech) transcribe.Transcriber {
	return &transcriber{log: log.With("service", "gcpspeech.Transcriber"), tools: tools, staging: staging, speech: speech}
}

func (t *transcriber) Transcribe(ctx context.Context, mediaFile string) ([]domain.TranscriptSegment, error) {
	workDir, err := os.MkdirTemp("", "gcpspeech-*")
	if err != nil {
		return nil, &transcribe.Error{Message: "create temp dir", Cause: err}
	}
	defer os.RemoveAll(workDir)

	audioPath := filepath.Join(workDir, "audio.wav")
	if _, err := t.tools.ExtractAudio(ctx, mediaFile, audioPath, sampleRateHz); err != nil {
		return nil, &transcribe.Error{Message: "extract audio track", Cause: err}
	}

	objectKey := fmt.Sprintf("transcribe/%s/audio.wav", filepath.Base(workDir))
	gcsURI, err := t.staging.Upload(ctx, audioPath, objectKey)
	if err != nil {
		return nil, &transcribe.Error{Message: "stage audio to gcs", Cause: err}
	}
	defer func() {
		if delErr := t.staging.Delete(context.Background(), objectKey); delErr != nil {
			t.log.Warn("failed to clean up staged audio", "object_key", objectKey, "error", delErr.Error())
		}
	}()

	segments, err := t.speech.TranscribeGCS(ctx, gcsURI, sampleRateHz)
	if err != nil {
		return nil, &transcribe.Error{Message: "speech recognition", Cause: err}
	}
	return segments, nil
}
