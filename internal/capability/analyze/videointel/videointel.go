// Package videointel adapts GCP Video Intelligence into the Orchestrator's
// optional hint source: stage the local file to GCS, annotate it, clean up
// the staged object, and hand back shot boundaries and labels.
package videointel

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/gcp"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type Annotator struct {
	log     *logger.Logger
	staging gcp.Staging
	video   gcp.Video
}

func New(log *logger.Logger, staging gcp.Staging, video gcp.Video) *Annotator {
	return &Annotator{log: log.With("service", "videointel.Annotator"), staging: staging, video: video}
}

// Annotate stages mediaFile to GCS, runs shot-change and label detection,
// and always deletes the staged copy, success or failure.
func (a *Annotator) Annotate(ctx context.Context, mediaFile string) ([]float64, []string, error) {
	objectKey := fmt.Sprintf("video-intel/%s%s", uuid.New().String(), filepath.Ext(mediaFile))

	gcsURI, err := a.staging.Upload(ctx, mediaFile, objectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("videointel: stage media: %w", err)
	}
	defer func() {
		if err := a.staging.Delete(context.WithoutCancel(ctx), objectKey); err != nil {
			a.log.Warn("videointel: staged object cleanup failed", "object_key", objectKey, "error", err.Error())
		}
	}()

	result, err := a.video.AnnotateVideoGCS(ctx, gcsURI)
	if err != nil {
		return nil, nil, fmt.Errorf("videointel: annotate: %w", err)
	}
	return result.ShotBoundaries, result.Labels, nil
}
