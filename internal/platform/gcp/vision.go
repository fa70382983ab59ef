package gcp

import (
	"context"
	"fmt"
	"os"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/ctxutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// FrameScorer breaks ties between equally-scored candidate frames within a
// narrow timestamp window by preferring the sharper, better-exposed image —
// a refinement the Keyframe Extractor's histogram-diff pass cannot make on
// its own.
type FrameScorer interface {
	Score(ctx context.Context, framePath string) (float64, error)
	Close() error
}

type frameScorer struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewFrameScorer(log *logger.Logger) (FrameScorer, error) {
	if log == nil {
		return nil, fmt.Errorf("gcp: logger required")
	}
	c, err := vision.NewImageAnnotatorClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &frameScorer{log: log.With("service", "gcp.FrameScorer"), client: c}, nil
}

func (s *frameScorer) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Score returns a higher-is-better sharpness/exposure proxy derived from
// Vision's image-properties annotation (dominant-color pixel fraction
// spread acts as a cheap contrast signal; a blank or washed-out frame
// collapses to a narrow spread).
func (s *frameScorer) Score(ctx context.Context, framePath string) (float64, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	raw, err := os.ReadFile(framePath)
	if err != nil {
		return 0, fmt.Errorf("gcp vision: read frame %q: %w", framePath, err)
	}

	img := &visionpb.Image{Content: raw}
	resp, err := s.client.DetectImageProperties(ctx, img, nil)
	if err != nil {
		return 0, fmt.Errorf("gcp vision DetectImageProperties: %w", err)
	}
	if resp == nil || resp.DominantColors == nil {
		return 0, nil
	}

	var minFrac, maxFrac float32 = 1, 0
	for _, c := range resp.DominantColors.Colors {
		if c.PixelFraction < minFrac {
			minFrac = c.PixelFraction
		}
		if c.PixelFraction > maxFrac {
			maxFrac = c.PixelFraction
		}
	}
	return float64(maxFrac - minFrac), nil
}
