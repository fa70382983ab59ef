package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	videointelligence "cloud.google.com/go/videointelligence/apiv1"
	vipb "cloud.google.com/go/videointelligence/apiv1/videointelligencepb"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/ctxutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// Video wraps shot-change and label detection, used to enrich the
// Multimodal Analyzer's context bundle with boundary hints the Keyframe
// Extractor's own cut detection did not need but the Analyzer benefits from.
type Video interface {
	AnnotateVideoGCS(ctx context.Context, gcsURI string) (*VideoAIResult, error)
	Close() error
}

type VideoAIResult struct {
	SourceURI      string
	ShotBoundaries []float64
	Labels         []string
}

type videoService struct {
	log        *logger.Logger
	client     *videointelligence.Client
	maxRetries int
}

func NewVideo(log *logger.Logger) (Video, error) {
	if log == nil {
		return nil, fmt.Errorf("gcp: logger required")
	}
	c, err := videointelligence.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("videointelligence client: %w", err)
	}
	return &videoService{log: log.With("service", "gcp.Video"), client: c, maxRetries: 4}, nil
}

func (s *videoService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *videoService) AnnotateVideoGCS(ctx context.Context, gcsURI string) (*VideoAIResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Minute)
	defer cancel()

	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcp video: gcsURI must be gs://... got %q", gcsURI)
	}

	req := &vipb.AnnotateVideoRequest{
		InputUri: gcsURI,
		Features: []vipb.Feature{
			vipb.Feature_SHOT_CHANGE_DETECTION,
			vipb.Feature_LABEL_DETECTION,
		},
	}

	resp, err := s.retryAnnotate(ctx, func() (*vipb.AnnotateVideoResponse, error) {
		op, err := s.client.AnnotateVideo(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("videointelligence AnnotateVideo: %w", err)
	}

	out := &VideoAIResult{SourceURI: gcsURI}
	if resp == nil || len(resp.AnnotationResults) == 0 || resp.AnnotationResults[0] == nil {
		return out, nil
	}
	ar := resp.AnnotationResults[0]

	for _, sh := range ar.ShotAnnotations {
		if sh == nil {
			continue
		}
		out.ShotBoundaries = append(out.ShotBoundaries, durToSecVI(sh.StartTimeOffset))
	}
	sort.Float64s(out.ShotBoundaries)

	seen := map[string]bool{}
	for _, lbl := range ar.SegmentLabelAnnotations {
		if lbl == nil || lbl.Entity == nil {
			continue
		}
		name := strings.TrimSpace(lbl.Entity.Description)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out.Labels = append(out.Labels, name)
	}

	return out, nil
}

func durToSecVI(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (s *videoService) retryAnnotate(ctx context.Context, fn func() (*vipb.AnnotateVideoResponse, error)) (*vipb.AnnotateVideoResponse, error) {
	backoff := 750 * time.Millisecond
	var last error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}
