package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/ctxutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// Speech wraps long-running recognition against audio staged in GCS,
// producing the time-aligned segment list the Transcriber capability
// contract expects.
type Speech interface {
	TranscribeGCS(ctx context.Context, gcsURI string, sampleRateHz int) ([]domain.TranscriptSegment, error)
	Close() error
}

type speechService struct {
	log        *logger.Logger
	client     *speech.Client
	maxRetries int
}

func NewSpeech(log *logger.Logger) (Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("gcp: logger required")
	}
	c, err := speech.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &speechService{log: log.With("service", "gcp.Speech"), client: c, maxRetries: 3}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *speechService) TranscribeGCS(ctx context.Context, gcsURI string, sampleRateHz int) ([]domain.TranscriptSegment, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Minute)
	defer cancel()

	if !strings.HasPrefix(gcsURI, "gs://") {
		return nil, fmt.Errorf("gcp speech: gcsURI must be gs://... got %q", gcsURI)
	}
	if sampleRateHz <= 0 {
		sampleRateHz = 16000
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRateHz),
			LanguageCode:               "en-US",
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: gcsURI},
		},
	}

	resp, err := s.retryRecognize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("speech recognize: %w", err)
	}

	segments := make([]domain.TranscriptSegment, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}
		start, end := wordSpan(alt.Words)
		segments = append(segments, domain.TranscriptSegment{Start: start, End: end, Text: text})
	}
	return segments, nil
}

func (s *speechService) retryRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := 750 * time.Millisecond
	var last error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		op, err := s.client.LongRunningRecognize(ctx, req)
		if err == nil {
			var resp *speechpb.LongRunningRecognizeResponse
			resp, err = op.Wait(ctx)
			if err == nil {
				return resp, nil
			}
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == s.maxRetries {
			break
		}
		s.log.Warn("speech recognize retrying", "attempt", attempt, "error", err)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}

func wordSpan(words []*speechpb.WordInfo) (float64, float64) {
	if len(words) == 0 {
		return 0, 0
	}
	start := durToSecVI(words[0].StartTime)
	end := durToSecVI(words[len(words)-1].EndTime)
	return start, end
}
