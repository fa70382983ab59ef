// Package openai implements the Multimodal Analyzer capability against the
// OpenAI-style Responses API client, submitting keyframes, transcript, and
// context and parsing a structured candidate array back out.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	llm "github.com/Lenniott/FITTNESS-BUILDER/internal/platform/openai"
)

const systemPrompt = `You identify discrete fitness exercise demonstrations in a short video from ` +
	`its keyframes and (if present) spoken transcript. Detect only segments at least 3.5 seconds ` +
	`long. Never emit overlapping segments for the same movement; if a flow of linked movements is ` +
	`shown, emit either the flow as one segment or its components, never both. If no exercise is ` +
	`present, return an empty candidates list rather than inventing one. confidence must be in [0,1].`

var candidateSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"candidates": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":          map[string]any{"type": "string"},
					"start":         map[string]any{"type": "number"},
					"end":           map[string]any{"type": "number"},
					"how_to":        map[string]any{"type": "string"},
					"benefits":      map[string]any{"type": "string"},
					"counteracts":   map[string]any{"type": "string"},
					"fitness_level": map[string]any{"type": "integer"},
					"intensity":     map[string]any{"type": "integer"},
					"rounds_reps":   map[string]any{"type": "string"},
					"confidence":    map[string]any{"type": "number"},
				},
				"required": []string{"name", "start", "end", "confidence"},
			},
		},
	},
	"required": []string{"candidates"},
}

type analyzer struct {
	client llm.Client
	backup llm.Client
}

// New wires the Analyzer against its primary credential. backup may be nil;
// when set, a call that still fails with a quota-shaped (HTTP 429) error
// after the primary client's own retries is issued once more through
// backup, which applies its own full retry budget; the attempt count is not
// shared between the two clients.
func New(client llm.Client, backup llm.Client) analyze.Analyzer {
	return &analyzer{client: client, backup: backup}
}

func (a *analyzer) Analyze(ctx context.Context, frames []domain.Keyframe, transcript []domain.TranscriptSegment, analyzerCtx domain.AnalyzerContext) ([]domain.Candidate, error) {
	if len(frames) == 0 {
		return nil, &analyze.Error{Message: "no frames supplied"}
	}

	images := make([]llm.ImageInput, 0, len(frames))
	for _, f := range frames {
		dataURL, err := frameDataURL(f.Path)
		if err != nil {
			return nil, &analyze.Error{Message: "encode frame", Cause: err}
		}
		images = append(images, llm.ImageInput{ImageURL: dataURL, Detail: "low"})
	}

	userPrompt := buildUserPrompt(transcript, analyzerCtx)

	// GenerateJSON does not accept image content directly; the schema call
	// is issued as a follow-up to GenerateTextWithImages so the model first
	// reasons over the frames, then restates its answer as the required
	// JSON. This mirrors the two-step shape callers already use when an
	// endpoint is structured-output-only but the payload is multimodal.
	rawAnswer, err := a.withBackup(ctx, func(c llm.Client) (string, error) {
		return c.GenerateTextWithImages(ctx, systemPrompt, userPrompt, images)
	})
	if err != nil {
		return nil, &analyze.Error{Message: "multimodal reasoning call", Cause: err}
	}

	restateSystem := systemPrompt + "\nRestate your previous answer as structured JSON only."
	restateUser := "Your prior analysis:\n" + rawAnswer + "\n\nReturn the candidates array now."
	obj, err := a.withBackupJSON(ctx, func(c llm.Client) (map[string]any, error) {
		return c.GenerateJSON(ctx, restateSystem, restateUser, "exercise_candidates", candidateSchema)
	})
	if err != nil {
		return nil, &analyze.Error{Message: "structured candidate extraction", Cause: err}
	}

	return parseCandidates(obj)
}

func (a *analyzer) withBackup(ctx context.Context, fn func(llm.Client) (string, error)) (string, error) {
	result, err := fn(a.client)
	if err == nil || a.backup == nil || !llm.IsQuotaExceeded(err) {
		return result, err
	}
	return fn(a.backup)
}

func (a *analyzer) withBackupJSON(ctx context.Context, fn func(llm.Client) (map[string]any, error)) (map[string]any, error) {
	result, err := fn(a.client)
	if err == nil || a.backup == nil || !llm.IsQuotaExceeded(err) {
		return result, err
	}
	return fn(a.backup)
}

func buildUserPrompt(transcript []domain.TranscriptSegment, analyzerCtx domain.AnalyzerContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s. Video duration: %.1fs.\n", analyzerCtx.Platform, analyzerCtx.VideoDuration)
	if analyzerCtx.CarouselCount > 1 {
		fmt.Fprintf(&b, "Carousel item %d of %d.", analyzerCtx.CarouselIndex, analyzerCtx.CarouselCount)
		if analyzerCtx.CarouselIsHook {
			b.WriteString(" This item is commonly a hook/intro, not necessarily an exercise.")
		}
		b.WriteString("\n")
	}
	if len(analyzerCtx.Labels) > 0 {
		fmt.Fprintf(&b, "Scene labels: %s\n", strings.Join(analyzerCtx.Labels, ", "))
	}
	if len(transcript) > 0 {
		b.WriteString("Transcript:\n")
		for _, seg := range transcript {
			fmt.Fprintf(&b, "[%.1f-%.1f] %s\n", seg.Start, seg.End, seg.Text)
		}
	} else {
		b.WriteString("No usable transcript was available.\n")
	}
	return b.String()
}

func parseCandidates(obj map[string]any) ([]domain.Candidate, error) {
	raw, ok := obj["candidates"].([]any)
	if !ok {
		return nil, &analyze.Error{Message: "response missing candidates array"}
	}
	out := make([]domain.Candidate, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, domain.Candidate{
			Name:         stringField(m, "name"),
			Start:        numberField(m, "start"),
			End:          numberField(m, "end"),
			HowTo:        stringField(m, "how_to"),
			Benefits:     stringField(m, "benefits"),
			Counteracts:  stringField(m, "counteracts"),
			FitnessLevel: int(numberField(m, "fitness_level")),
			Intensity:    int(numberField(m, "intensity")),
			RoundsReps:   stringField(m, "rounds_reps"),
			Confidence:   numberField(m, "confidence"),
		})
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func numberField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func frameDataURL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/jpeg"
	if strings.HasSuffix(strings.ToLower(path), ".png") {
		mime = "image/png"
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	return fmt.Sprintf("data:%s;base64,%s", mime, encoded), nil
}
