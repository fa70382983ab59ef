package retrieval

import (
	"context"
	"strings"

	llm "github.com/Lenniott/FITTNESS-BUILDER/internal/platform/openai"
)

// fallbackStories is returned when the coach Analyzer is unavailable or
// errors, so curation never blocks on an LLM outage.
var fallbackStories = []string{
	"A quick full-body warmup to get the blood flowing before a workout.",
	"Low-impact mobility work for someone who sits at a desk all day.",
	"A short core routine that needs no equipment.",
}

// StoryGenerator wraps a text-only coach call that turns a user prompt into
// short descriptive stories driving retrieval.
type StoryGenerator struct {
	client llm.Client
}

func NewStoryGenerator(client llm.Client) *StoryGenerator {
	return &StoryGenerator{client: client}
}

const storyCoachSystem = "You are a fitness coach. Given a user's goal, produce short, " +
	"concrete descriptions of the kind of exercise that would help, one per line, no numbering."

// GenerateStories asks the coach for n short descriptive stories about the
// user's prompt. On failure it returns the fixed fallback list rather than
// propagating the error, per the curation contract.
func (g *StoryGenerator) GenerateStories(ctx context.Context, userPrompt string, n int) []string {
	if g.client == nil {
		return truncateStories(fallbackStories, n)
	}
	text, err := g.client.GenerateText(ctx, storyCoachSystem, userPrompt)
	if err != nil {
		return truncateStories(fallbackStories, n)
	}
	lines := splitNonEmptyLines(text)
	if len(lines) == 0 {
		return truncateStories(fallbackStories, n)
	}
	return truncateStories(lines, n)
}

func truncateStories(stories []string, n int) []string {
	if n <= 0 || n >= len(stories) {
		return stories
	}
	return stories[:n]
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
