// Package openai implements the Embedder capability over the OpenAI-style
// embeddings endpoint.
package openai

import (
	"context"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/embed"
	llm "github.com/Lenniott/FITTNESS-BUILDER/internal/platform/openai"
)

type embedder struct {
	client llm.Client
}

func New(client llm.Client) embed.Embedder {
	return &embedder{client: client}
}

func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.client.Embed(ctx, texts)
	if err != nil {
		return nil, &embed.Error{Message: "embeddings call", Cause: err}
	}
	return vecs, nil
}
