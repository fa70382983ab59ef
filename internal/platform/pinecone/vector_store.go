// Package pinecone adapts a Pinecone serverless index to the
// vectorstore.VectorStore contract via Pinecone's data-plane REST API,
// mirroring the request/response shapes of the qdrant adapter so the two
// providers are swappable behind VECTOR_PROVIDER.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/ctxutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/vectorstore"
)

type vectorStore struct {
	log       *logger.Logger
	cfg       Config
	baseURL   string
	http      *http.Client
}

func NewVectorStore(log *logger.Logger, cfg Config) (vectorstore.VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("pinecone: logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &vectorStore{
		log:     log.With("service", "PineconeVectorStore"),
		cfg:     cfg,
		baseURL: "https://" + strings.TrimPrefix(strings.TrimSpace(cfg.IndexHost), "https://"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	s.log.Info("pinecone vector store selected", "index_host", s.baseURL, "namespace", cfg.Namespace)
	return s, nil
}

func (s *vectorStore) Upsert(ctx context.Context, vectorID string, values []float32, payload map[string]any) error {
	vectorID = strings.TrimSpace(vectorID)
	if vectorID == "" {
		return fmt.Errorf("pinecone upsert: vector id required")
	}
	req := map[string]any{
		"namespace": s.cfg.Namespace,
		"vectors": []map[string]any{
			{"id": vectorID, "values": values, "metadata": payload},
		},
	}
	return s.doJSON(ctx, "upsert", "/vectors/upsert", req, nil)
}

func (s *vectorStore) Search(ctx context.Context, query []float32, k int, scoreThreshold float64, filter map[string]any) ([]vectorstore.Hit, error) {
	if k <= 0 {
		k = 10
	}
	req := map[string]any{
		"namespace":       s.cfg.Namespace,
		"vector":          query,
		"topK":            k,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if len(filter) > 0 {
		req["filter"] = translateFilter(filter)
	}

	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.doJSON(ctx, "query", "/query", req, &resp); err != nil {
		return nil, err
	}

	out := make([]vectorstore.Hit, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m.Score < scoreThreshold {
			continue
		}
		out = append(out, vectorstore.Hit{VectorID: m.ID, Score: m.Score, Payload: m.Metadata})
	}
	return out, nil
}

func (s *vectorStore) Delete(ctx context.Context, vectorID string) error {
	vectorID = strings.TrimSpace(vectorID)
	if vectorID == "" {
		return nil
	}
	req := map[string]any{"namespace": s.cfg.Namespace, "ids": []string{vectorID}}
	return s.doJSON(ctx, "delete", "/vectors/delete", req, nil)
}

func (s *vectorStore) Info(ctx context.Context) (vectorstore.Info, error) {
	var resp struct {
		Dimension  int `json:"dimension"`
		Namespaces map[string]struct {
			VectorCount int `json:"vectorCount"`
		} `json:"namespaces"`
	}
	if err := s.doJSON(ctx, "describe_index_stats", "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return vectorstore.Info{}, err
	}
	count := 0
	if ns, ok := resp.Namespaces[s.cfg.Namespace]; ok {
		count = ns.VectorCount
	}
	return vectorstore.Info{Count: count, Dimension: resp.Dimension}, nil
}

// translateFilter converts scalar equality into Pinecone's Mongo-style
// metadata filter language ({"$eq": value}).
func translateFilter(filter map[string]any) map[string]any {
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		out[k] = map[string]any{"$eq": v}
	}
	return out
}

func (s *vectorStore) doJSON(ctx context.Context, op, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("pinecone %s: encode request: %w", op, err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("pinecone %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone %s: transport: %w", op, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("pinecone %s: read response: %w", op, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone %s: http status=%d body=%q", op, resp.StatusCode, string(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("pinecone %s: decode response: %w", op, err)
	}
	return nil
}
