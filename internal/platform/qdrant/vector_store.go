// Package qdrant adapts a Qdrant REST collection to the vectorstore.VectorStore
// contract, grounded on a hand-rolled JSON/HTTP client (Qdrant has no
// official Go SDK in this stack) rather than a generated gRPC client.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/ctxutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/vectorstore"
)

const maxErrorBodyBytes = 1024

type vectorStore struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type searchHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewVectorStore(log *logger.Logger, cfg Config) (vectorstore.VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("qdrant: logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := &vectorStore{
		log:     log.With("service", "QdrantVectorStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	s.log.Info("qdrant vector store selected", "url", s.baseURL, "collection", cfg.Collection, "vector_dim", cfg.VectorDim)
	return s, nil
}

func (s *vectorStore) Upsert(ctx context.Context, vectorID string, values []float32, payload map[string]any) error {
	const op = "upsert"
	vectorID = strings.TrimSpace(vectorID)
	if vectorID == "" {
		return fmt.Errorf("qdrant %s: vector id required", op)
	}
	if len(values) == 0 {
		return fmt.Errorf("qdrant %s: vector %q has empty values", op, vectorID)
	}
	if s.cfg.VectorDim > 0 && len(values) != s.cfg.VectorDim {
		return fmt.Errorf("qdrant %s: vector %q dimension mismatch: expected=%d got=%d", op, vectorID, s.cfg.VectorDim, len(values))
	}

	point := map[string]any{
		"id":      vectorID,
		"vector":  values,
		"payload": clonePayload(payload),
	}
	req := map[string]any{"points": []map[string]any{point}}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

func (s *vectorStore) Search(ctx context.Context, query []float32, k int, scoreThreshold float64, filter map[string]any) ([]vectorstore.Hit, error) {
	const op = "search"
	if len(query) == 0 {
		return nil, fmt.Errorf("qdrant %s: query vector required", op)
	}
	if k <= 0 {
		k = 10
	}

	qdrantFilter, err := translateFilter(filter)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
		"with_vector":  false,
	}
	if scoreThreshold > 0 {
		req["score_threshold"] = scoreThreshold
	}
	if qdrantFilter != nil {
		req["filter"] = qdrantFilter
	}

	var raw []searchHit
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	out := make([]vectorstore.Hit, 0, len(raw))
	for _, item := range raw {
		id := decodePointID(item.ID)
		if id == "" {
			continue
		}
		out = append(out, vectorstore.Hit{VectorID: id, Score: item.Score, Payload: item.Payload})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].VectorID < out[j].VectorID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (s *vectorStore) Delete(ctx context.Context, vectorID string) error {
	const op = "delete"
	vectorID = strings.TrimSpace(vectorID)
	if vectorID == "" {
		return nil
	}
	req := map[string]any{"points": []string{vectorID}}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

func (s *vectorStore) Info(ctx context.Context) (vectorstore.Info, error) {
	const op = "info"
	var result struct {
		PointsCount int `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	if err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &result); err != nil {
		return vectorstore.Info{}, err
	}
	return vectorstore.Info{Count: result.PointsCount, Dimension: result.Config.Params.Vectors.Size}, nil
}

func (s *vectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return fmt.Errorf("qdrant %s: encode request: %w", op, err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("qdrant %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPErr(op, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return fmt.Errorf("qdrant %s: read response: %w", op, readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s: http status=%d body=%q", op, resp.StatusCode, truncate(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("qdrant %s: decode envelope: %w", op, err)
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("qdrant %s: decode result: %w", op, err)
	}
	return nil
}

func classifyHTTPErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("qdrant %s: timeout: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("qdrant %s: timeout: %w", op, err)
	}
	return fmt.Errorf("qdrant %s: transport: %w", op, err)
}

func truncate(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func clonePayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *vectorStore) collectionPath(suffix string) string {
	p := "/collections/" + s.cfg.Collection
	if suffix == "" {
		return p
	}
	return p + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString)
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return fmt.Sprintf("%d", asNumber)
	}
	return strings.TrimSpace(string(raw))
}
