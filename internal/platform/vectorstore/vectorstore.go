// Package vectorstore defines the provider-neutral contract the core's
// Vector Store component is built against. Concrete adapters (qdrant,
// pinecone) implement VectorStore; nothing above this package depends on
// either provider's wire format.
package vectorstore

import "context"

// Vector is one dense-vector record to upsert.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Hit is one similarity-search result, joined back to its stored metadata.
type Hit struct {
	VectorID string
	Score    float64
	Payload  map[string]any
}

// Info describes a collection's shape.
type Info struct {
	Count     int
	Dimension int
}

// VectorStore is the minimal contract the core requires: upsert, search,
// delete, info. Filter is a provider-neutral equality filter map (key to
// scalar value), translated by each adapter into its own wire filter
// language; range filters are not supported.
type VectorStore interface {
	Upsert(ctx context.Context, vectorID string, values []float32, payload map[string]any) error
	Search(ctx context.Context, query []float32, k int, scoreThreshold float64, filter map[string]any) ([]Hit, error)
	Delete(ctx context.Context, vectorID string) error
	Info(ctx context.Context) (Info, error)
}

// DatabaseIDKey is the mandatory back-reference payload key linking a
// VectorEntry to its owning Exercise row.
const DatabaseIDKey = "database_id"
