// Package vector provides the in-memory vector index and similarity search.
package vector

import "context"

// Index defines vector storage and similarity search. Vectors are stored in
// insertion order; search hits carry positions so that callers can resolve
// them against a parallel metadata slice.
type Index interface {
	Add(ctx context.Context, vectors ...[]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	Size() int
	Dimensions() int
	Clear()
	Snapshot() [][]float32
	Close() error
}

// Hit is a single vector search result.
type Hit struct {
	Position   int
	Similarity float64 // Inner product; cosine similarity for normalized vectors.
}
