package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FlatIndex is an in-memory vector index using brute-force inner product
// search. Positions are assigned in insertion order and never reused; the
// engine keeps its metadata slice aligned with them.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Add appends vectors to the index. Every vector must match the index
// dimension; the call copies each vector so callers may reuse their buffers.
func (f *FlatIndex) Add(ctx context.Context, vectors ...[]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), f.dimensions)
		}
	}
	for _, v := range vectors {
		vec := make([]float32, f.dimensions)
		copy(vec, v)
		f.vectors = append(f.vectors, vec)
	}
	return nil
}

// Search returns the top-k vectors by inner product, highest first. Ties keep
// insertion order. An empty index returns no hits; k larger than the index is
// clamped to its size.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(f.vectors))
	for i, vec := range f.vectors {
		hits[i] = Hit{Position: i, Similarity: InnerProduct(query, vec)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimensions returns the index dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Clear removes all vectors.
func (f *FlatIndex) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = f.vectors[:0]
}

// Snapshot returns a deep copy of all vectors in insertion order.
func (f *FlatIndex) Snapshot() [][]float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([][]float32, len(f.vectors))
	for i, vec := range f.vectors {
		cp := make([]float32, len(vec))
		copy(cp, vec)
		out[i] = cp
	}
	return out
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
