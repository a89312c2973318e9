package vector

import (
	"context"
	"testing"
)

func TestFlatIndex_AddSearch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatalf("NewFlatIndex: %v", err)
	}
	ctx := context.Background()
	err = idx.Add(ctx,
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0, 0, 1},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if idx.Size() != 3 {
		t.Fatalf("Size=%d, want 3", idx.Size())
	}

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Position != 1 {
		t.Errorf("top hit position = %d, want 1", hits[0].Position)
	}
	if hits[0].Similarity != 1.0 {
		t.Errorf("top hit similarity = %f, want 1.0", hits[0].Similarity)
	}
}

func TestFlatIndex_EmptySearch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits != nil {
		t.Errorf("expected no hits on empty index, got %v", hits)
	}
}

func TestFlatIndex_KClamped(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []float32{1, 0}, []float32{0, 1}, []float32{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, err := idx.Search(ctx, []float32{1, 0}, 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Errorf("got %d hits, want 3", len(hits))
	}
}

func TestFlatIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []float32{1, 0}, []float32{1, 0}, []float32{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	hits, _ := idx.Search(ctx, []float32{1, 0}, 3)
	for i, h := range hits {
		if h.Position != i {
			t.Errorf("hit %d has position %d, want %d", i, h.Position, i)
		}
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, []float32{1, 0}); err == nil {
		t.Error("expected error adding 2-dim vector to 3-dim index")
	}
	if idx.Size() != 0 {
		t.Errorf("failed add must not grow the index, Size=%d", idx.Size())
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error searching with 2-dim query")
	}
}

func TestFlatIndex_MixedBatchRejectedAtomically(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	err := idx.Add(ctx, []float32{1, 0}, []float32{1, 0, 0})
	if err == nil {
		t.Fatal("expected error")
	}
	if idx.Size() != 0 {
		t.Errorf("partial batch must not be applied, Size=%d", idx.Size())
	}
}

func TestFlatIndex_SnapshotIsDeepCopy(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	src := []float32{0.6, 0.8}
	if err := idx.Add(ctx, src); err != nil {
		t.Fatalf("Add: %v", err)
	}
	snap := idx.Snapshot()
	snap[0][0] = 99
	hits, _ := idx.Search(ctx, []float32{0.6, 0.8}, 1)
	if hits[0].Similarity > 1.0001 {
		t.Error("mutating the snapshot must not affect the index")
	}
}

func TestFlatIndex_Clear(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []float32{1, 0})
	idx.Clear()
	if idx.Size() != 0 {
		t.Errorf("Size=%d after Clear, want 0", idx.Size())
	}
}

func TestFloat32sBytesRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 0, 1e-7}
	out := BytesToFloat32s(Float32sToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("len=%d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("element %d: %f != %f", i, in[i], out[i])
		}
	}
}
