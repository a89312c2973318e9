package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/models"
)

func testItems() []*models.Item {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []*models.Item{
		{ID: "1", Description: "black wallet", Category: "wallets", CreatedAt: base},
		{ID: "2", Description: "red umbrella", Category: "accessories", CreatedAt: base.Add(time.Minute)},
	}
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), zap.NewNop())
	vectors := [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}
	items := testItems()

	if err := s.Write("lexical", 3, vectors, items); err != nil {
		t.Fatalf("Write: %v", err)
	}
	gotVectors, gotItems, err := s.Load("lexical", 3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(gotVectors) != 2 || len(gotItems) != 2 {
		t.Fatalf("got %d vectors, %d items; want 2, 2", len(gotVectors), len(gotItems))
	}
	if gotVectors[1][2] != 0.6 {
		t.Errorf("vector data lost: %v", gotVectors[1])
	}
	if gotItems[0].ID != "1" || gotItems[0].Description != "black wallet" {
		t.Errorf("item data lost: %+v", gotItems[0])
	}
	if !gotItems[0].CreatedAt.Equal(items[0].CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", gotItems[0].CreatedAt, items[0].CreatedAt)
	}
}

func TestSnapshotStore_MissingReturnsNil(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), zap.NewNop())
	vectors, items, err := s.Load("lexical", 3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if vectors != nil || items != nil {
		t.Error("missing snapshot should return nil slices")
	}
}

func TestSnapshotStore_ProviderMismatch(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), zap.NewNop())
	if err := s.Write("onnx:model.onnx", 3, [][]float32{{1, 0, 0}}, testItems()[:1]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, _, err := s.Load("lexical", 3)
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}

func TestSnapshotStore_DimensionMismatch(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), zap.NewNop())
	if err := s.Write("lexical", 3, [][]float32{{1, 0, 0}}, testItems()[:1]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, _, err := s.Load("lexical", 4)
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}

func TestSnapshotStore_TruncatedVectors(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, zap.NewNop())
	if err := s.Write("lexical", 3, [][]float32{{1, 0, 0}, {0, 1, 0}}, testItems()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(dir, "vectors.bin")
	info, _ := os.Stat(path)
	if err := os.Truncate(path, info.Size()-4); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	_, _, err := s.Load("lexical", 3)
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}

func TestSnapshotStore_GarbageManifest(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, zap.NewNop())
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, _, err := s.Load("lexical", 3)
	if !errors.Is(err, ErrSnapshotCorrupt) {
		t.Fatalf("expected ErrSnapshotCorrupt, got %v", err)
	}
}

func TestSnapshotStore_Discard(t *testing.T) {
	dir := t.TempDir()
	s := NewSnapshotStore(dir, zap.NewNop())
	if err := s.Write("lexical", 3, [][]float32{{1, 0, 0}}, testItems()[:1]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	vectors, items, err := s.Load("lexical", 3)
	if err != nil || vectors != nil || items != nil {
		t.Errorf("after Discard, Load = (%v, %v, %v); want nils", vectors, items, err)
	}
	// Discard on an already-empty dir is fine.
	if err := s.Discard(); err != nil {
		t.Errorf("second Discard: %v", err)
	}
}

func TestSnapshotStore_MisalignedWriteRejected(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), zap.NewNop())
	err := s.Write("lexical", 3, [][]float32{{1, 0, 0}}, testItems())
	if err == nil {
		t.Fatal("expected error for misaligned vectors and items")
	}
}
