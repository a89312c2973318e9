package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/internal/vector"
)

// ErrSnapshotCorrupt marks a snapshot that failed validation. Callers discard
// it and rebuild from the store or start empty.
var ErrSnapshotCorrupt = errors.New("storage: snapshot corrupt")

const (
	vectorsFile  = "vectors.bin"
	manifestFile = "items.json"
)

// SnapshotStore persists the in-memory index state to disk so that restarts
// do not re-embed the whole catalog and standalone mode has data to serve.
// A snapshot is two files in one directory: vectors.bin holds the raw
// embeddings (little-endian: uint32 dims, uint32 count, count*dims float32)
// and items.json holds the aligned item manifest with the provider name.
type SnapshotStore struct {
	dir    string
	logger *zap.Logger
}

type manifest struct {
	Provider   string         `json:"provider"`
	Dimensions int            `json:"dimensions"`
	Count      int            `json:"count"`
	Items      []*models.Item `json:"items"`
}

// NewSnapshotStore returns a snapshot store rooted at dir.
func NewSnapshotStore(dir string, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{dir: dir, logger: logger}
}

// Write persists vectors and items atomically enough for a single writer:
// both files are written to temp names and renamed into place. Vectors and
// items must be aligned; a mismatch is a programming error and is rejected.
func (s *SnapshotStore) Write(provider string, dims int, vectors [][]float32, items []*models.Item) error {
	if len(vectors) != len(items) {
		return fmt.Errorf("vectors (%d) and items (%d) must align", len(vectors), len(items))
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if err := s.writeVectors(dims, vectors); err != nil {
		return err
	}
	if err := s.writeManifest(provider, dims, items); err != nil {
		return err
	}
	s.logger.Debug("snapshot written",
		zap.String("dir", s.dir), zap.Int("items", len(items)))
	return nil
}

func (s *SnapshotStore) writeVectors(dims int, vectors [][]float32) error {
	path := filepath.Join(s.dir, vectorsFile)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create vectors file: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(dims)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(vectors))); err != nil {
		_ = f.Close()
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range vectors {
		if len(vec) != dims {
			_ = f.Close()
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), dims)
		}
		if _, err := f.Write(vector.Float32sToBytes(vec)); err != nil {
			_ = f.Close()
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close vectors file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *SnapshotStore) writeManifest(provider string, dims int, items []*models.Item) error {
	path := filepath.Join(s.dir, manifestFile)
	tmp := path + ".tmp"
	data, err := json.Marshal(manifest{
		Provider:   provider,
		Dimensions: dims,
		Count:      len(items),
		Items:      items,
	})
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads the snapshot and validates it against the active provider and
// dimension. A missing snapshot returns nil slices and no error. Any
// validation failure (unreadable files, provider or dimension mismatch,
// count disagreement between the two files, truncated vector data) returns
// ErrSnapshotCorrupt.
func (s *SnapshotStore) Load(provider string, dims int) ([][]float32, []*models.Item, error) {
	manifestPath := filepath.Join(s.dir, manifestFile)
	vectorsPath := filepath.Join(s.dir, vectorsFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: read manifest: %v", ErrSnapshotCorrupt, err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: parse manifest: %v", ErrSnapshotCorrupt, err)
	}
	if m.Provider != provider {
		return nil, nil, fmt.Errorf("%w: provider %q, active is %q", ErrSnapshotCorrupt, m.Provider, provider)
	}
	if m.Dimensions != dims {
		return nil, nil, fmt.Errorf("%w: dimensions %d, active is %d", ErrSnapshotCorrupt, m.Dimensions, dims)
	}
	if m.Count != len(m.Items) {
		return nil, nil, fmt.Errorf("%w: manifest count %d but %d items", ErrSnapshotCorrupt, m.Count, len(m.Items))
	}

	f, err := os.Open(vectorsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open vectors: %v", ErrSnapshotCorrupt, err)
	}
	defer f.Close()

	var fileDims, fileCount uint32
	if err := binary.Read(f, binary.LittleEndian, &fileDims); err != nil {
		return nil, nil, fmt.Errorf("%w: read dimensions: %v", ErrSnapshotCorrupt, err)
	}
	if err := binary.Read(f, binary.LittleEndian, &fileCount); err != nil {
		return nil, nil, fmt.Errorf("%w: read count: %v", ErrSnapshotCorrupt, err)
	}
	if int(fileDims) != dims {
		return nil, nil, fmt.Errorf("%w: vectors file dimensions %d, active is %d", ErrSnapshotCorrupt, fileDims, dims)
	}
	if int(fileCount) != m.Count {
		return nil, nil, fmt.Errorf("%w: vectors file count %d, manifest says %d", ErrSnapshotCorrupt, fileCount, m.Count)
	}

	vectors := make([][]float32, 0, fileCount)
	buf := make([]byte, dims*4)
	for i := uint32(0); i < fileCount; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, nil, fmt.Errorf("%w: truncated vector data at %d: %v", ErrSnapshotCorrupt, i, err)
		}
		vectors = append(vectors, vector.BytesToFloat32s(buf))
	}
	return vectors, m.Items, nil
}

// Discard removes the snapshot artifacts. Missing files are not errors.
func (s *SnapshotStore) Discard() error {
	var firstErr error
	for _, name := range []string{vectorsFile, manifestFile} {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
