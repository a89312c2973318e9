package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/internal/vector"
)

// SQLiteStore implements Store using SQLite. Item vectors are persisted
// alongside the metadata but the startup load re-embeds from descriptions, so
// the vector column is informational when the provider changes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS found_items (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		category TEXT,
		vector BLOB,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_found_items_created_at ON found_items(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Ping verifies the database answers queries.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// InsertItem persists an item and its embedding.
func (s *SQLiteStore) InsertItem(ctx context.Context, item *models.Item, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO found_items (id, description, category, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.Description, item.Category, vector.Float32sToBytes(vec), item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item %s: %w", item.ID, err)
	}
	return nil
}

// FetchAllItems returns every item ordered by created_at ascending, ties
// broken by id for a deterministic rebuild order.
func (s *SQLiteStore) FetchAllItems(ctx context.Context) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, category, created_at
		 FROM found_items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Description, &item.Category, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// CountItems returns the number of stored items.
func (s *SQLiteStore) CountItems(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM found_items").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
