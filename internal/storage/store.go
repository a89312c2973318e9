// Package storage provides the durable item store and the disk snapshot used
// for fast restarts and standalone operation.
package storage

import (
	"context"
	"errors"

	"github.com/soyamu/soyamu/internal/models"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("storage: store unavailable")

// Store is the durable catalog of found items. Writes are best effort during
// operation; the authoritative load happens at startup in created_at order so
// that rebuilt indexes keep a stable ordering.
type Store interface {
	Ping(ctx context.Context) error
	InsertItem(ctx context.Context, item *models.Item, vector []float32) error
	// FetchAllItems returns every item ordered by created_at ascending.
	FetchAllItems(ctx context.Context) ([]*models.Item, error)
	CountItems(ctx context.Context) (int, error)
	Close() error
}
