// Package models defines core data structures for items, queries, and match results.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Item is a found-item catalog entry. The authoritative store owns the
// record; the engine holds a positionally indexed derived copy.
type Item struct {
	ID          string    `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ItemInput is the input for registering a found item. ID is optional; a
// UUID is assigned when empty.
type ItemInput struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Validate ensures the input describes something that can be indexed.
func (in *ItemInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("description cannot be empty")
	}
	return nil
}
