package models

import "fmt"

// SearchQuery is a lost-item search request against the found-item catalog.
type SearchQuery struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Validate ensures the query has valid fields. Limit defaulting and capping
// come from the engine's search configuration, not the model.
func (q *SearchQuery) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("query text cannot be empty")
	}
	return nil
}
