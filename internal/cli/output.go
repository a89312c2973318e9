// Package cli provides CLI output utilities for Soyamu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d matches in %dms for %q\n\n",
		response.TotalMatches, response.QueryTime, response.Query)
	for rank, match := range response.Matches {
		writeOneMatch(w, rank+1, match)
	}
	if len(response.RelatedCategories) > 0 {
		fmt.Fprintf(w, "Related categories: %s\n", strings.Join(response.RelatedCategories, ", "))
	}
}

func writeOneMatch(w io.Writer, rank int, match *models.MatchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	boost := ""
	if match.CategoryBoostApplied {
		boost = " | category boost"
	}
	fmt.Fprintf(w, "Rank: %d | Score: %.2f (Vector: %.2f, Keyword: %.2f%s)\n",
		rank, match.FinalScorePct, match.VectorScorePct, match.KeywordScorePct, boost)
	fmt.Fprintf(w, "ID: %s\n", match.Item.ID)
	if match.Item.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", match.Item.Category)
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(match.Item.Description, 200))
	fmt.Fprintln(w)
}
