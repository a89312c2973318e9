package models

// MatchResult is a single ranked candidate with its full score breakdown.
// Percentages are in [0,100]; RawSimilarity is the inner-product similarity
// in [-1,1] before any conversion.
type MatchResult struct {
	Item                 *Item   `json:"item"`
	RawSimilarity        float64 `json:"raw_similarity"`
	VectorScorePct       float64 `json:"vector_score_pct"`
	KeywordScorePct      float64 `json:"keyword_score_pct"`
	CategoryBoostApplied bool    `json:"category_boost_applied"`
	FinalScorePct        float64 `json:"final_score_pct"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Matches      []*MatchResult `json:"matches"`
	TotalMatches int            `json:"total_matches"`
	// RelatedCategories are suggestions from the category-relation graph,
	// populated by the request layer when the query carries a category.
	RelatedCategories []string `json:"related_categories,omitempty"`
	QueryTime         int64    `json:"query_time_ms"`
	Query             string   `json:"query"`
}
