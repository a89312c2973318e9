// Package scoring combines vector similarity and keyword overlap into the
// hybrid match score.
package scoring

import (
	"github.com/soyamu/soyamu/internal/config"
	"github.com/soyamu/soyamu/pkg/utils"
)

// Scorer computes final match scores from a weighted blend of vector and
// keyword percentages plus an optional category boost. Weights come from
// configuration; the defaults are 0.70 vector, 0.30 keyword, 1.05 boost.
type Scorer struct {
	vectorWeight  float64
	keywordWeight float64
	categoryBoost float64
}

// NewScorer builds a scorer from search configuration.
func NewScorer(cfg *config.SearchConfig) *Scorer {
	return &Scorer{
		vectorWeight:  cfg.VectorWeight,
		keywordWeight: cfg.KeywordWeight,
		categoryBoost: cfg.CategoryBoost,
	}
}

// Breakdown holds every scoring component for one candidate, rounded to two
// decimals for presentation.
type Breakdown struct {
	VectorPct     float64
	KeywordPct    float64
	CategoryMatch bool
	FinalPct      float64
}

// Score blends the component percentages into the final 0-100 score. The
// category boost is multiplicative and applied before clamping, so a strong
// candidate cannot exceed 100.
func (s *Scorer) Score(vectorPct, keywordPct float64, categoryMatch bool) float64 {
	combined := vectorPct*s.vectorWeight + keywordPct*s.keywordWeight
	if categoryMatch {
		combined *= s.categoryBoost
	}
	return utils.Round2(utils.Clamp(combined, 0, 100))
}

// Breakdown scores one candidate and returns all components.
func (s *Scorer) Breakdown(similarity float64, queryTokens, itemTokens []string, categoryMatch bool) Breakdown {
	vectorPct := SimilarityToPercent(similarity)
	keywordPct := JaccardPercent(queryTokens, itemTokens)
	return Breakdown{
		VectorPct:     utils.Round2(vectorPct),
		KeywordPct:    utils.Round2(keywordPct),
		CategoryMatch: categoryMatch,
		FinalPct:      s.Score(vectorPct, keywordPct, categoryMatch),
	}
}

// SimilarityToPercent maps a cosine similarity in [-1, 1] linearly onto
// [0, 100]. Values outside the range (possible with float error on nearly
// parallel vectors) are clamped.
func SimilarityToPercent(sim float64) float64 {
	return utils.Clamp((sim+1)/2*100, 0, 100)
}

// JaccardPercent returns the Jaccard similarity of two token lists as a
// percentage. Either list being empty yields 0, including both empty.
func JaccardPercent(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union) * 100
}
