// Package fraud scores claim behavior for anomalies with a deterministic
// deviation heuristic.
package fraud

import "github.com/soyamu/soyamu/pkg/utils"

// BehaviorSample is the feature set for one claimant, aggregated by the
// caller over whatever window it tracks claims in.
type BehaviorSample struct {
	ClaimCount       int     `json:"claim_count"`
	ClaimsPerDay     float64 `json:"claim_frequency_per_day"`
	AvgHoursBetween  float64 `json:"avg_time_between_claims"`
	LocationVariance float64 `json:"location_variance"`
	AccountAgeDays   float64 `json:"account_age_days"`
}

// Assessment is the scored verdict for one sample.
type Assessment struct {
	FraudScore   float64  `json:"fraud_score"`
	IsSuspicious bool     `json:"is_suspicious"`
	Reasons      []string `json:"reasons"`
}

const suspiciousThreshold = 50

// Assess scores a sample 0-100 by accumulating penalties for behaviors that
// deviate from typical lost-and-found claim patterns. The thresholds are
// fixed; the same sample always produces the same assessment.
func Assess(sample BehaviorSample) Assessment {
	score := 0.0
	var reasons []string

	if sample.ClaimsPerDay > 3 {
		score += 30
		reasons = append(reasons, "claim frequency above 3 per day")
	}
	if sample.AvgHoursBetween < 1 && sample.ClaimCount > 1 {
		score += 25
		reasons = append(reasons, "claims less than an hour apart")
	}
	if sample.LocationVariance > 100 {
		score += 20
		reasons = append(reasons, "claims spread across distant locations")
	}
	if sample.AccountAgeDays < 2 && sample.ClaimCount > 2 {
		score += 25
		reasons = append(reasons, "multiple claims from a new account")
	}

	score = utils.Clamp(score, 0, 100)
	return Assessment{
		FraudScore:   score,
		IsSuspicious: score >= suspiciousThreshold,
		Reasons:      reasons,
	}
}
