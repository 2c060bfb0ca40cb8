package tokens

import "github.com/voglerr/claudescope/internal/logs"

// Per-million-token rates used for display cost estimates, in USD.
const (
	RateInputPerMillion         = 3.00
	RateOutputPerMillion        = 15.00
	RateCacheCreationPerMillion = 3.75
	RateCacheReadPerMillion     = 0.30
)

// CalculateTokenCost estimates the USD cost of a usage tuple. It is linear
// in each field and returns 0 for the zero tuple; a derived display value,
// not part of the structural model.
func CalculateTokenCost(usage logs.TokenUsage) float64 {
	const million = 1_000_000
	return float64(usage.InputTokens)*RateInputPerMillion/million +
		float64(usage.OutputTokens)*RateOutputPerMillion/million +
		float64(usage.CacheCreationInputTokens)*RateCacheCreationPerMillion/million +
		float64(usage.CacheReadInputTokens)*RateCacheReadPerMillion/million
}

// EditsPer100K is the token-efficiency ratio shared by the trend series and
// the work-density score: edit+write tool calls per 100K input+output
// tokens, zero when no tokens were counted.
func EditsPer100K(editWrites, totalTokens int) float64 {
	if totalTokens == 0 {
		return 0
	}
	return float64(editWrites) / float64(totalTokens) * 100_000
}
