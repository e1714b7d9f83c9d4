package dict

import (
	"math"
	"time"
)

// epsilon guards the sufficiency check against floating-point rounding
// rejecting an exact-balance charge.
const epsilon = 1e-9

// roundTokens keeps token values stable to 1e-6. Without this, repeated
// small refills accumulate drift that can flip an exact-balance check.
func roundTokens(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// RefilledBucket is the result of applying continuous refill.
type RefilledBucket struct {
	Tokens       float64
	LastRefillAt time.Time
}

// ApplyContinuousRefill accrues tokens proportionally to the time elapsed
// since the last refill, capped at capacity. Calls with now at or before
// lastRefillAt return the bucket unchanged, so re-application is idempotent
// and clock skew cannot move lastRefillAt backwards.
func ApplyContinuousRefill(tokens float64, lastRefillAt time.Time, cfg RateConfig, now time.Time) RefilledBucket {
	if !now.After(lastRefillAt) {
		return RefilledBucket{Tokens: roundTokens(tokens), LastRefillAt: lastRefillAt}
	}

	elapsedSeconds := now.Sub(lastRefillAt).Seconds()
	replenished := tokens + elapsedSeconds*cfg.RefillPerSecond

	return RefilledBucket{
		Tokens:       roundTokens(math.Min(cfg.Capacity, replenished)),
		LastRefillAt: now,
	}
}

// HasEnoughTokens reports whether the bucket can cover cost.
func HasEnoughTokens(tokens, cost float64) bool {
	return tokens+epsilon >= cost
}

// DebitTokens subtracts cost, floored at zero.
func DebitTokens(tokens, cost float64) float64 {
	return roundTokens(math.Max(0, tokens-cost))
}

// CreditTokens adds credit, capped at capacity.
func CreditTokens(tokens, credit, capacity float64) float64 {
	return roundTokens(math.Min(capacity, tokens+credit))
}
