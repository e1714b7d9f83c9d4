package leakybucket

import "time"

// ApplyHourlyRefill adds one token per whole elapsed hour, capped at
// MaxTokens, and advances LastRefillAt by exactly the credited whole hours.
// The fractional remainder stays on the clock so a later call can still
// credit it. Less than one elapsed hour returns the bucket unchanged.
func ApplyHourlyRefill(bucket BucketSnapshot, now time.Time) BucketSnapshot {
	elapsed := now.Sub(bucket.LastRefillAt)
	if elapsed < time.Hour {
		return bucket
	}

	elapsedHours := int(elapsed / time.Hour)
	headroom := bucket.MaxTokens - bucket.AvailableTokens
	if headroom < 0 {
		headroom = 0
	}
	refill := elapsedHours
	if refill > headroom {
		refill = headroom
	}

	bucket.AvailableTokens += refill
	bucket.LastRefillAt = bucket.LastRefillAt.Add(time.Duration(elapsedHours) * time.Hour)
	return bucket
}
