package leakybucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyHourlyRefill(t *testing.T) {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("unchanged under one hour", func(t *testing.T) {
		bucket := BucketSnapshot{TenantID: "t", AvailableTokens: 4, MaxTokens: 10, LastRefillAt: base}
		refilled := ApplyHourlyRefill(bucket, base.Add(59*time.Minute))
		assert.Equal(t, 4, refilled.AvailableTokens)
		assert.Equal(t, base, refilled.LastRefillAt)
	})

	t.Run("one token per whole hour", func(t *testing.T) {
		bucket := BucketSnapshot{TenantID: "t", AvailableTokens: 4, MaxTokens: 10, LastRefillAt: base}
		refilled := ApplyHourlyRefill(bucket, base.Add(3*time.Hour))
		assert.Equal(t, 7, refilled.AvailableTokens)
		assert.Equal(t, base.Add(3*time.Hour), refilled.LastRefillAt)
	})

	t.Run("fractional remainder stays on the clock", func(t *testing.T) {
		bucket := BucketSnapshot{TenantID: "t", AvailableTokens: 8, MaxTokens: 10, LastRefillAt: base}
		refilled := ApplyHourlyRefill(bucket, base.Add(2*time.Hour+25*time.Minute))
		assert.Equal(t, 10, refilled.AvailableTokens)
		assert.Equal(t, base.Add(2*time.Hour), refilled.LastRefillAt,
			"lastRefillAt advances by whole hours only")
	})

	t.Run("caps at max tokens", func(t *testing.T) {
		bucket := BucketSnapshot{TenantID: "t", AvailableTokens: 9, MaxTokens: 10, LastRefillAt: base}
		refilled := ApplyHourlyRefill(bucket, base.Add(5*time.Hour))
		assert.Equal(t, 10, refilled.AvailableTokens)
		assert.Equal(t, base.Add(5*time.Hour), refilled.LastRefillAt)
	})

	t.Run("full bucket still advances the clock", func(t *testing.T) {
		bucket := BucketSnapshot{TenantID: "t", AvailableTokens: 10, MaxTokens: 10, LastRefillAt: base}
		refilled := ApplyHourlyRefill(bucket, base.Add(2*time.Hour))
		assert.Equal(t, 10, refilled.AvailableTokens)
		assert.Equal(t, base.Add(2*time.Hour), refilled.LastRefillAt)
	})
}
