package dict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyContinuousRefill(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := RateConfig{Capacity: 100, RefillPerSecond: 2.0 / 60.0}

	t.Run("accrues proportionally to elapsed time", func(t *testing.T) {
		refilled := ApplyContinuousRefill(50, base, cfg, base.Add(30*time.Second))
		assert.InDelta(t, 51, refilled.Tokens, 1e-9)
		assert.Equal(t, base.Add(30*time.Second), refilled.LastRefillAt)
	})

	t.Run("caps at capacity", func(t *testing.T) {
		refilled := ApplyContinuousRefill(99.5, base, cfg, base.Add(10*time.Minute))
		assert.Equal(t, 100.0, refilled.Tokens)
	})

	t.Run("unchanged when now is not after lastRefillAt", func(t *testing.T) {
		refilled := ApplyContinuousRefill(42, base, cfg, base)
		assert.Equal(t, 42.0, refilled.Tokens)
		assert.Equal(t, base, refilled.LastRefillAt)

		refilled = ApplyContinuousRefill(42, base, cfg, base.Add(-time.Second))
		assert.Equal(t, base, refilled.LastRefillAt)
	})

	t.Run("rounds to six decimal places", func(t *testing.T) {
		refilled := ApplyContinuousRefill(10, base, RateConfig{Capacity: 100, RefillPerSecond: 1.0 / 3.0}, base.Add(time.Second))
		assert.Equal(t, 10.333333, refilled.Tokens)
	})
}

func TestHasEnoughTokens(t *testing.T) {
	assert.True(t, HasEnoughTokens(1, 1))
	assert.True(t, HasEnoughTokens(1.000001, 1))
	assert.False(t, HasEnoughTokens(0.999, 1))

	// exact balance survives accumulated float error
	tokens := 0.0
	for i := 0; i < 10; i++ {
		tokens += 0.1
	}
	assert.True(t, HasEnoughTokens(roundTokens(tokens), 1))
}

func TestDebitTokens(t *testing.T) {
	assert.Equal(t, 99.0, DebitTokens(100, 1))
	assert.Equal(t, 0.0, DebitTokens(0.5, 20), "debit floors at zero")
}

func TestCreditTokens(t *testing.T) {
	assert.Equal(t, 100.0, CreditTokens(99.5, 2, 100), "credit caps at capacity")
	assert.Equal(t, 51.0, CreditTokens(50, 1, 100))
}
