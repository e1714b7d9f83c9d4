package leakybucket_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dict-gateway/go/internal/clock"
	"github.com/dict-gateway/go/internal/leakybucket"
	"github.com/dict-gateway/go/internal/pix"
)

var testStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, tokens int) (*leakybucket.Service, *leakybucket.InMemoryRepository, *clock.Fake) {
	t.Helper()
	repo := leakybucket.NewInMemoryRepository(leakybucket.Seed{
		Buckets: []leakybucket.BucketSnapshot{
			{TenantID: "tenant-1", AvailableTokens: tokens, MaxTokens: 10, LastRefillAt: testStart},
		},
		PixKeys: []leakybucket.PixKey{
			{Key: "alice@example.com", OwnerName: "Alice Souza", BankName: "Alpha Bank", Status: leakybucket.KeyActive},
			{Key: "carol@example.com", OwnerName: "Carol Dias", BankName: "Alpha Bank", Status: leakybucket.KeyInactive},
		},
	})
	clk := clock.NewFake(testStart)
	service := leakybucket.NewService(repo, pix.NewService(), zap.NewNop(), clk)
	return service, repo, clk
}

func query(key string) leakybucket.QueryPixKeyInput {
	return leakybucket.QueryPixKeyInput{PixKey: key, AmountCents: 15000}
}

func TestQueryPixKeySuccessIsFree(t *testing.T) {
	service, repo, _ := newTestService(t, 10)

	result, err := service.QueryPixKey(context.Background(), "tenant-1", query("alice@example.com"))
	require.NoError(t, err)

	assert.Equal(t, leakybucket.StatusSuccess, result.Status)
	assert.True(t, result.PixKeyFound)
	assert.Equal(t, "Alice Souza", result.OwnerName)
	assert.Equal(t, "Alpha Bank", result.BankName)
	assert.False(t, result.ConsumedToken)
	assert.Equal(t, 10, result.AvailableTokens)

	bucket, _ := repo.Bucket("tenant-1")
	assert.Equal(t, 10, bucket.AvailableTokens)

	attempts := repo.AttemptsForTenant("tenant-1")
	require.Len(t, attempts, 1)
	assert.Equal(t, leakybucket.StatusSuccess, attempts[0].Result)
	assert.Equal(t, "150.00", attempts[0].Amount)
}

func TestQueryPixKeyNotFoundConsumesToken(t *testing.T) {
	service, repo, _ := newTestService(t, 10)

	result, err := service.QueryPixKey(context.Background(), "tenant-1", query("nobody@example.com"))
	require.NoError(t, err)

	assert.Equal(t, leakybucket.StatusFailed, result.Status)
	assert.False(t, result.PixKeyFound)
	assert.True(t, result.ConsumedToken)
	assert.Equal(t, 9, result.AvailableTokens)

	bucket, _ := repo.Bucket("tenant-1")
	assert.Equal(t, 9, bucket.AvailableTokens)

	attempts := repo.AttemptsForTenant("tenant-1")
	require.Len(t, attempts, 1)
	assert.Equal(t, leakybucket.ReasonKeyNotFound, attempts[0].FailureReason)
	assert.Equal(t, 10, attempts[0].TokensBefore)
	assert.Equal(t, 9, attempts[0].TokensAfter)
}

func TestQueryPixKeyInactiveConsumesToken(t *testing.T) {
	service, repo, _ := newTestService(t, 10)

	result, err := service.QueryPixKey(context.Background(), "tenant-1", query("carol@example.com"))
	require.NoError(t, err)

	assert.Equal(t, leakybucket.StatusFailed, result.Status)
	assert.True(t, result.PixKeyFound, "inactive keys are found but unusable")
	assert.Equal(t, "Carol Dias", result.OwnerName)
	assert.True(t, result.ConsumedToken)

	bucket, _ := repo.Bucket("tenant-1")
	assert.Equal(t, 9, bucket.AvailableTokens)

	attempts := repo.AttemptsForTenant("tenant-1")
	require.Len(t, attempts, 1)
	assert.Equal(t, leakybucket.ReasonKeyInactive, attempts[0].FailureReason)
}

func TestQueryPixKeyEmptyBucketRejectsWithoutLookup(t *testing.T) {
	service, repo, _ := newTestService(t, 0)

	result, err := service.QueryPixKey(context.Background(), "tenant-1", query("alice@example.com"))
	require.NoError(t, err)

	assert.Equal(t, leakybucket.StatusRateLimited, result.Status)
	assert.False(t, result.PixKeyFound)
	assert.False(t, result.ConsumedToken)
	assert.Equal(t, 0, result.AvailableTokens)

	attempts := repo.AttemptsForTenant("tenant-1")
	require.Len(t, attempts, 1)
	assert.Equal(t, leakybucket.ReasonNoAvailableTokens, attempts[0].FailureReason)
}

func TestQueryPixKeyRefillBeforeDecision(t *testing.T) {
	service, repo, clk := newTestService(t, 0)

	clk.Advance(2 * time.Hour)

	result, err := service.QueryPixKey(context.Background(), "tenant-1", query("nobody@example.com"))
	require.NoError(t, err)

	assert.Equal(t, leakybucket.StatusFailed, result.Status, "refilled tokens admit the query")
	assert.Equal(t, 1, result.AvailableTokens)

	bucket, _ := repo.Bucket("tenant-1")
	assert.Equal(t, 1, bucket.AvailableTokens)
	assert.Equal(t, testStart.Add(2*time.Hour), bucket.LastRefillAt)
}

func TestQueryPixKeyConcurrentDrain(t *testing.T) {
	service, repo, _ := newTestService(t, 10)

	const queries = 15
	results := make([]*leakybucket.QueryResult, queries)
	var wg sync.WaitGroup
	for i := 0; i < queries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := service.QueryPixKey(context.Background(), "tenant-1", query("nobody@example.com"))
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	failed, rateLimited := 0, 0
	for _, result := range results {
		switch {
		case result == nil:
		case result.Status == leakybucket.StatusFailed:
			failed++
		case result.Status == leakybucket.StatusRateLimited:
			rateLimited++
		}
	}
	assert.Equal(t, 10, failed, "every token is consumed exactly once")
	assert.Equal(t, 5, rateLimited)

	bucket, _ := repo.Bucket("tenant-1")
	assert.Equal(t, 0, bucket.AvailableTokens)
}

func TestGetBucketStatePersistsRefill(t *testing.T) {
	service, repo, clk := newTestService(t, 3)

	clk.Advance(4 * time.Hour)

	state, err := service.GetBucketState(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 7, state.AvailableTokens)
	assert.Equal(t, 10, state.MaxTokens)
	assert.Equal(t, testStart.Add(4*time.Hour), state.LastRefillAt)

	bucket, _ := repo.Bucket("tenant-1")
	assert.Equal(t, 7, bucket.AvailableTokens, "bucket reads persist the refill")
}
