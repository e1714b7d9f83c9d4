package leakybucket

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryRepository is a single-process Repository; one mutex serializes
// every tenant transaction, matching the storage-agnostic contract for demo
// and test deployments.
type InMemoryRepository struct {
	mu       sync.Mutex
	buckets  map[string]BucketSnapshot
	pixKeys  map[string]PixKey
	attempts []QueryAttempt
}

// Seed is the provisioning data for an in-memory repository: buckets are
// created once per tenant here, never by the engine.
type Seed struct {
	Buckets []BucketSnapshot
	PixKeys []PixKey
}

// NewInMemoryRepository provisions buckets and pix keys from seed.
func NewInMemoryRepository(seed Seed) *InMemoryRepository {
	r := &InMemoryRepository{
		buckets: make(map[string]BucketSnapshot),
		pixKeys: make(map[string]PixKey),
	}
	for _, bucket := range seed.Buckets {
		r.buckets[bucket.TenantID] = bucket
	}
	for _, key := range seed.PixKeys {
		r.pixKeys[key.Key] = key
	}
	return r
}

type memoryTx struct {
	repo     *InMemoryRepository
	tenantID string
}

func (r *InMemoryRepository) WithTenantLock(ctx context.Context, tenantID string, body func(ctx context.Context, tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return body(ctx, &memoryTx{repo: r, tenantID: tenantID})
}

func (tx *memoryTx) GetBucket(context.Context) (BucketSnapshot, error) {
	bucket, ok := tx.repo.buckets[tx.tenantID]
	if !ok {
		return BucketSnapshot{}, fmt.Errorf("bucket not found for tenant %s", tx.tenantID)
	}
	return bucket, nil
}

func (tx *memoryTx) SaveBucket(_ context.Context, availableTokens int, lastRefillAt time.Time) (BucketSnapshot, error) {
	bucket, ok := tx.repo.buckets[tx.tenantID]
	if !ok {
		return BucketSnapshot{}, fmt.Errorf("bucket not found for tenant %s", tx.tenantID)
	}
	bucket.AvailableTokens = availableTokens
	bucket.LastRefillAt = lastRefillAt
	tx.repo.buckets[tx.tenantID] = bucket
	return bucket, nil
}

func (tx *memoryTx) FindPixKeyByKey(_ context.Context, key string) (*PixKey, error) {
	pixKey, ok := tx.repo.pixKeys[key]
	if !ok {
		return nil, nil
	}
	return &pixKey, nil
}

func (tx *memoryTx) CreateAttempt(_ context.Context, attempt QueryAttempt) error {
	tx.repo.attempts = append(tx.repo.attempts, attempt)
	return nil
}

// Bucket returns a tenant's stored bucket, for tests.
func (r *InMemoryRepository) Bucket(tenantID string) (BucketSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.buckets[tenantID]
	return bucket, ok
}

// AttemptsForTenant returns a tenant's recorded attempts, for tests.
func (r *InMemoryRepository) AttemptsForTenant(tenantID string) []QueryAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	var attempts []QueryAttempt
	for _, attempt := range r.attempts {
		if attempt.TenantID == tenantID {
			attempts = append(attempts, attempt)
		}
	}
	return attempts
}
