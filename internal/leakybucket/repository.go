package leakybucket

import (
	"context"
	"time"
)

// Tx is the view inside one tenant-locked transaction. The pix key lookup
// runs through the same transaction so quota and data stay consistent.
type Tx interface {
	GetBucket(ctx context.Context) (BucketSnapshot, error)
	SaveBucket(ctx context.Context, availableTokens int, lastRefillAt time.Time) (BucketSnapshot, error)
	FindPixKeyByKey(ctx context.Context, key string) (*PixKey, error)
	CreateAttempt(ctx context.Context, attempt QueryAttempt) error
}

// Repository owns leaky-bucket storage and per-tenant locking.
type Repository interface {
	// WithTenantLock serializes access to one tenant's bucket and runs body
	// inside the lock.
	WithTenantLock(ctx context.Context, tenantID string, body func(ctx context.Context, tx Tx) error) error
}
