package dict

import (
	"context"
	"sort"
)

// BucketLock names a bucket that must be exclusively locked for a
// transaction, with the value it should be created at if it does not exist
// yet (its configured capacity).
type BucketLock struct {
	BucketIdentity
	InitialTokens float64
}

// Tx is the view a repository exposes inside a locked transaction: reads and
// writes of exactly the locked buckets, plus append-only audit writes.
// All writes commit atomically when the transaction body returns nil; any
// error aborts every bucket write.
type Tx interface {
	// LockedBuckets returns the current snapshot of the locked buckets.
	LockedBuckets(ctx context.Context) ([]BucketSnapshot, error)

	// SaveBuckets stages new token counts and refill timestamps for a
	// subset of the locked buckets.
	SaveBuckets(ctx context.Context, updates []BucketSnapshot) error

	// CreateOperationAttempt appends one decision audit row and returns its id.
	CreateOperationAttempt(ctx context.Context, attempt OperationAttempt) (string, error)

	// CreateOperationImpacts appends the per-bucket impact rows of an attempt.
	CreateOperationImpacts(ctx context.Context, attemptID string, impacts []PolicyImpact) error

	// CreateEntryLookupTrace appends a lookup trace row.
	CreateEntryLookupTrace(ctx context.Context, trace EntryLookupTrace) error

	// CreatePaymentCredit claims the unique payment-credit row. It returns
	// false, not an error, when the payment is already registered.
	CreatePaymentCredit(ctx context.Context, credit PaymentCredit) (bool, error)
}

// Repository owns bucket storage and the locking discipline around it.
type Repository interface {
	// WithLockedBuckets deduplicates and canonically orders the lock set,
	// creates missing buckets at their initial value, acquires exclusive
	// locks, and runs body inside one atomic transaction.
	WithLockedBuckets(ctx context.Context, locks []BucketLock, body func(ctx context.Context, tx Tx) error) error

	// HasEligibleEntryLookupTrace reports whether an eligible trace exists
	// for the given payment reference.
	HasEligibleEntryLookupTrace(ctx context.Context, query EntryLookupTraceQuery) (bool, error)

	// BucketState returns the stored snapshot of one bucket, or nil.
	BucketState(ctx context.Context, identity BucketIdentity) (*BucketSnapshot, error)

	// ListBucketStates returns every stored bucket owned by the tenant,
	// optionally filtered, ordered by canonical key.
	ListBucketStates(ctx context.Context, tenantID string, filter BucketListFilter) ([]BucketSnapshot, error)
}

// NormalizeLocks deduplicates locks by bucket identity, keeping the largest
// initial value per identity, and sorts the result by canonical key. The
// fixed global ordering is the deadlock-avoidance strategy: two concurrent
// transactions needing overlapping buckets acquire them in the same relative
// order. Both repository implementations go through this.
func NormalizeLocks(locks []BucketLock) []BucketLock {
	deduped := make(map[BucketIdentity]BucketLock, len(locks))
	for _, lock := range locks {
		existing, ok := deduped[lock.BucketIdentity]
		if !ok || lock.InitialTokens > existing.InitialTokens {
			deduped[lock.BucketIdentity] = lock
		}
	}

	normalized := make([]BucketLock, 0, len(deduped))
	for _, lock := range deduped {
		normalized = append(normalized, lock)
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i].CanonicalKey() < normalized[j].CanonicalKey()
	})

	return normalized
}
