package dict

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryRepository is a single-process Repository. One mutex serializes
// every transaction, standing in for storage-level row locks; suitable for
// tests and single-process demo deployments only.
type InMemoryRepository struct {
	mu             sync.Mutex
	buckets        map[BucketIdentity]BucketSnapshot
	attempts       []storedAttempt
	impacts        []storedImpact
	lookupTraces   []EntryLookupTrace
	paymentCredits map[paymentCreditKey]PaymentCredit
	clockNow       func() time.Time
}

type storedAttempt struct {
	ID string
	OperationAttempt
}

type storedImpact struct {
	AttemptID string
	PolicyImpact
}

type paymentCreditKey struct {
	TenantID   string
	PayerID    string
	KeyType    KeyType
	EndToEndID string
}

// NewInMemoryRepository creates an empty repository. nowFn stamps lazily
// created buckets; pass nil for time.Now.
func NewInMemoryRepository(nowFn func() time.Time) *InMemoryRepository {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &InMemoryRepository{
		buckets:        make(map[BucketIdentity]BucketSnapshot),
		paymentCredits: make(map[paymentCreditKey]PaymentCredit),
		clockNow:       nowFn,
	}
}

// memoryTx buffers all writes; they are applied only when the transaction
// body returns nil, so an aborted body leaves no trace.
type memoryTx struct {
	repo           *InMemoryRepository
	locks          []BucketLock
	bucketUpdates  []BucketSnapshot
	attempts       []storedAttempt
	impacts        []storedImpact
	lookupTraces   []EntryLookupTrace
	paymentCredits []PaymentCredit
}

func (r *InMemoryRepository) WithLockedBuckets(ctx context.Context, locks []BucketLock, body func(ctx context.Context, tx Tx) error) error {
	normalized := NormalizeLocks(locks)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Lazy creation at the configured capacity, inside the lock.
	for _, lock := range normalized {
		if _, ok := r.buckets[lock.BucketIdentity]; !ok {
			r.buckets[lock.BucketIdentity] = BucketSnapshot{
				BucketIdentity: lock.BucketIdentity,
				Tokens:         lock.InitialTokens,
				LastRefillAt:   r.clockNow(),
			}
		}
	}

	tx := &memoryTx{repo: r, locks: normalized}
	if err := body(ctx, tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

func (tx *memoryTx) commit() {
	r := tx.repo
	for _, update := range tx.bucketUpdates {
		r.buckets[update.BucketIdentity] = update
	}
	r.attempts = append(r.attempts, tx.attempts...)
	r.impacts = append(r.impacts, tx.impacts...)
	r.lookupTraces = append(r.lookupTraces, tx.lookupTraces...)
	for _, credit := range tx.paymentCredits {
		r.paymentCredits[creditKey(credit)] = credit
	}
}

func creditKey(c PaymentCredit) paymentCreditKey {
	return paymentCreditKey{
		TenantID:   c.TenantID,
		PayerID:    c.PayerID,
		KeyType:    c.KeyType,
		EndToEndID: c.EndToEndID,
	}
}

func (tx *memoryTx) LockedBuckets(context.Context) ([]BucketSnapshot, error) {
	snapshots := make([]BucketSnapshot, 0, len(tx.locks))
	for _, lock := range tx.locks {
		if bucket, ok := tx.repo.buckets[lock.BucketIdentity]; ok {
			snapshots = append(snapshots, bucket)
		}
	}
	return snapshots, nil
}

func (tx *memoryTx) SaveBuckets(_ context.Context, updates []BucketSnapshot) error {
	tx.bucketUpdates = append(tx.bucketUpdates, updates...)
	return nil
}

func (tx *memoryTx) CreateOperationAttempt(_ context.Context, attempt OperationAttempt) (string, error) {
	id := fmt.Sprintf("attempt-%d", len(tx.repo.attempts)+len(tx.attempts)+1)
	tx.attempts = append(tx.attempts, storedAttempt{ID: id, OperationAttempt: attempt})
	return id, nil
}

func (tx *memoryTx) CreateOperationImpacts(_ context.Context, attemptID string, impacts []PolicyImpact) error {
	for _, impact := range impacts {
		tx.impacts = append(tx.impacts, storedImpact{AttemptID: attemptID, PolicyImpact: impact})
	}
	return nil
}

func (tx *memoryTx) CreateEntryLookupTrace(_ context.Context, trace EntryLookupTrace) error {
	tx.lookupTraces = append(tx.lookupTraces, trace)
	return nil
}

func (tx *memoryTx) CreatePaymentCredit(_ context.Context, credit PaymentCredit) (bool, error) {
	key := creditKey(credit)
	if _, exists := tx.repo.paymentCredits[key]; exists {
		return false, nil
	}
	for _, staged := range tx.paymentCredits {
		if creditKey(staged) == key {
			return false, nil
		}
	}
	tx.paymentCredits = append(tx.paymentCredits, credit)
	return true, nil
}

func (r *InMemoryRepository) HasEligibleEntryLookupTrace(_ context.Context, query EntryLookupTraceQuery) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, trace := range r.lookupTraces {
		if trace.TenantID == query.TenantID &&
			trace.PayerID == query.PayerID &&
			trace.KeyType == query.KeyType &&
			trace.EndToEndID == query.EndToEndID &&
			trace.EligibleForCredit {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepository) BucketState(_ context.Context, identity BucketIdentity) (*BucketSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[identity]
	if !ok {
		return nil, nil
	}
	return &bucket, nil
}

func (r *InMemoryRepository) ListBucketStates(_ context.Context, tenantID string, filter BucketListFilter) ([]BucketSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var states []BucketSnapshot
	for _, bucket := range r.buckets {
		if bucket.ScopeKey != tenantID && !strings.HasPrefix(bucket.ScopeKey, tenantID+":") {
			continue
		}
		if filter.PolicyCode != nil && bucket.PolicyCode != *filter.PolicyCode {
			continue
		}
		if filter.ScopeType != nil && bucket.ScopeType != *filter.ScopeType {
			continue
		}
		states = append(states, bucket)
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].CanonicalKey() < states[j].CanonicalKey()
	})
	return states, nil
}

// BucketTokens returns the stored token count of a bucket, for tests.
func (r *InMemoryRepository) BucketTokens(identity BucketIdentity) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[identity]
	if !ok {
		return 0, false
	}
	return bucket.Tokens, true
}

// AttemptCount returns the number of recorded attempts, for tests.
func (r *InMemoryRepository) AttemptCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// PaymentCreditCount returns the number of stored payment credits, for tests.
func (r *InMemoryRepository) PaymentCreditCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paymentCredits)
}

// AddEntryLookupTrace seeds a trace directly, for tests.
func (r *InMemoryRepository) AddEntryLookupTrace(trace EntryLookupTrace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookupTraces = append(r.lookupTraces, trace)
}
