package dict

import (
	"context"
	"regexp"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dict-gateway/go/internal/db"
)

// MongoRepository persists buckets and the audit trail in MongoDB.
//
// Mongo has no row-level SELECT ... FOR UPDATE, so a process-wide mutex
// serializes transactions, which is only sound for single-process
// deployments. Bucket and audit writes are buffered and flushed after the
// transaction body succeeds; the payment-credit insert happens immediately
// because its unique index is the idempotency barrier itself.
type MongoRepository struct {
	buckets        *mongo.Collection
	attempts       *mongo.Collection
	impacts        *mongo.Collection
	lookupTraces   *mongo.Collection
	paymentCredits *mongo.Collection
	txMu           sync.Mutex
}

// NewMongoRepository binds the repository to its collections.
func NewMongoRepository(m *db.Mongo) *MongoRepository {
	return &MongoRepository{
		buckets:        m.Collection("dict_buckets"),
		attempts:       m.Collection("dict_operation_attempts"),
		impacts:        m.Collection("dict_operation_impacts"),
		lookupTraces:   m.Collection("dict_entry_lookup_traces"),
		paymentCredits: m.Collection("dict_payment_credits"),
	}
}

// EnsureIndexes creates the identity and idempotency indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.buckets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "policyCode", Value: 1},
			{Key: "scopeType", Value: 1},
			{Key: "scopeKey", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = r.lookupTraces.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "payerId", Value: 1},
			{Key: "keyType", Value: 1},
			{Key: "endToEndId", Value: 1},
		},
	})
	if err != nil {
		return err
	}

	// Uniqueness here is what makes RegisterPaymentSent exactly-once.
	_, err = r.paymentCredits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenantId", Value: 1},
			{Key: "payerId", Value: 1},
			{Key: "keyType", Value: 1},
			{Key: "endToEndId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

type mongoTx struct {
	repo          *MongoRepository
	locks         []BucketLock
	bucketUpdates []BucketSnapshot
	attemptDocs   []any
	impactDocs    []any
	traceDocs     []any
}

func (r *MongoRepository) WithLockedBuckets(ctx context.Context, locks []BucketLock, body func(ctx context.Context, tx Tx) error) error {
	normalized := NormalizeLocks(locks)

	r.txMu.Lock()
	defer r.txMu.Unlock()

	now := time.Now()
	for _, lock := range normalized {
		filter := bson.M{
			"policyCode": lock.PolicyCode,
			"scopeType":  lock.ScopeType,
			"scopeKey":   lock.ScopeKey,
		}
		update := bson.M{"$setOnInsert": bson.M{
			"tokens":       lock.InitialTokens,
			"lastRefillAt": now,
		}}
		if _, err := r.buckets.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return err
		}
	}

	tx := &mongoTx{repo: r, locks: normalized}
	if err := body(ctx, tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

func (tx *mongoTx) commit(ctx context.Context) error {
	for _, update := range tx.bucketUpdates {
		filter := bson.M{
			"policyCode": update.PolicyCode,
			"scopeType":  update.ScopeType,
			"scopeKey":   update.ScopeKey,
		}
		set := bson.M{"$set": bson.M{
			"tokens":       update.Tokens,
			"lastRefillAt": update.LastRefillAt,
		}}
		if _, err := tx.repo.buckets.UpdateOne(ctx, filter, set); err != nil {
			return err
		}
	}
	if len(tx.attemptDocs) > 0 {
		if _, err := tx.repo.attempts.InsertMany(ctx, tx.attemptDocs); err != nil {
			return err
		}
	}
	if len(tx.impactDocs) > 0 {
		if _, err := tx.repo.impacts.InsertMany(ctx, tx.impactDocs); err != nil {
			return err
		}
	}
	if len(tx.traceDocs) > 0 {
		if _, err := tx.repo.lookupTraces.InsertMany(ctx, tx.traceDocs); err != nil {
			return err
		}
	}
	return nil
}

func (tx *mongoTx) LockedBuckets(ctx context.Context) ([]BucketSnapshot, error) {
	snapshots := make([]BucketSnapshot, 0, len(tx.locks))
	for _, lock := range tx.locks {
		filter := bson.M{
			"policyCode": lock.PolicyCode,
			"scopeType":  lock.ScopeType,
			"scopeKey":   lock.ScopeKey,
		}
		var snapshot BucketSnapshot
		if err := tx.repo.buckets.FindOne(ctx, filter).Decode(&snapshot); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (tx *mongoTx) SaveBuckets(_ context.Context, updates []BucketSnapshot) error {
	tx.bucketUpdates = append(tx.bucketUpdates, updates...)
	return nil
}

type attemptDoc struct {
	ID               primitive.ObjectID `bson:"_id"`
	OperationAttempt `bson:",inline"`
	CreatedAt        time.Time `bson:"createdAt"`
}

func (tx *mongoTx) CreateOperationAttempt(_ context.Context, attempt OperationAttempt) (string, error) {
	id := primitive.NewObjectID()
	tx.attemptDocs = append(tx.attemptDocs, attemptDoc{
		ID:               id,
		OperationAttempt: attempt,
		CreatedAt:        time.Now(),
	})
	return id.Hex(), nil
}

type impactDoc struct {
	AttemptID    string `bson:"attemptId"`
	PolicyImpact `bson:",inline"`
}

func (tx *mongoTx) CreateOperationImpacts(_ context.Context, attemptID string, impacts []PolicyImpact) error {
	for _, impact := range impacts {
		tx.impactDocs = append(tx.impactDocs, impactDoc{AttemptID: attemptID, PolicyImpact: impact})
	}
	return nil
}

func (tx *mongoTx) CreateEntryLookupTrace(_ context.Context, trace EntryLookupTrace) error {
	tx.traceDocs = append(tx.traceDocs, trace)
	return nil
}

func (tx *mongoTx) CreatePaymentCredit(ctx context.Context, credit PaymentCredit) (bool, error) {
	_, err := tx.repo.paymentCredits.InsertOne(ctx, credit)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *MongoRepository) HasEligibleEntryLookupTrace(ctx context.Context, query EntryLookupTraceQuery) (bool, error) {
	filter := bson.M{
		"tenantId":          query.TenantID,
		"payerId":           query.PayerID,
		"keyType":           query.KeyType,
		"endToEndId":        query.EndToEndID,
		"eligibleForCredit": true,
	}
	err := r.lookupTraces.FindOne(ctx, filter).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *MongoRepository) BucketState(ctx context.Context, identity BucketIdentity) (*BucketSnapshot, error) {
	filter := bson.M{
		"policyCode": identity.PolicyCode,
		"scopeType":  identity.ScopeType,
		"scopeKey":   identity.ScopeKey,
	}
	var snapshot BucketSnapshot
	err := r.buckets.FindOne(ctx, filter).Decode(&snapshot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *MongoRepository) ListBucketStates(ctx context.Context, tenantID string, filter BucketListFilter) ([]BucketSnapshot, error) {
	query := bson.M{"$or": bson.A{
		bson.M{"scopeKey": tenantID},
		bson.M{"scopeKey": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(tenantID+":")}},
	}}
	if filter.PolicyCode != nil {
		query["policyCode"] = *filter.PolicyCode
	}
	if filter.ScopeType != nil {
		query["scopeType"] = *filter.ScopeType
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "policyCode", Value: 1},
		{Key: "scopeType", Value: 1},
		{Key: "scopeKey", Value: 1},
	})
	cursor, err := r.buckets.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var snapshots []BucketSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}
