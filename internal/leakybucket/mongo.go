package leakybucket

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dict-gateway/go/internal/db"
)

// MongoRepository stores leaky buckets, pix keys and query attempts in
// MongoDB. Like the DICT repository, a process-wide mutex stands in for row
// locks; fine for a single process, not for horizontal scale.
type MongoRepository struct {
	buckets  *mongo.Collection
	pixKeys  *mongo.Collection
	attempts *mongo.Collection
	txMu     sync.Mutex
}

// NewMongoRepository binds the repository to its collections.
func NewMongoRepository(m *db.Mongo) *MongoRepository {
	return &MongoRepository{
		buckets:  m.Collection("pix_query_buckets"),
		pixKeys:  m.Collection("pix_keys"),
		attempts: m.Collection("pix_query_attempts"),
	}
}

// EnsureIndexes creates the tenant and key lookup indexes.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.buckets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenantId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = r.pixKeys.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// ProvisionBucket creates a tenant's bucket if it does not exist yet.
// Buckets are provisioned once, never recreated by the engine.
func (r *MongoRepository) ProvisionBucket(ctx context.Context, bucket BucketSnapshot) error {
	filter := bson.M{"tenantId": bucket.TenantID}
	update := bson.M{"$setOnInsert": bucket}
	_, err := r.buckets.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// UpsertPixKey provisions reference data for demos and tests.
func (r *MongoRepository) UpsertPixKey(ctx context.Context, key PixKey) error {
	filter := bson.M{"key": key.Key}
	update := bson.M{"$set": key}
	_, err := r.pixKeys.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

type mongoTx struct {
	repo     *MongoRepository
	tenantID string
}

func (r *MongoRepository) WithTenantLock(ctx context.Context, tenantID string, body func(ctx context.Context, tx Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return body(ctx, &mongoTx{repo: r, tenantID: tenantID})
}

func (tx *mongoTx) GetBucket(ctx context.Context) (BucketSnapshot, error) {
	var bucket BucketSnapshot
	err := tx.repo.buckets.FindOne(ctx, bson.M{"tenantId": tx.tenantID}).Decode(&bucket)
	return bucket, err
}

func (tx *mongoTx) SaveBucket(ctx context.Context, availableTokens int, lastRefillAt time.Time) (BucketSnapshot, error) {
	filter := bson.M{"tenantId": tx.tenantID}
	update := bson.M{"$set": bson.M{
		"availableTokens": availableTokens,
		"lastRefillAt":    lastRefillAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var bucket BucketSnapshot
	err := tx.repo.buckets.FindOneAndUpdate(ctx, filter, update, opts).Decode(&bucket)
	return bucket, err
}

func (tx *mongoTx) FindPixKeyByKey(ctx context.Context, key string) (*PixKey, error) {
	var pixKey PixKey
	err := tx.repo.pixKeys.FindOne(ctx, bson.M{"key": key}).Decode(&pixKey)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pixKey, nil
}

func (tx *mongoTx) CreateAttempt(ctx context.Context, attempt QueryAttempt) error {
	_, err := tx.repo.attempts.InsertOne(ctx, attempt)
	return err
}
