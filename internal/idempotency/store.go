// Package idempotency stores responses for requests carrying an
// X-Idempotency-Key header so retries replay the original outcome.
package idempotency

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dict-gateway/go/internal/db"
)

// StatusProcessing marks a claimed key whose response is not stored yet.
const StatusProcessing = 0

// Record is a stored idempotent request outcome.
type Record struct {
	Key        string    `bson:"key"`
	Response   any       `bson:"response"`
	StatusCode int       `bson:"statusCode"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// Repository persists idempotency records in MongoDB.
type Repository struct {
	collection *mongo.Collection
}

func NewRepository(m *db.Mongo) *Repository {
	return &Repository{collection: m.Collection("idempotency")}
}

// EnsureIndexes creates the unique key index and a 24h TTL on createdAt.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(86400),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// ClaimKey atomically inserts a processing record for the key. When the key
// is already claimed it returns claimed=false with the stored record, so the
// caller can replay the original response.
func (r *Repository) ClaimKey(ctx context.Context, key string) (bool, *Record, error) {
	record := Record{
		Key:        key,
		StatusCode: StatusProcessing,
		CreatedAt:  time.Now(),
	}

	_, err := r.collection.InsertOne(ctx, record)
	if err == nil {
		return true, nil, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, nil, err
	}

	var existing Record
	if err := r.collection.FindOne(ctx, bson.M{"key": key}).Decode(&existing); err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil, nil
		}
		return false, nil, err
	}
	return false, &existing, nil
}

// Save stores the response for a claimed key.
func (r *Repository) Save(ctx context.Context, key string, response any, statusCode int) error {
	update := bson.M{"$set": bson.M{
		"response":   response,
		"statusCode": statusCode,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"key": key}, update)
	return err
}
