package tenant

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dict-gateway/go/internal/db"
)

// MongoRepository stores tenants in the tenants collection.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(m *db.Mongo) *MongoRepository {
	return &MongoRepository{collection: m.Collection("tenants")}
}

// EnsureIndexes creates the unique participant code index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participantCode", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepository) FindByParticipantCode(ctx context.Context, code string) (*Tenant, error) {
	var t Tenant
	err := r.collection.FindOne(ctx, bson.M{"participantCode": code}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MongoRepository) Upsert(ctx context.Context, t Tenant) error {
	filter := bson.M{"_id": t.ID}
	update := bson.M{"$set": t}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
