package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/curbsidehq/curbside/internal/ordering"
)

type MerchantRepo struct {
	collection *mongo.Collection
}

func NewMerchantRepo(db *mongo.Database) *MerchantRepo {
	return &MerchantRepo{
		collection: db.Collection("merchants"),
	}
}

func (r *MerchantRepo) Get(ctx context.Context, id uuid.UUID) (*ordering.Merchant, error) {
	var m ordering.Merchant
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get merchant: %w", err)
	}
	return &m, nil
}

func (r *MerchantRepo) Put(ctx context.Context, m *ordering.Merchant) error {
	if m == nil {
		return fmt.Errorf("merchant is nil")
	}

	filter := bson.M{"_id": m.ID}
	update := bson.M{"$set": m}
	opts := options.Update().SetUpsert(true)

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("cannot save merchant: %w", err)
	}

	return nil
}
