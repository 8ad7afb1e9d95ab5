package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/curbsidehq/curbside/internal/ordering"
)

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection("orders"),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *ordering.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	var o ordering.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

func (r *OrderRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, status ordering.Status) ([]*ordering.Order, error) {
	filter := bson.M{"merchant_id": merchantID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders by merchant: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ordering.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}

func (r *OrderRepo) ListByConsumer(ctx context.Context, consumerID uuid.UUID) ([]*ordering.Order, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"consumer_id": consumerID})
	if err != nil {
		return nil, fmt.Errorf("cannot list orders by consumer: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*ordering.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}

// Save replaces the stored order only while its persisted status still
// equals expectedStatus. The status filter is what arbitrates concurrent
// transitions on the same order: the second writer matches nothing and gets
// ordering.ErrStatusConflict.
func (r *OrderRepo) Save(ctx context.Context, o *ordering.Order, expectedStatus ordering.Status) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	filter := bson.M{"_id": o.ID, "status": expectedStatus}
	update := bson.M{"$set": o}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": o.ID})
		if err != nil {
			return fmt.Errorf("cannot update order: %w", err)
		}
		if count > 0 {
			return ordering.ErrStatusConflict
		}
		return fmt.Errorf("order not found")
	}

	return nil
}
