package ordering

import (
	"context"
	"errors"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/curbsidehq/curbside/pkg/enums/station"
)

const demoSeedApplication = "curbside_demo"

// DemoMerchantID and DemoConsumerID are fixed so local clients can point at
// the seeded truck without looking anything up first.
var (
	DemoMerchantID = uuid.MustParse("2f1a7c9e-5b7d-4f7e-9c34-08a15f0d6b21")
	DemoConsumerID = uuid.MustParse("7d4e2b10-93c6-4a8f-b5d2-61c90e3a74f8")
)

// ApplyDemoSeeds creates a demo merchant and one pending order so a fresh
// environment can exercise the full lifecycle immediately.
func ApplyDemoSeeds(ctx context.Context, merchants MerchantRepo, orders OrderRepo, db *mongo.Database, logger apt.Logger) error {
	if db == nil {
		return errors.New("database is required for demo seeding")
	}

	tracker := seed.NewMongoTracker(db)
	seeds := []seed.Seed{
		{
			ID:          "2026-08-29_demo_merchant_v1",
			Description: "Create the demo food truck with counter and table pickup",
			Run: func(ctx context.Context) error {
				return seedDemoMerchant(ctx, merchants)
			},
		},
		{
			ID:          "2026-08-29_demo_order_v1",
			Description: "Create a pending order with station-tagged items",
			Run: func(ctx context.Context) error {
				return seedDemoOrder(ctx, orders)
			},
		},
	}

	logger.Info("Applying demo merchant seeds")
	if err := seed.Apply(ctx, tracker, seeds, demoSeedApplication); err != nil {
		return err
	}
	logger.Info("Demo merchant seeds applied successfully")
	return nil
}

// DemoSeedingFunc adapts ApplyDemoSeeds to a lifecycle OnStart hook.
func DemoSeedingFunc(ctx context.Context, merchants MerchantRepo, orders OrderRepo, db *mongo.Database, logger apt.Logger) func(context.Context) error {
	return func(context.Context) error {
		return ApplyDemoSeeds(ctx, merchants, orders, db, logger)
	}
}

func seedDemoMerchant(ctx context.Context, merchants MerchantRepo) error {
	merchant := &Merchant{
		ID:     DemoMerchantID,
		Name:   "Curbside Demo Truck",
		Online: true,
		PickupMethods: []PickupMethod{
			{ID: "counter", Name: "Counter pickup", Enabled: true},
			{ID: "table", Name: "Table delivery", Enabled: true, RequiresTable: true},
			{ID: "curbside", Name: "Curbside handoff", Enabled: false},
		},
	}
	merchant.BeforeCreate()
	return merchants.Put(ctx, merchant)
}

func seedDemoOrder(ctx context.Context, orders OrderRepo) error {
	order := NewOrder(DemoMerchantID, DemoConsumerID, []LineItem{
		{
			Name:     "Carne Asada Taco",
			Quantity: 2,
			Price:    5.50,
			Stations: []string{station.Stations.Grill.Code()},
		},
		{
			Name:     "Loaded Fries",
			Quantity: 1,
			Price:    6.00,
			Stations: []string{station.Stations.Fryer.Code()},
		},
		{
			Name:     "Horchata",
			Quantity: 2,
			Price:    3.00,
			Stations: []string{station.Stations.Drinks.Code()},
		},
	})
	order.PickupMethodID = "counter"
	order.Note = "Demo order, feel free to reject"
	return orders.Create(ctx, order)
}
