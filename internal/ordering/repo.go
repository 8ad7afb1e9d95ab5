package ordering

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrStatusConflict is returned by OrderRepo.Save when the order's persisted
// status no longer matches the status the caller read. The persisted status
// is the arbiter when a merchant and a consumer race on the same pending
// order; the loser gets this error.
var ErrStatusConflict = errors.New("order status changed concurrently")

// OrderRepo is the system of record for orders. Get returns (nil, nil) when
// the order does not exist.
type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, status Status) ([]*Order, error)
	ListByConsumer(ctx context.Context, consumerID uuid.UUID) ([]*Order, error)
	// Save persists o only if the stored status still equals expectedStatus;
	// otherwise it returns ErrStatusConflict.
	Save(ctx context.Context, o *Order, expectedStatus Status) error
}

// MerchantRepo reads merchant snapshots. Get returns (nil, nil) when the
// merchant does not exist. Put exists for seeding and account sync.
type MerchantRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*Merchant, error)
	Put(ctx context.Context, m *Merchant) error
}
