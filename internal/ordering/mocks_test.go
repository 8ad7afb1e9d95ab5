package ordering

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"
)

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
	Published   []MockPublished
}

type MockPublished struct {
	Topic string
	Msg   []byte
}

var _ events.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, MockPublished{Topic: topic, Msg: msg})
	return nil
}

// cloneOrder mimics a store decode: callers never share memory with the
// stored record.
func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	c.StatusHistory = append([]StatusEntry(nil), o.StatusHistory...)
	return &c
}

// MockOrderRepo is an in-memory OrderRepo with per-method overrides
type MockOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*Order

	CreateFunc func(ctx context.Context, o *Order) error
	GetFunc    func(ctx context.Context, id uuid.UUID) (*Order, error)
	SaveFunc   func(ctx context.Context, o *Order, expectedStatus Status) error
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{
		orders: make(map[uuid.UUID]*Order),
	}
}

func (m *MockOrderRepo) Create(ctx context.Context, o *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MockOrderRepo) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (m *MockOrderRepo) ListByMerchant(ctx context.Context, merchantID uuid.UUID, status Status) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.MerchantID != merchantID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	return result, nil
}

func (m *MockOrderRepo) ListByConsumer(ctx context.Context, consumerID uuid.UUID) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*Order
	for _, o := range m.orders {
		if o.ConsumerID == consumerID {
			result = append(result, cloneOrder(o))
		}
	}
	return result, nil
}

func (m *MockOrderRepo) Save(ctx context.Context, o *Order, expectedStatus Status) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, o, expectedStatus)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return fmt.Errorf("order not found")
	}
	if stored.Status != expectedStatus {
		return ErrStatusConflict
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

// setStatus rewrites the stored record's status directly, bypassing the
// engine, to stage arbitrary machine states.
func (m *MockOrderRepo) setStatus(id uuid.UUID, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		o.Status = status
		o.StatusHistory = []StatusEntry{{Status: status, At: o.CreatedAt}}
	}
}

// MockMerchantRepo is an in-memory MerchantRepo with per-method overrides
type MockMerchantRepo struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*Merchant

	GetFunc func(ctx context.Context, id uuid.UUID) (*Merchant, error)
	PutFunc func(ctx context.Context, m *Merchant) error
}

func NewMockMerchantRepo() *MockMerchantRepo {
	return &MockMerchantRepo{
		merchants: make(map[uuid.UUID]*Merchant),
	}
}

func (m *MockMerchantRepo) Get(ctx context.Context, id uuid.UUID) (*Merchant, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	merchant, ok := m.merchants[id]
	if !ok {
		return nil, nil
	}
	return merchant, nil
}

func (m *MockMerchantRepo) Put(ctx context.Context, merchant *Merchant) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, merchant)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merchants[merchant.ID] = merchant
	return nil
}

// newTestMerchant builds an online merchant with a counter method and a
// table-delivery method that requires a table number.
func newTestMerchant() *Merchant {
	merchant := &Merchant{
		Name:   "Test Truck",
		Online: true,
		PickupMethods: []PickupMethod{
			{ID: "counter", Name: "Counter pickup", Enabled: true},
			{ID: "table", Name: "Table delivery", Enabled: true, RequiresTable: true},
			{ID: "closed", Name: "Retired method", Enabled: false},
		},
	}
	merchant.BeforeCreate()
	return merchant
}
