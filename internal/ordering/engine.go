package ordering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/curbsidehq/curbside/pkg/bus"
	"github.com/curbsidehq/curbside/pkg/event"
)

// Engine owns the order lifecycle: it validates requested transitions,
// stamps history, persists through the store and publishes change events.
// It is the only component allowed to move an order between statuses.
type Engine struct {
	orders    OrderRepo
	merchants MerchantRepo
	bus       *bus.Bus
	relay     events.Publisher
	logger    apt.Logger
}

type EngineDeps struct {
	Orders    OrderRepo
	Merchants MerchantRepo
	Bus       *bus.Bus
	// Relay optionally mirrors every published event to an external broker.
	// The in-process bus remains the delivery path for streams.
	Relay events.Publisher
}

func NewEngine(deps EngineDeps, logger apt.Logger) *Engine {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Engine{
		orders:    deps.Orders,
		merchants: deps.Merchants,
		bus:       deps.Bus,
		relay:     deps.Relay,
		logger:    logger,
	}
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	MerchantID     uuid.UUID
	ConsumerID     uuid.UUID
	Items          []LineItem
	TableNumber    string
	PickupMethodID string
	Note           string
}

// CreateOrder validates the input against the merchant's current state,
// persists a pending order and publishes a created event.
func (e *Engine) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	merchant, err := e.merchants.Get(ctx, in.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("cannot load merchant: %w", err)
	}
	if merchant == nil {
		return nil, &NotFoundError{Resource: "merchant"}
	}
	if !merchant.AcceptingOrders() {
		return nil, &PreconditionFailedError{Reason: "merchant is not accepting orders"}
	}

	method := merchant.PickupMethod(in.PickupMethodID)
	if method == nil || !method.Enabled {
		return nil, &PreconditionFailedError{Reason: "pickup method is not available for this merchant"}
	}
	if method.RequiresTable && in.TableNumber == "" {
		return nil, &PreconditionFailedError{Reason: "pickup method requires a table number"}
	}

	order := NewOrder(in.MerchantID, in.ConsumerID, in.Items)
	order.TableNumber = in.TableNumber
	order.PickupMethodID = in.PickupMethodID
	order.Note = in.Note

	if err := e.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("cannot create order: %w", err)
	}

	e.publish(ctx, event.EventOrderCreated, order)
	return order, nil
}

// TransitionStatus moves an order along the state machine on behalf of its
// merchant. Illegal requests leave the order untouched and publish nothing.
func (e *Engine) TransitionStatus(ctx context.Context, orderID uuid.UUID, requested Status, actingMerchantID uuid.UUID) (*Order, error) {
	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.MerchantID != actingMerchantID {
		return nil, &AuthorizationError{Reason: "order belongs to another merchant"}
	}

	return e.applyTransition(ctx, order, requested)
}

// CancelOrder is the consumer's single edge of the machine: pending to
// cancelled. Once a merchant accepted, the consumer can no longer cancel.
func (e *Engine) CancelOrder(ctx context.Context, orderID, actingConsumerID uuid.UUID) (*Order, error) {
	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ConsumerID != actingConsumerID {
		return nil, &AuthorizationError{Reason: "order belongs to another consumer"}
	}
	if order.Status != StatusPending {
		return nil, newInvalidTransition(order.Status, StatusCancelled)
	}

	return e.applyTransition(ctx, order, StatusCancelled)
}

// UpdateNote changes the free-text note of a still-pending order and
// publishes an updated event.
func (e *Engine) UpdateNote(ctx context.Context, orderID, actingConsumerID uuid.UUID, note string) (*Order, error) {
	order, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ConsumerID != actingConsumerID {
		return nil, &AuthorizationError{Reason: "order belongs to another consumer"}
	}
	if order.Status != StatusPending {
		return nil, &PreconditionFailedError{Reason: "order can no longer be edited"}
	}

	order.Note = note
	order.BeforeUpdate()
	if err := e.orders.Save(ctx, order, order.Status); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, &PreconditionFailedError{Reason: "order can no longer be edited"}
		}
		return nil, fmt.Errorf("cannot save order: %w", err)
	}

	e.publish(ctx, event.EventOrderUpdated, order)
	return order, nil
}

// GetOrder loads one order.
func (e *Engine) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return e.loadOrder(ctx, orderID)
}

// ListMerchantOrders lists a merchant's orders, optionally filtered by
// status ("" means all).
func (e *Engine) ListMerchantOrders(ctx context.Context, merchantID uuid.UUID, status Status) ([]*Order, error) {
	orders, err := e.orders.ListByMerchant(ctx, merchantID, status)
	if err != nil {
		return nil, fmt.Errorf("cannot list merchant orders: %w", err)
	}
	return orders, nil
}

// ListConsumerOrders lists every order a consumer has placed.
func (e *Engine) ListConsumerOrders(ctx context.Context, consumerID uuid.UUID) ([]*Order, error) {
	orders, err := e.orders.ListByConsumer(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("cannot list consumer orders: %w", err)
	}
	return orders, nil
}

func (e *Engine) loadOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("cannot load order: %w", err)
	}
	if order == nil {
		return nil, &NotFoundError{Resource: "order"}
	}
	return order, nil
}

// applyTransition performs the shared legality check, stamp, persist and
// publish sequence. The persisted status is the arbiter under concurrent
// transitions: Save carries the status the caller read, and a conflict is
// reported as an invalid transition from the freshly persisted status.
func (e *Engine) applyTransition(ctx context.Context, order *Order, requested Status) (*Order, error) {
	current := order.Status
	if !current.CanTransitionTo(requested) {
		return nil, newInvalidTransition(current, requested)
	}

	order.recordStatus(requested, time.Now())

	if err := e.orders.Save(ctx, order, current); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			fresh, getErr := e.orders.Get(ctx, order.ID)
			if getErr != nil || fresh == nil {
				return nil, newInvalidTransition(current, requested)
			}
			return nil, newInvalidTransition(fresh.Status, requested)
		}
		return nil, fmt.Errorf("cannot save order: %w", err)
	}

	e.publish(ctx, event.EventOrderStatusChanged, order)
	return order, nil
}

// publish fans the event out to the merchant, order and consumer topics,
// then mirrors it to the relay when one is configured. Bus listeners never
// see a publish failure; relay failures are logged and dropped.
func (e *Engine) publish(ctx context.Context, kind string, order *Order) {
	evt := &event.OrderEvent{
		Type:       kind,
		OccurredAt: time.Now(),
		OrderID:    order.ID,
		MerchantID: order.MerchantID,
		ConsumerID: order.ConsumerID,
		Data:       order.Snapshot(),
	}

	e.bus.Publish(event.MerchantTopic(order.MerchantID), evt)
	e.bus.Publish(event.OrderTopic(order.ID), evt)
	e.bus.Publish(event.ConsumerTopic(order.ConsumerID), evt)

	if e.relay != nil {
		payload, err := json.Marshal(evt)
		if err != nil {
			e.logger.Errorf("cannot marshal relay event: %v", err)
			return
		}
		if err := e.relay.Publish(ctx, event.RelaySubject, payload); err != nil {
			e.logger.Errorf("cannot relay %s event: %v", kind, err)
		}
	}
}

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return &ValidationError{Reason: "order must contain at least one item"}
	}
	for i, item := range items {
		if item.Name == "" {
			return &ValidationError{Reason: fmt.Sprintf("item %d has no name", i)}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Reason: fmt.Sprintf("item %q has non-positive quantity", item.Name)}
		}
		if item.Price < 0 {
			return &ValidationError{Reason: fmt.Sprintf("item %q has negative price", item.Name)}
		}
	}
	return nil
}
