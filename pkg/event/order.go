package event

import (
	"time"

	"github.com/google/uuid"
)

const (
	// Event kinds carried on the in-process bus and over the SSE wire.
	EventOrderCreated       = "created"
	EventOrderStatusChanged = "status_changed"
	EventOrderUpdated       = "updated"

	// EventConnected is the acknowledgment frame sent when a stream opens.
	// It is never published on the bus.
	EventConnected = "connected"

	// RelaySubject is the NATS subject order events are mirrored to for
	// off-process consumers (ops dashboards, analytics).
	RelaySubject = "orders.events"
)

// MerchantTopic is the bus topic every event about one merchant's orders goes to.
func MerchantTopic(merchantID uuid.UUID) string {
	return "merchant:" + merchantID.String()
}

// OrderTopic scopes events to a single order; consumer streams listen here.
func OrderTopic(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

// ConsumerTopic scopes events to everything owned by one consumer.
func ConsumerTopic(consumerID uuid.UUID) string {
	return "user:" + consumerID.String()
}

// OrderEvent describes one order state change. It exists only while being
// dispatched; nothing persists it.
type OrderEvent struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	OrderID    uuid.UUID      `json:"order_id"`
	MerchantID uuid.UUID      `json:"merchant_id"`
	ConsumerID uuid.UUID      `json:"consumer_id"`
	Data       *OrderSnapshot `json:"data,omitempty"`
}

// OrderSnapshot is a point-in-time copy of an order's fields, attached to an
// event so subscribers never have to re-query the store.
type OrderSnapshot struct {
	ID             uuid.UUID      `json:"id"`
	MerchantID     uuid.UUID      `json:"merchant_id"`
	ConsumerID     uuid.UUID      `json:"consumer_id"`
	Items          []ItemSnapshot `json:"items"`
	TableNumber    string         `json:"table_number,omitempty"`
	PickupMethodID string         `json:"pickup_method_id"`
	Note           string         `json:"note,omitempty"`
	Total          float64        `json:"total"`
	Status         string         `json:"status"`
	StatusHistory  []StatusChange `json:"status_history"`
	AcceptedAt     *time.Time     `json:"accepted_at,omitempty"`
	PreparingAt    *time.Time     `json:"preparing_at,omitempty"`
	ReadyAt        *time.Time     `json:"ready_at,omitempty"`
	PickedUpAt     *time.Time     `json:"picked_up_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ItemSnapshot mirrors one order line item.
type ItemSnapshot struct {
	Name     string   `json:"name"`
	Quantity int      `json:"quantity"`
	Price    float64  `json:"price"`
	Note     string   `json:"note,omitempty"`
	Stations []string `json:"stations,omitempty"`
}

// StatusChange is one entry of an order's status history.
type StatusChange struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// RelevantToStation reports whether this item belongs on the given station's
// screen. Items without routing tags broadcast to every station.
func (i ItemSnapshot) RelevantToStation(station string) bool {
	if len(i.Stations) == 0 {
		return true
	}
	for _, s := range i.Stations {
		if s == station {
			return true
		}
	}
	return false
}

// HasStationItem reports whether at least one item of the snapshot is
// relevant to the given station.
func (s *OrderSnapshot) HasStationItem(station string) bool {
	for _, item := range s.Items {
		if item.RelevantToStation(station) {
			return true
		}
	}
	return false
}
