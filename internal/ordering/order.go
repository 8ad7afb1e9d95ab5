package ordering

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"

	"github.com/curbsidehq/curbside/pkg/event"
)

// Order is the authoritative record of one consumer order at a merchant.
// Identity and the merchant/consumer association never change after
// creation; Total is computed once at creation and never mutated.
type Order struct {
	ID             uuid.UUID     `json:"id" bson:"_id"`
	MerchantID     uuid.UUID     `json:"merchant_id" bson:"merchant_id"`
	ConsumerID     uuid.UUID     `json:"consumer_id" bson:"consumer_id"`
	Items          []LineItem    `json:"items" bson:"items"`
	TableNumber    string        `json:"table_number,omitempty" bson:"table_number,omitempty"`
	PickupMethodID string        `json:"pickup_method_id" bson:"pickup_method_id"`
	Note           string        `json:"note,omitempty" bson:"note,omitempty"`
	Total          float64       `json:"total" bson:"total"`
	Status         Status        `json:"status" bson:"status"`
	StatusHistory  []StatusEntry `json:"status_history" bson:"status_history"`

	AcceptedAt  *time.Time `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty" bson:"preparing_at,omitempty"`
	ReadyAt     *time.Time `json:"ready_at,omitempty" bson:"ready_at,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty" bson:"picked_up_at,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// LineItem is one ordered line. Stations are kitchen routing tags; an item
// with no tags is shown on every station.
type LineItem struct {
	Name     string   `json:"name" bson:"name"`
	Quantity int      `json:"quantity" bson:"quantity"`
	Price    float64  `json:"price" bson:"price"`
	Note     string   `json:"note,omitempty" bson:"note,omitempty"`
	Stations []string `json:"stations,omitempty" bson:"stations,omitempty"`
}

// StatusEntry is one append-only history record. The last entry's status
// always equals the order's current status.
type StatusEntry struct {
	Status Status    `json:"status" bson:"status"`
	At     time.Time `json:"at" bson:"at"`
}

// Subtotal is price times quantity for this line.
func (i LineItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// NewOrder builds a pending order for the given parties, computes the total
// and seeds the status history.
func NewOrder(merchantID, consumerID uuid.UUID, items []LineItem) *Order {
	o := &Order{
		ID:         apt.GenerateNewID(),
		MerchantID: merchantID,
		ConsumerID: consumerID,
		Items:      items,
	}
	o.BeforeCreate()

	for _, item := range items {
		o.Total += item.Subtotal()
	}
	o.recordStatus(StatusPending, o.CreatedAt)
	return o
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func (o *Order) SetID(id uuid.UUID) {
	o.ID = id
}

func (o *Order) ResourceType() string {
	return "order"
}

func (o *Order) EnsureID() {
	if o.ID == uuid.Nil {
		o.ID = apt.GenerateNewID()
	}
}

func (o *Order) BeforeCreate() {
	o.EnsureID()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

// recordStatus moves the order to status at the given instant: it sets the
// current status, appends the history entry, stamps the per-status
// timestamp and touches UpdatedAt. Legality of the move is the engine's
// concern, not the record's.
func (o *Order) recordStatus(status Status, at time.Time) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: status, At: at})
	o.UpdatedAt = at

	switch status {
	case StatusAccepted:
		o.AcceptedAt = &at
	case StatusPreparing:
		o.PreparingAt = &at
	case StatusReady:
		o.ReadyAt = &at
	case StatusPickedUp:
		o.PickedUpAt = &at
	}
}

// Snapshot copies the order's full field set for event delivery.
func (o *Order) Snapshot() *event.OrderSnapshot {
	items := make([]event.ItemSnapshot, len(o.Items))
	for i, item := range o.Items {
		items[i] = event.ItemSnapshot{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Note:     item.Note,
			Stations: append([]string(nil), item.Stations...),
		}
	}

	history := make([]event.StatusChange, len(o.StatusHistory))
	for i, entry := range o.StatusHistory {
		history[i] = event.StatusChange{Status: string(entry.Status), At: entry.At}
	}

	return &event.OrderSnapshot{
		ID:             o.ID,
		MerchantID:     o.MerchantID,
		ConsumerID:     o.ConsumerID,
		Items:          items,
		TableNumber:    o.TableNumber,
		PickupMethodID: o.PickupMethodID,
		Note:           o.Note,
		Total:          o.Total,
		Status:         string(o.Status),
		StatusHistory:  history,
		AcceptedAt:     o.AcceptedAt,
		PreparingAt:    o.PreparingAt,
		ReadyAt:        o.ReadyAt,
		PickedUpAt:     o.PickedUpAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
