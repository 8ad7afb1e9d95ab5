package ordering

import (
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// Merchant is the vendor-side view the engine needs to admit orders. Account
// management (registration, moderation bookkeeping) lives elsewhere; this
// record only answers "may this merchant take an order right now".
type Merchant struct {
	ID            uuid.UUID      `json:"id" bson:"_id"`
	Name          string         `json:"name" bson:"name"`
	Online        bool           `json:"online" bson:"online"`
	Banned        bool           `json:"banned" bson:"banned"`
	Suspended     bool           `json:"suspended" bson:"suspended"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	PickupMethods []PickupMethod `json:"pickup_methods" bson:"pickup_methods"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

// PickupMethod is one way a merchant hands food over (counter pickup,
// table delivery, curbside). RequiresTable forces the order to carry a
// table/seat identifier.
type PickupMethod struct {
	ID            string `json:"id" bson:"id"`
	Name          string `json:"name" bson:"name"`
	Enabled       bool   `json:"enabled" bson:"enabled"`
	RequiresTable bool   `json:"requires_table" bson:"requires_table"`
}

func (m *Merchant) GetID() uuid.UUID {
	return m.ID
}

func (m *Merchant) SetID(id uuid.UUID) {
	m.ID = id
}

func (m *Merchant) ResourceType() string {
	return "merchant"
}

func (m *Merchant) EnsureID() {
	if m.ID == uuid.Nil {
		m.ID = apt.GenerateNewID()
	}
}

func (m *Merchant) BeforeCreate() {
	m.EnsureID()
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()
}

func (m *Merchant) BeforeUpdate() {
	m.UpdatedAt = time.Now()
}

// AcceptingOrders reports whether the merchant may take new orders: online,
// in good standing and not past its account expiry.
func (m *Merchant) AcceptingOrders() bool {
	if !m.Online || m.Banned || m.Suspended {
		return false
	}
	if m.ExpiresAt != nil && m.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// PickupMethod returns the merchant's method with the given id, or nil.
func (m *Merchant) PickupMethod(id string) *PickupMethod {
	for i := range m.PickupMethods {
		if m.PickupMethods[i].ID == id {
			return &m.PickupMethods[i]
		}
	}
	return nil
}
