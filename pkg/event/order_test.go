package event

import (
	"testing"

	"github.com/google/uuid"
)

func TestTopics(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440020")

	if got := MerchantTopic(id); got != "merchant:"+id.String() {
		t.Errorf("MerchantTopic() = %q", got)
	}
	if got := OrderTopic(id); got != "order:"+id.String() {
		t.Errorf("OrderTopic() = %q", got)
	}
	if got := ConsumerTopic(id); got != "user:"+id.String() {
		t.Errorf("ConsumerTopic() = %q", got)
	}
}

func TestItemSnapshotRelevantToStation(t *testing.T) {
	tests := []struct {
		name     string
		stations []string
		station  string
		want     bool
	}{
		{
			name:    "untaggedBroadcastsEverywhere",
			station: "grill",
			want:    true,
		},
		{
			name:     "matchingTag",
			stations: []string{"fryer", "grill"},
			station:  "grill",
			want:     true,
		},
		{
			name:     "noMatchingTag",
			stations: []string{"fryer"},
			station:  "grill",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ItemSnapshot{Name: "Item", Quantity: 1, Stations: tt.stations}
			if got := item.RelevantToStation(tt.station); got != tt.want {
				t.Errorf("RelevantToStation(%q) = %v, want %v", tt.station, got, tt.want)
			}
		})
	}
}

func TestOrderSnapshotHasStationItem(t *testing.T) {
	snapshot := &OrderSnapshot{
		Items: []ItemSnapshot{
			{Name: "Fries", Quantity: 1, Stations: []string{"fryer"}},
			{Name: "Carne Asada", Quantity: 1, Stations: []string{"grill"}},
		},
	}

	if !snapshot.HasStationItem("grill") {
		t.Error("HasStationItem(grill) = false, want true")
	}
	if snapshot.HasStationItem("dessert") {
		t.Error("HasStationItem(dessert) = true, want false")
	}

	empty := &OrderSnapshot{}
	if empty.HasStationItem("grill") {
		t.Error("an order with no items is relevant to no station")
	}
}
