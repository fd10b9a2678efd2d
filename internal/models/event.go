package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a bookable trip. AvailableSlots is the authoritative seat counter.
type Event struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	AvailableSlots int       `json:"available_slots"`
	BasePrice      int64     `json:"base_price"` // minor units per seat
	Currency       string    `json:"currency"`
	StartsAt       time.Time `json:"starts_at"`
	MinAge         int       `json:"min_age"`
	MaxAge         int       `json:"max_age"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SlotStatus is the booking state of an EventSlot. Booked is terminal.
type SlotStatus string

const (
	SlotStatusPending SlotStatus = "pending"
	SlotStatusBooked  SlotStatus = "booked"
)

// EventSlot is one group booking attempt against an event.
type EventSlot struct {
	ID          uuid.UUID       `json:"id"`
	EventID     uuid.UUID       `json:"event_id"`
	Status      SlotStatus      `json:"status"`
	Slots       int             `json:"slots"`
	TotalAmount int64           `json:"total_amount"`
	Persons     []Traveler      `json:"persons"`
	PaymentInfo json.RawMessage `json:"payment_info,omitempty"`
	OrderID     string          `json:"order_id,omitempty"` // latest order issued
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SlotOrder is one gateway order issued for a slot. A slot collects one per
// checkout attempt.
type SlotOrder struct {
	OrderID   string    `json:"order_id"`
	EventID   uuid.UUID `json:"event_id"`
	SlotID    uuid.UUID `json:"slot_id"`
	Amount    int64     `json:"amount"` // minor units
	CreatedAt time.Time `json:"created_at"`
}

// Booked reports whether the slot has been finalized.
func (s *EventSlot) Booked() bool { return s.Status == SlotStatusBooked }
