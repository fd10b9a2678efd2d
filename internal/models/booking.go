package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Booking is the append-only record of a paid slot. At most one per slot.
type Booking struct {
	ID             uuid.UUID       `json:"id"`
	EventID        uuid.UUID       `json:"event_id"`
	SlotID         uuid.UUID       `json:"slot_id"`
	Persons        []Traveler      `json:"persons"`
	PaymentID      string          `json:"payment_id"`
	PaymentStatus  string          `json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
