package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus for event payments. Paid moves to refunded once and never back.
const (
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// Payment is the money ledger row for a finalized slot, keyed by the gateway payment id.
type Payment struct {
	ID         uuid.UUID       `json:"id"`
	EventID    uuid.UUID       `json:"event_id"`
	SlotID     uuid.UUID       `json:"slot_id"`
	Amount     int64           `json:"amount"` // minor units
	Currency   string          `json:"currency"`
	PaymentID  string          `json:"payment_id"`
	OrderID    string          `json:"order_id,omitempty"`
	Status     string          `json:"status"`
	Method     string          `json:"method,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	RefundedAt *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
