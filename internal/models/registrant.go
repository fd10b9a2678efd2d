package models

import (
	"time"

	"github.com/google/uuid"
)

// Traveler is the contact data submitted for one person on a booking.
type Traveler struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
}

// RegistrantStatus of a pending traveler row.
type RegistrantStatus string

const (
	RegistrantStatusPending   RegistrantStatus = "pending"
	RegistrantStatusConfirmed RegistrantStatus = "confirmed"
)

// PendingRegistrant is a traveler recorded before payment, tagged with the
// gateway order it was submitted with. Rows are never deleted.
type PendingRegistrant struct {
	ID      uuid.UUID `json:"id"`
	EventID uuid.UUID `json:"event_id"`
	SlotID  uuid.UUID `json:"slot_id"`
	OrderID string    `json:"order_id"`
	Traveler
	Status    RegistrantStatus `json:"status"`
	PaymentID *string          `json:"payment_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Registrant is a confirmed traveler, created only when a booking is finalized.
type Registrant struct {
	ID      uuid.UUID `json:"id"`
	EventID uuid.UUID `json:"event_id"`
	SlotID  uuid.UUID `json:"slot_id"`
	Traveler
	PaymentID string    `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}
