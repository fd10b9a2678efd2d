package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailTypeBookingConfirmed is the staff email sent after a booking is finalized.
const EmailTypeBookingConfirmed = "booking_confirmed"

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records one delivery attempt of a queued email.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	BookingID      *uuid.UUID `json:"booking_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
