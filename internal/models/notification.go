package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationTypeBookingCreated marks in-app notifications for new bookings.
const NotificationTypeBookingCreated = "booking_created"

// Notification is a durable in-app message for one staff user.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
