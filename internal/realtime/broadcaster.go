package realtime

import (
	"context"

	"github.com/tripnest/backend/internal/models"
)

// EventBookingCreated is pushed to AdminRoom for every confirmed booking. The
// payload is the booking itself, persons snapshot included.
const EventBookingCreated = "booking_created"

// BookingBroadcaster pushes confirmed bookings to connected staff.
// It satisfies bookings.Hook.
type BookingBroadcaster struct {
	hub *Hub
}

// NewBookingBroadcaster creates a broadcaster over hub.
func NewBookingBroadcaster(hub *Hub) *BookingBroadcaster {
	return &BookingBroadcaster{hub: hub}
}

// BookingConfirmed publishes booking to AdminRoom.
func (b *BookingBroadcaster) BookingConfirmed(ctx context.Context, booking *models.Booking) error {
	return b.hub.Publish(ctx, AdminRoom, EventBookingCreated, booking)
}
