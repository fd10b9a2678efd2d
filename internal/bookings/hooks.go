package bookings

import (
	"context"

	"github.com/tripnest/backend/internal/models"
)

// Hook runs after a booking has been committed. It is called once per booking
// and its failure never affects the booking.
type Hook interface {
	BookingConfirmed(ctx context.Context, b *models.Booking) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, b *models.Booking) error

// BookingConfirmed calls f.
func (f HookFunc) BookingConfirmed(ctx context.Context, b *models.Booking) error {
	return f(ctx, b)
}
