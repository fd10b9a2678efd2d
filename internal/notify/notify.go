// Package notify tells staff about confirmed bookings.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/models"
)

// Channel delivers one booking notice to one recipient.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient models.User, b *models.Booking) error
}

// Recipients lists users by role.
type Recipients interface {
	ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error)
}

// StaffNotifier sends every confirmed booking to all admin and superadmin
// users over each configured channel. It satisfies bookings.Hook.
type StaffNotifier struct {
	users    Recipients
	channels []Channel
	logger   *zap.Logger
}

// NewStaffNotifier creates a notifier over channels.
func NewStaffNotifier(users Recipients, logger *zap.Logger, channels ...Channel) *StaffNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffNotifier{users: users, channels: channels, logger: logger}
}

// BookingConfirmed fans b out to staff. A failing recipient or channel does
// not stop the others; all failures are returned joined.
func (n *StaffNotifier) BookingConfirmed(ctx context.Context, b *models.Booking) error {
	if b == nil {
		return nil
	}
	staff, err := n.users.ListByRoles(ctx, models.StaffRoles...)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	if len(staff) == 0 {
		n.logger.Warn("no staff to notify", zap.String("booking_id", b.ID.String()))
		return nil
	}

	var errs []error
	sent := 0
	for _, u := range staff {
		for _, ch := range n.channels {
			if err := ch.Send(ctx, u, b); err != nil {
				n.logger.Error("staff notification failed",
					zap.String("channel", ch.Name()),
					zap.String("user_id", u.ID.String()),
					zap.String("booking_id", b.ID.String()),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("%s to %s: %w", ch.Name(), u.Email, err))
				continue
			}
			sent++
		}
	}
	n.logger.Info("staff notified",
		zap.String("booking_id", b.ID.String()),
		zap.Int("recipients", len(staff)),
		zap.Int("sent", sent))
	return errors.Join(errs...)
}
