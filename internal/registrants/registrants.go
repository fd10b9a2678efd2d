// Package registrants stores travelers before and after payment.
package registrants

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
)

// Store is the transaction-scoped view used while finalizing a booking.
type Store interface {
	ListPending(ctx context.Context, eventID, slotID uuid.UUID, orderID string) ([]models.PendingRegistrant, error)
	MarkConfirmed(ctx context.Context, registrantID uuid.UUID, paymentID string) error
	CreateConfirmed(ctx context.Context, eventID, slotID uuid.UUID, paymentID string, t models.Traveler) (*models.Registrant, error)
}

// Promote confirms the pending travelers submitted with the paid order, one
// confirmed registrant per pending row. Rows of other order attempts on the
// same slot stay pending. When the order has no pending rows the fallback
// travelers are recorded as confirmed instead. Any error must abort the
// surrounding finalize transaction.
func Promote(ctx context.Context, s Store, eventID, slotID uuid.UUID, orderID, paymentID string, fallback []models.Traveler) ([]models.Registrant, error) {
	pending, err := s.ListPending(ctx, eventID, slotID, orderID)
	if err != nil {
		return nil, fmt.Errorf("list pending registrants: %w", err)
	}

	var out []models.Registrant
	if len(pending) == 0 {
		if len(fallback) == 0 {
			return nil, apperror.Validation("no travelers recorded for slot")
		}
		for _, t := range fallback {
			r, err := s.CreateConfirmed(ctx, eventID, slotID, paymentID, t)
			if err != nil {
				return nil, fmt.Errorf("create registrant: %w", err)
			}
			out = append(out, *r)
		}
		return out, nil
	}

	for _, p := range pending {
		r, err := s.CreateConfirmed(ctx, eventID, slotID, paymentID, p.Traveler)
		if err != nil {
			return nil, fmt.Errorf("create registrant: %w", err)
		}
		out = append(out, *r)
		if err := s.MarkConfirmed(ctx, p.ID, paymentID); err != nil {
			return nil, fmt.Errorf("confirm pending registrant %s: %w", p.ID, err)
		}
	}
	return out, nil
}

// Travelers extracts the contact data of confirmed registrants.
func Travelers(rs []models.Registrant) []models.Traveler {
	out := make([]models.Traveler, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Traveler)
	}
	return out
}
