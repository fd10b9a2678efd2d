// Package inventory keeps the per-event seat counter.
package inventory

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnest/backend/pkg/apperror"
)

// Counter reads and writes an event's available seats inside a transaction.
// AvailableSlots must lock the event row until the transaction ends.
type Counter interface {
	AvailableSlots(ctx context.Context, eventID uuid.UUID) (int, error)
	SetAvailableSlots(ctx context.Context, eventID uuid.UUID, n int) error
}

// Ledger applies seat consumption and restoration to an event counter.
type Ledger struct {
	logger *zap.Logger
}

// NewLedger creates a Ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{logger: logger}
}

// Decrement consumes seats and returns the new availability, clamped at zero.
// Consumption beyond availability is logged, not rejected.
func (l *Ledger) Decrement(ctx context.Context, c Counter, eventID uuid.UUID, consumed int) (int, error) {
	if consumed < 1 {
		return 0, apperror.Validation("consumed seats must be at least 1")
	}
	current, err := c.AvailableSlots(ctx, eventID)
	if err != nil {
		return 0, err
	}
	next := current - consumed
	if next < 0 {
		l.logger.Warn("seat consumption exceeds availability",
			zap.String("event_id", eventID.String()),
			zap.Int("available", current),
			zap.Int("consumed", consumed))
		next = 0
	}
	if err := c.SetAvailableSlots(ctx, eventID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Restore returns seats to the event. There is no upper cap.
func (l *Ledger) Restore(ctx context.Context, c Counter, eventID uuid.UUID, consumed int) (int, error) {
	if consumed < 1 {
		return 0, apperror.Validation("restored seats must be at least 1")
	}
	current, err := c.AvailableSlots(ctx, eventID)
	if err != nil {
		return 0, err
	}
	next := current + consumed
	if err := c.SetAvailableSlots(ctx, eventID, next); err != nil {
		return 0, err
	}
	return next, nil
}
