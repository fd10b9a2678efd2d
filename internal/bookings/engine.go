// Package bookings finalizes paid slots into bookings and reverses them on refund.
package bookings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/inventory"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/internal/registrants"
	"github.com/tripnest/backend/pkg/apperror"
)

const defaultHookTimeout = 15 * time.Second

// FinalizeInput is a verified payment for a slot.
type FinalizeInput struct {
	EventID     uuid.UUID
	SlotID      uuid.UUID
	PaymentID   string
	OrderID     string
	AmountMinor int64 // zero means the slot total
	Currency    string
	Method      string
	Raw         json.RawMessage
	Travelers   []models.Traveler // used only when the order has no pending travelers
	// SignedNotes is set when the event and slot ids come from notes covered
	// by the webhook signature. Otherwise the order must be one issued for the slot.
	SignedNotes bool
}

// FinalizeResult is the slot's booking. Created is false when the slot had
// already been finalized by an earlier call.
type FinalizeResult struct {
	Booking *models.Booking
	Created bool
}

// Engine applies the pending→booked transition and its reversal.
type Engine struct {
	store       Store
	gateway     RefundGateway
	ledger      *inventory.Ledger
	hooks       []Hook
	hookTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// NewEngine creates an engine. Hooks run in registration order after commit.
func NewEngine(store Store, gw RefundGateway, logger *zap.Logger, hooks ...Hook) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:       store,
		gateway:     gw,
		ledger:      inventory.NewLedger(logger),
		hooks:       hooks,
		hookTimeout: defaultHookTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// Register appends a post-commit hook. Not safe to call while serving.
func (e *Engine) Register(h Hook) {
	e.hooks = append(e.hooks, h)
}

// Finalize books the slot exactly once. The slot row stays locked from the
// status check until commit, so a concurrent call for the same slot waits and
// then observes the booking. Every mutation rolls back together on error.
func (e *Engine) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	if in.EventID == uuid.Nil || in.SlotID == uuid.Nil {
		return nil, apperror.Validation("event id and slot id are required")
	}
	if in.PaymentID == "" {
		return nil, apperror.Validation("payment id is required")
	}

	log := e.logger.With(
		zap.String("event_id", in.EventID.String()),
		zap.String("slot_id", in.SlotID.String()),
		zap.String("payment_id", in.PaymentID))

	var res FinalizeResult
	err := e.store.InTx(ctx, func(tx Tx) error {
		slot, err := tx.LockSlot(ctx, in.SlotID)
		if err != nil {
			return err
		}
		if slot.EventID != in.EventID {
			return apperror.NotFound("slot not found")
		}

		if slot.Booked() {
			b, err := tx.GetBookingBySlot(ctx, slot.ID)
			if err != nil {
				return fmt.Errorf("load existing booking: %w", err)
			}
			res = FinalizeResult{Booking: b}
			return nil
		}

		if !in.SignedNotes {
			ok, err := tx.SlotHasOrder(ctx, slot.ID, in.OrderID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Validation("payment order does not belong to this slot")
			}
		}

		amount := in.AmountMinor
		if amount == 0 {
			amount = slot.TotalAmount
		} else if amount != slot.TotalAmount {
			log.Warn("captured amount differs from slot total",
				zap.Int64("captured", amount),
				zap.Int64("total", slot.TotalAmount))
		}

		raw := in.Raw
		if len(raw) == 0 {
			raw = json.RawMessage(`{}`)
		}
		if err := tx.MarkSlotBooked(ctx, slot.ID, raw); err != nil {
			return fmt.Errorf("mark slot booked: %w", err)
		}
		if _, err := e.ledger.Decrement(ctx, tx, slot.EventID, slot.Slots); err != nil {
			return fmt.Errorf("decrement availability: %w", err)
		}
		fallback := in.Travelers
		if len(fallback) == 0 {
			fallback = slot.Persons
		}
		confirmed, err := registrants.Promote(ctx, tx, slot.EventID, slot.ID, in.OrderID, in.PaymentID, fallback)
		if err != nil {
			return err
		}

		booking := &models.Booking{
			EventID:        slot.EventID,
			SlotID:         slot.ID,
			Persons:        registrants.Travelers(confirmed),
			PaymentID:      in.PaymentID,
			PaymentStatus:  models.PaymentStatusPaid,
			PaymentMethod:  in.Method,
			PaymentDetails: raw,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		payment := &models.Payment{
			EventID:   slot.EventID,
			SlotID:    slot.ID,
			Amount:    amount,
			Currency:  in.Currency,
			PaymentID: in.PaymentID,
			OrderID:   in.OrderID,
			Status:    models.PaymentStatusPaid,
			Method:    in.Method,
			Details:   raw,
		}
		if err := tx.UpsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("upsert payment: %w", err)
		}

		res = FinalizeResult{Booking: booking, Created: true}
		return nil
	})
	if err != nil {
		log.Error("finalize booking failed", zap.Error(err))
		return nil, err
	}

	if !res.Created {
		log.Info("slot already finalized", zap.String("booking_id", res.Booking.ID.String()))
		return &res, nil
	}
	log.Info("booking finalized",
		zap.String("booking_id", res.Booking.ID.String()),
		zap.Int("travelers", len(res.Booking.Persons)))
	e.runHooks(ctx, res.Booking)
	return &res, nil
}

func (e *Engine) runHooks(ctx context.Context, b *models.Booking) {
	ctx = context.WithoutCancel(ctx)
	for i, h := range e.hooks {
		if err := e.runHook(ctx, h, b); err != nil {
			e.logger.Error("booking hook failed",
				zap.Int("hook", i),
				zap.String("booking_id", b.ID.String()),
				zap.Error(err))
		}
	}
}

func (e *Engine) runHook(ctx context.Context, h Hook, b *models.Booking) (err error) {
	ctx, cancel := context.WithTimeout(ctx, e.hookTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return h.BookingConfirmed(ctx, b)
}
