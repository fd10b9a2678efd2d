package bookings

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripnest/backend/internal/gateway"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
)

// Payload sources used when archiving raw provider data.
const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
)

// CreateSlotInput reserves nothing; it prices a group and records its travelers.
type CreateSlotInput struct {
	Slots   int
	Persons []models.Traveler
}

// OrderInput is a request to pay for a pending slot. Amount is in major units.
type OrderInput struct {
	SlotID  uuid.UUID
	Amount  string
	Persons []models.Traveler
}

// VerifyInput is the checkout callback relayed by the client.
type VerifyInput struct {
	SlotID    uuid.UUID
	PaymentID string
	OrderID   string
	Signature string
	Amount    string
	Persons   []models.Traveler
}

// Service runs the booking flow on top of the engine.
type Service struct {
	store    Store
	engine   *Engine
	gateway  OrderGateway
	archiver Archiver
	logger   *zap.Logger
}

// NewService creates a booking service. archiver may be nil.
func NewService(store Store, engine *Engine, gw OrderGateway, archiver Archiver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, engine: engine, gateway: gw, archiver: archiver, logger: logger}
}

// Engine returns the finalization engine.
func (s *Service) Engine() *Engine { return s.engine }

// CreateSlot prices a new pending slot at base price times seats. Seats beyond
// current availability are rejected; availability itself is not touched.
func (s *Service) CreateSlot(ctx context.Context, eventID uuid.UUID, in CreateSlotInput) (*models.EventSlot, error) {
	if in.Slots < 1 {
		return nil, apperror.Validation("slots must be at least 1")
	}
	if len(in.Persons) > 0 && len(in.Persons) != in.Slots {
		return nil, apperror.Validation("persons must match slots")
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if in.Slots > ev.AvailableSlots {
		return nil, apperror.Validation("not enough seats available")
	}
	persons := in.Persons
	if persons == nil {
		persons = []models.Traveler{}
	}
	slot := &models.EventSlot{
		EventID:     ev.ID,
		Status:      models.SlotStatusPending,
		Slots:       in.Slots,
		TotalAmount: ev.BasePrice * int64(in.Slots),
		Persons:     persons,
	}
	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	s.logger.Info("slot created",
		zap.String("event_id", eventID.String()),
		zap.String("slot_id", slot.ID.String()),
		zap.Int("slots", slot.Slots))
	return slot, nil
}

// GetSlot returns a slot of the event.
func (s *Service) GetSlot(ctx context.Context, eventID, slotID uuid.UUID) (*models.EventSlot, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.EventID != eventID {
		return nil, apperror.NotFound("slot not found")
	}
	return slot, nil
}

// CreateOrder opens a provider order for the slot total and records it with
// the submitted travelers as pending. Every order issued for a slot stays
// payable until the slot is booked; finalize promotes only the travelers of
// the order that was paid. A provider failure records nothing.
func (s *Service) CreateOrder(ctx context.Context, eventID uuid.UUID, in OrderInput) (*gateway.Order, error) {
	amount, err := gateway.ToMinorUnits(in.Amount)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	slot, err := s.GetSlot(ctx, eventID, in.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.Booked() {
		return nil, apperror.AlreadyFinalized("slot is already booked")
	}
	if len(in.Persons) != slot.Slots {
		return nil, apperror.Validation("persons must match booked slots")
	}
	if amount != slot.TotalAmount {
		return nil, apperror.Validation("amount does not match slot total")
	}

	currency := ev.Currency
	if currency == "" {
		currency = s.gateway.Currency()
	}
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		AmountMinor: amount,
		Currency:    currency,
		Receipt:     slot.ID.String(),
		Notes:       gateway.NotesFor(eventID, slot.ID),
	})
	if err != nil {
		return nil, err
	}

	rec := &models.SlotOrder{OrderID: order.ID, EventID: eventID, SlotID: slot.ID, Amount: amount}
	if _, err := s.store.RecordOrder(ctx, rec, in.Persons); err != nil {
		s.logger.Error("record order failed",
			zap.String("slot_id", slot.ID.String()),
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil, err
	}
	return order, nil
}

// Verify authenticates a checkout callback and finalizes the slot.
func (s *Service) Verify(ctx context.Context, eventID uuid.UUID, in VerifyInput) (*FinalizeResult, error) {
	if err := s.gateway.VerifyPayment(in.OrderID, in.PaymentID, in.Signature); err != nil {
		s.logger.Warn("payment signature rejected",
			zap.String("event_id", eventID.String()),
			zap.String("slot_id", in.SlotID.String()),
			zap.String("payment_id", in.PaymentID))
		return nil, err
	}
	var amount int64
	if in.Amount != "" {
		a, err := gateway.ToMinorUnits(in.Amount)
		if err != nil {
			return nil, err
		}
		amount = a
	}

	raw, err := json.Marshal(map[string]interface{}{
		"razorpay_payment_id": in.PaymentID,
		"razorpay_order_id":   in.OrderID,
		"razorpay_signature":  in.Signature,
		"amount":              amount,
		"source":              SourceVerify,
	})
	if err != nil {
		return nil, apperror.Internal("encode payment info", err)
	}
	s.archive(ctx, eventID, in.SlotID, in.PaymentID, SourceVerify, raw)

	return s.engine.Finalize(ctx, FinalizeInput{
		EventID:     eventID,
		SlotID:      in.SlotID,
		PaymentID:   in.PaymentID,
		OrderID:     in.OrderID,
		AmountMinor: amount,
		Currency:    s.gateway.Currency(),
		Raw:         raw,
		Travelers:   in.Persons,
	})
}

// ParseWebhook authenticates and decodes a webhook body. It never mutates state.
func (s *Service) ParseWebhook(body []byte, signature string) (*gateway.WebhookEvent, error) {
	if err := s.gateway.VerifyWebhook(body, signature); err != nil {
		return nil, err
	}
	return gateway.ParseWebhook(body)
}

// ProcessWebhook finalizes the slot named by a captured payment. Other events
// are ignored and return a nil result.
func (s *Service) ProcessWebhook(ctx context.Context, ev *gateway.WebhookEvent, body []byte) (*FinalizeResult, error) {
	if !ev.Captured() {
		s.logger.Debug("webhook event ignored", zap.String("event", ev.Event))
		return nil, nil
	}
	p := ev.PaymentEntity()
	ref, err := gateway.ReferenceFromNotes(p.Notes)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, ref.EventID, ref.SlotID, p.ID, SourceWebhook, body)

	currency := p.Currency
	if currency == "" {
		currency = s.gateway.Currency()
	}
	return s.engine.Finalize(ctx, FinalizeInput{
		EventID:     ref.EventID,
		SlotID:      ref.SlotID,
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		AmountMinor: p.Amount,
		Currency:    currency,
		Method:      p.Method,
		Raw:         body,
		SignedNotes: true,
	})
}

// Refund refunds a payment through the engine.
func (s *Service) Refund(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.engine.Refund(ctx, paymentID)
}

// ListBookings returns the bookings of an event, newest first.
func (s *Service) ListBookings(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListBookingsByEvent(ctx, eventID)
}

func (s *Service) archive(ctx context.Context, eventID, slotID uuid.UUID, paymentID, source string, raw []byte) {
	if s.archiver == nil {
		return
	}
	if _, err := s.archiver.ArchivePaymentPayload(ctx, eventID.String(), slotID.String(), paymentID, source, raw); err != nil {
		s.logger.Warn("archive payment payload failed",
			zap.String("slot_id", slotID.String()),
			zap.String("payment_id", paymentID),
			zap.Error(err))
	}
}
