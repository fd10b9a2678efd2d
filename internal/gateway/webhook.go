package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tripnest/backend/pkg/apperror"
)

// EventPaymentCaptured is the only webhook event that finalizes a booking.
const EventPaymentCaptured = "payment.captured"

// Note keys carrying the booking reference through the gateway.
const (
	NoteEventID = "event_id"
	NoteSlotID  = "slot_id"
)

var validate = validator.New()

// Notes is the free-form key/value map the gateway echoes back. The gateway
// sends an empty JSON array instead of an object when no notes were set.
type Notes map[string]string

// UnmarshalJSON accepts an object of scalars or an empty array.
func (n *Notes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte("[]")) {
		*n = Notes{}
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Notes, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	*n = out
	return nil
}

// WebhookEvent is the envelope of a gateway webhook delivery.
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

// WebhookPayload holds the entities attached to an event.
type WebhookPayload struct {
	Payment *PaymentWrapper `json:"payment"`
}

// PaymentWrapper wraps the payment entity.
type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

// PaymentEntity is the subset of the gateway payment object this service uses.
type PaymentEntity struct {
	ID       string `json:"id" validate:"required"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	OrderID  string `json:"order_id" validate:"required"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Notes    Notes  `json:"notes"`
}

// Reference identifies the event and slot a payment belongs to.
type Reference struct {
	EventID uuid.UUID
	SlotID  uuid.UUID
}

type noteReference struct {
	EventID string `validate:"required,uuid"`
	SlotID  string `validate:"required,uuid"`
}

// ReferenceFromNotes recovers the booking reference from order notes.
func ReferenceFromNotes(n Notes) (Reference, error) {
	ref := noteReference{EventID: n[NoteEventID], SlotID: n[NoteSlotID]}
	if err := validate.Struct(ref); err != nil {
		return Reference{}, apperror.Validation("payment notes must carry event_id and slot_id")
	}
	return Reference{EventID: uuid.MustParse(ref.EventID), SlotID: uuid.MustParse(ref.SlotID)}, nil
}

// NotesFor builds the notes attached to an order for the given slot.
func NotesFor(eventID, slotID uuid.UUID) Notes {
	return Notes{NoteEventID: eventID.String(), NoteSlotID: slotID.String()}
}

// Captured reports whether the event finalizes a booking.
func (e *WebhookEvent) Captured() bool { return e.Event == EventPaymentCaptured }

// PaymentEntity returns the payment entity or nil.
func (e *WebhookEvent) PaymentEntity() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}

// ParseWebhook decodes and validates a webhook body. Captured payments must
// carry id, order id, amount and the booking reference notes; other events are
// only checked for the envelope. It does not verify the signature.
func ParseWebhook(raw []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, apperror.Validation("malformed webhook payload")
	}
	if err := validate.Var(ev.Event, "required"); err != nil {
		return nil, apperror.Validation("webhook event is required")
	}
	if !ev.Captured() {
		return &ev, nil
	}
	p := ev.PaymentEntity()
	if p == nil {
		return nil, apperror.Validation("webhook payment entity is required")
	}
	if err := validate.Struct(p); err != nil {
		return nil, apperror.Validation("webhook payment entity is incomplete")
	}
	if _, err := ReferenceFromNotes(p.Notes); err != nil {
		return nil, err
	}
	return &ev, nil
}
