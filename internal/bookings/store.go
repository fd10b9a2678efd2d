package bookings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/gateway"
	"github.com/tripnest/backend/internal/inventory"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/internal/registrants"
)

// Store is the persistence used outside of finalize and refund transactions.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	GetSlot(ctx context.Context, slotID uuid.UUID) (*models.EventSlot, error)
	CreateSlot(ctx context.Context, slot *models.EventSlot) error
	RecordOrder(ctx context.Context, o *models.SlotOrder, travelers []models.Traveler) ([]models.PendingRegistrant, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	ListBookingsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error)
}

// Tx is the view inside a finalize or refund transaction. Lock methods hold
// row locks until the transaction ends.
type Tx interface {
	inventory.Counter
	registrants.Store

	LockSlot(ctx context.Context, slotID uuid.UUID) (*models.EventSlot, error)
	SlotHasOrder(ctx context.Context, slotID uuid.UUID, orderID string) (bool, error)
	MarkSlotBooked(ctx context.Context, slotID uuid.UUID, paymentInfo json.RawMessage) error
	GetBookingBySlot(ctx context.Context, slotID uuid.UUID) (*models.Booking, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	UpsertPayment(ctx context.Context, p *models.Payment) error
	LockPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	MarkPaymentRefunded(ctx context.Context, paymentID string, refundedAt time.Time, details json.RawMessage) error
}

// RefundGateway issues refunds at the payment provider.
type RefundGateway interface {
	Refund(ctx context.Context, paymentID string, amountMinor int64, notes gateway.Notes) (*gateway.Refund, error)
}

// OrderGateway creates orders and verifies provider signatures.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	VerifyPayment(orderID, paymentID, signature string) error
	VerifyWebhook(body []byte, signature string) error
	Currency() string
}

// Gateway is the full provider surface; *gateway.Client satisfies it.
type Gateway interface {
	OrderGateway
	RefundGateway
}

// Archiver keeps a copy of raw provider payloads. Failures are logged only.
type Archiver interface {
	ArchivePaymentPayload(ctx context.Context, eventID, slotID, paymentID, source string, raw []byte) (string, error)
}
