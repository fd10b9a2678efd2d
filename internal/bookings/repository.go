package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripnest/backend/internal/events"
	"github.com/tripnest/backend/internal/inventory"
	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/internal/registrants"
	"github.com/tripnest/backend/pkg/apperror"
	"github.com/tripnest/backend/pkg/database"
)

const (
	slotColumns    = `id, event_id, status, slots, total_amount, persons, payment_info, COALESCE(order_id, ''), created_at, updated_at`
	bookingColumns = `id, event_id, slot_id, persons, payment_id, payment_status, payment_method, payment_details, created_at`
	paymentColumns = `id, event_id, slot_id, amount, currency, payment_id, order_id, status, method, details, refunded_at, created_at, updated_at`
)

// Repository is the Postgres Store.
type Repository struct {
	pool   *pgxpool.Pool
	events *events.Repository
}

// NewRepository creates a bookings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, events: events.NewRepository(pool)}
}

// InTx runs fn in a transaction with a Tx bound to it.
func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(newTxStore(tx))
	})
}

// GetEvent returns an event by ID.
func (r *Repository) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	return r.events.GetByID(ctx, eventID)
}

// GetSlot returns a slot without locking it.
func (r *Repository) GetSlot(ctx context.Context, slotID uuid.UUID) (*models.EventSlot, error) {
	return getSlot(ctx, r.pool, slotID, false)
}

// CreateSlot inserts a pending slot.
func (r *Repository) CreateSlot(ctx context.Context, s *models.EventSlot) error {
	const q = `INSERT INTO event_slots (event_id, status, slots, total_amount, persons)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, s.EventID, s.Status, s.Slots, s.TotalAmount, s.Persons).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

// RecordOrder stores a gateway order issued for a pending slot together with
// the travelers submitted for it, and makes it the slot's latest order.
func (r *Repository) RecordOrder(ctx context.Context, o *models.SlotOrder, travelers []models.Traveler) ([]models.PendingRegistrant, error) {
	var out []models.PendingRegistrant
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		slot, err := getSlot(ctx, tx, o.SlotID, true)
		if err != nil {
			return err
		}
		if slot.Booked() {
			return apperror.AlreadyFinalized("slot is already booked")
		}
		const insertOrder = `INSERT INTO slot_orders (order_id, event_id, slot_id, amount)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at`
		if err := tx.QueryRow(ctx, insertOrder, o.OrderID, o.EventID, o.SlotID, o.Amount).Scan(&o.CreatedAt); err != nil {
			return fmt.Errorf("insert slot order: %w", err)
		}
		const setLatest = `UPDATE event_slots SET order_id = $2, updated_at = NOW() WHERE id = $1`
		if _, err := tx.Exec(ctx, setLatest, o.SlotID, o.OrderID); err != nil {
			return fmt.Errorf("set slot order: %w", err)
		}
		out, err = registrants.NewRepository(tx).InsertPending(ctx, o.EventID, o.SlotID, o.OrderID, travelers)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPayment returns a payment by gateway payment id.
func (r *Repository) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return getPayment(ctx, r.pool, paymentID, false)
}

// ListBookingsByEvent returns an event's bookings, newest first.
func (r *Repository) ListBookingsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM event_bookings WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

type (
	counterRepo    = inventory.Repository
	registrantRepo = registrants.Repository
)

// txStore is the Tx implementation bound to one pgx transaction.
type txStore struct {
	db database.DBTX
	*counterRepo
	*registrantRepo
}

func newTxStore(tx pgx.Tx) *txStore {
	return &txStore{
		db:             tx,
		counterRepo:    inventory.NewRepository(tx),
		registrantRepo: registrants.NewRepository(tx),
	}
}

func (t *txStore) LockSlot(ctx context.Context, slotID uuid.UUID) (*models.EventSlot, error) {
	return getSlot(ctx, t.db, slotID, true)
}

// SlotHasOrder reports whether the order was issued for the slot.
func (t *txStore) SlotHasOrder(ctx context.Context, slotID uuid.UUID, orderID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM slot_orders WHERE slot_id = $1 AND order_id = $2)`
	var ok bool
	if err := t.db.QueryRow(ctx, q, slotID, orderID).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup slot order: %w", err)
	}
	return ok, nil
}

func (t *txStore) MarkSlotBooked(ctx context.Context, slotID uuid.UUID, paymentInfo json.RawMessage) error {
	const q = `UPDATE event_slots SET status = 'booked', payment_info = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	tag, err := t.db.Exec(ctx, q, slotID, paymentInfo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.Internal("slot was not pending", nil)
	}
	return nil
}

func (t *txStore) GetBookingBySlot(ctx context.Context, slotID uuid.UUID) (*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM event_bookings WHERE slot_id = $1`
	b, err := scanBooking(t.db.QueryRow(ctx, q, slotID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("booking not found")
	}
	return b, err
}

func (t *txStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	const q = `INSERT INTO event_bookings (event_id, slot_id, persons, payment_id, payment_status, payment_method, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	persons := b.Persons
	if persons == nil {
		persons = []models.Traveler{}
	}
	return t.db.QueryRow(ctx, q, b.EventID, b.SlotID, persons, b.PaymentID, b.PaymentStatus, b.PaymentMethod, b.PaymentDetails).
		Scan(&b.ID, &b.CreatedAt)
}

// UpsertPayment inserts the payment or refreshes it when the same payment id is
// replayed for the same slot. A payment id already bound to another slot is rejected.
func (t *txStore) UpsertPayment(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO event_payments (event_id, slot_id, amount, currency, payment_id, order_id, status, method, details)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, ''), 'INR'), $5, $6, $7, $8, $9)
		ON CONFLICT (payment_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			order_id = EXCLUDED.order_id,
			status = EXCLUDED.status,
			method = EXCLUDED.method,
			details = EXCLUDED.details,
			updated_at = NOW()
		WHERE event_payments.slot_id = EXCLUDED.slot_id
		RETURNING id, currency, created_at, updated_at`
	err := t.db.QueryRow(ctx, q, p.EventID, p.SlotID, p.Amount, p.Currency, p.PaymentID, p.OrderID, p.Status, p.Method, p.Details).
		Scan(&p.ID, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.Validation("payment already recorded for another slot")
	}
	return err
}

func (t *txStore) LockPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return getPayment(ctx, t.db, paymentID, true)
}

func (t *txStore) MarkPaymentRefunded(ctx context.Context, paymentID string, refundedAt time.Time, details json.RawMessage) error {
	const q = `UPDATE event_payments SET status = 'refunded', refunded_at = $2, details = $3, updated_at = NOW()
		WHERE payment_id = $1 AND status = 'paid'`
	tag, err := t.db.Exec(ctx, q, paymentID, refundedAt, details)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.RefundConflict("payment is not in paid state")
	}
	return nil
}

func getSlot(ctx context.Context, db database.DBTX, slotID uuid.UUID, lock bool) (*models.EventSlot, error) {
	q := `SELECT ` + slotColumns + ` FROM event_slots WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var (
		s    models.EventSlot
		info []byte
	)
	err := db.QueryRow(ctx, q, slotID).Scan(&s.ID, &s.EventID, &s.Status, &s.Slots, &s.TotalAmount, &s.Persons,
		&info, &s.OrderID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("slot not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if len(info) > 0 {
		s.PaymentInfo = info
	}
	return &s, nil
}

func getPayment(ctx context.Context, db database.DBTX, paymentID string, lock bool) (*models.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM event_payments WHERE payment_id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	var (
		p       models.Payment
		details []byte
	)
	err := db.QueryRow(ctx, q, paymentID).Scan(&p.ID, &p.EventID, &p.SlotID, &p.Amount, &p.Currency, &p.PaymentID,
		&p.OrderID, &p.Status, &p.Method, &details, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.Details = details
	return &p, nil
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b       models.Booking
		details []byte
	)
	if err := row.Scan(&b.ID, &b.EventID, &b.SlotID, &b.Persons, &b.PaymentID, &b.PaymentStatus, &b.PaymentMethod,
		&details, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.PaymentDetails = details
	return &b, nil
}
