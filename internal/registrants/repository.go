package registrants

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
	"github.com/tripnest/backend/pkg/database"
)

// Repository handles pending_event_users and event_users.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a registrants repository over a pool or transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// InsertPending inserts one pending row per traveler. Callers wanting all-or-none
// must bind the repository to a transaction.
func (r *Repository) InsertPending(ctx context.Context, eventID, slotID uuid.UUID, orderID string, travelers []models.Traveler) ([]models.PendingRegistrant, error) {
	const q = `INSERT INTO pending_event_users (event_id, slot_id, order_id, first_name, last_name, email, phone, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id, status, created_at, updated_at`
	out := make([]models.PendingRegistrant, 0, len(travelers))
	for _, t := range travelers {
		p := models.PendingRegistrant{EventID: eventID, SlotID: slotID, OrderID: orderID, Traveler: t}
		err := r.db.QueryRow(ctx, q, eventID, slotID, orderID, t.FirstName, t.LastName, t.Email, t.Phone).
			Scan(&p.ID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert pending registrant: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// ListPending returns the pending rows submitted with one order, in insertion order.
func (r *Repository) ListPending(ctx context.Context, eventID, slotID uuid.UUID, orderID string) ([]models.PendingRegistrant, error) {
	const q = `SELECT id, event_id, slot_id, order_id, first_name, last_name, email, phone, status, payment_id, created_at, updated_at
		FROM pending_event_users
		WHERE event_id = $1 AND slot_id = $2 AND order_id = $3 AND status = 'pending'
		ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, eventID, slotID, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PendingRegistrant
	for rows.Next() {
		var p models.PendingRegistrant
		if err := rows.Scan(&p.ID, &p.EventID, &p.SlotID, &p.OrderID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
			&p.Status, &p.PaymentID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// MarkConfirmed flips a pending row to confirmed and stamps the payment id.
func (r *Repository) MarkConfirmed(ctx context.Context, registrantID uuid.UUID, paymentID string) error {
	const q = `UPDATE pending_event_users SET status = 'confirmed', payment_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, q, registrantID, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("pending registrant not found")
	}
	return nil
}

// CreateConfirmed inserts an event_users row.
func (r *Repository) CreateConfirmed(ctx context.Context, eventID, slotID uuid.UUID, paymentID string, t models.Traveler) (*models.Registrant, error) {
	const q = `INSERT INTO event_users (event_id, slot_id, first_name, last_name, email, phone, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	reg := models.Registrant{EventID: eventID, SlotID: slotID, Traveler: t, PaymentID: paymentID}
	err := r.db.QueryRow(ctx, q, eventID, slotID, t.FirstName, t.LastName, t.Email, t.Phone, paymentID).
		Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListConfirmed returns the confirmed travelers of a slot.
func (r *Repository) ListConfirmed(ctx context.Context, slotID uuid.UUID) ([]models.Registrant, error) {
	const q = `SELECT id, event_id, slot_id, first_name, last_name, email, phone, payment_id, created_at
		FROM event_users WHERE slot_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registrant
	for rows.Next() {
		var reg models.Registrant
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.SlotID, &reg.FirstName, &reg.LastName, &reg.Email, &reg.Phone,
			&reg.PaymentID, &reg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}
