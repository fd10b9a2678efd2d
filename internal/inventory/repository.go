package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tripnest/backend/pkg/apperror"
	"github.com/tripnest/backend/pkg/database"
)

// Repository is the Postgres Counter. Bind it to a transaction for the row lock to hold.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an inventory repository over a pool or transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// AvailableSlots reads the counter with FOR UPDATE.
func (r *Repository) AvailableSlots(ctx context.Context, eventID uuid.UUID) (int, error) {
	const q = `SELECT available_slots FROM events WHERE id = $1 FOR UPDATE`
	var n int
	err := r.db.QueryRow(ctx, q, eventID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.NotFound("event not found")
	}
	if err != nil {
		return 0, fmt.Errorf("lock event: %w", err)
	}
	return n, nil
}

// SetAvailableSlots overwrites the counter.
func (r *Repository) SetAvailableSlots(ctx context.Context, eventID uuid.UUID, n int) error {
	const q = `UPDATE events SET available_slots = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, q, eventID, n)
	if err != nil {
		return fmt.Errorf("update available slots: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("event not found")
	}
	return nil
}
