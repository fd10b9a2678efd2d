// Package events serves the bookable trips.
package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/apperror"
	"github.com/tripnest/backend/pkg/database"
)

const eventColumns = `id, title, available_slots, base_price, currency, starts_at, min_age, max_age, created_at, updated_at`

// Repository handles event persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an event repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, available_slots, base_price, currency, starts_at, min_age, max_age)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, e.Title, e.AvailableSlots, e.BasePrice, e.Currency, e.StartsAt, e.MinAge, e.MaxAge).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListUpcoming returns events that have not started, soonest first.
func (r *Repository) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE starts_at > NOW() ORDER BY starts_at`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.AvailableSlots, &e.BasePrice, &e.Currency, &e.StartsAt, &e.MinAge, &e.MaxAge, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
