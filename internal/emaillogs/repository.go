package emaillogs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/database"
)

// Repository handles email_logs persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an email logs repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Create records one delivery attempt.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	const q = `INSERT INTO email_logs (booking_id, email_type, recipient_email, subject, status, sent_at, error_message)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''))
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, q, el.BookingID, el.EmailType, el.RecipientEmail, el.Subject, el.Status, el.SentAt, el.ErrorMessage).
		Scan(&el.ID, &el.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// ListByBooking returns email logs for a booking, newest first.
func (r *Repository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, booking_id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE booking_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.BookingID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
