package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripnest/backend/internal/models"
	"github.com/tripnest/backend/pkg/database"
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Repository handles notifications persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a notifications repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Create inserts n and fills its ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (user_id, type, title, data)
		VALUES ($1, $2, $3, COALESCE($4::jsonb, '{}'::jsonb))
		RETURNING id, created_at`
	var data []byte
	if len(n.Data) > 0 {
		data = n.Data
	}
	if err := r.db.QueryRow(ctx, q, n.UserID, n.Type, n.Title, data).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListUnread returns a user's unread notifications, newest first.
func (r *Repository) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	const q = `SELECT id, user_id, type, title, data, read_at, created_at
		FROM notifications WHERE user_id = $1 AND read_at IS NULL
		ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Data = data
		list = append(list, n)
	}
	return list, rows.Err()
}

// InAppChannel stores a notification row per recipient.
type InAppChannel struct {
	store NotificationStore
}

// NewInAppChannel creates an in-app channel.
func NewInAppChannel(store NotificationStore) *InAppChannel {
	return &InAppChannel{store: store}
}

// Name implements Channel.
func (c *InAppChannel) Name() string { return "in_app" }

// Send implements Channel.
func (c *InAppChannel) Send(ctx context.Context, recipient models.User, b *models.Booking) error {
	data, err := json.Marshal(map[string]interface{}{
		"booking_id": b.ID,
		"event_id":   b.EventID,
		"slot_id":    b.SlotID,
		"payment_id": b.PaymentID,
		"travelers":  len(b.Persons),
	})
	if err != nil {
		return err
	}
	return c.store.Create(ctx, &models.Notification{
		UserID: recipient.ID,
		Type:   models.NotificationTypeBookingCreated,
		Title:  fmt.Sprintf("New booking for %d traveler(s)", len(b.Persons)),
		Data:   data,
	})
}
