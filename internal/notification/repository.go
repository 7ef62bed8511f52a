package notification

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles notification data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new notification repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new notification into the database
func (r *Repository) Create(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_uid, type, title, body, group_id, actor_uid, airport_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING is_read, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.RecipientUID, n.Type, n.Title, n.Body, n.GroupID, n.ActorUID, n.AirportCode,
	).Scan(&n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by its ID
func (r *Repository) GetByID(ctx context.Context, id string) (*Notification, error) {
	query := `
		SELECT id, recipient_uid, type, title, body, group_id, actor_uid, airport_code, is_read, created_at
		FROM notifications
		WHERE id = $1
	`

	n := &Notification{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID,
		&n.RecipientUID,
		&n.Type,
		&n.Title,
		&n.Body,
		&n.GroupID,
		&n.ActorUID,
		&n.AirportCode,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListByRecipient retrieves all notifications for a user
func (r *Repository) ListByRecipient(ctx context.Context, recipientUID string, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_uid = $1`
	if unreadOnly {
		countQuery += ` AND is_read = false`
	}
	if err := r.db.QueryRowContext(ctx, countQuery, recipientUID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, recipient_uid, type, title, body, group_id, actor_uid, airport_code, is_read, created_at
		FROM notifications
		WHERE recipient_uid = $1
	`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, recipientUID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(
			&n.ID,
			&n.RecipientUID,
			&n.Type,
			&n.Title,
			&n.Body,
			&n.GroupID,
			&n.ActorUID,
			&n.AirportCode,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read
func (r *Repository) MarkAsRead(ctx context.Context, id string) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user
func (r *Repository) MarkAllAsRead(ctx context.Context, recipientUID string) error {
	query := `UPDATE notifications SET is_read = true WHERE recipient_uid = $1 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, recipientUID)
	if err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (r *Repository) GetUnreadCount(ctx context.Context, recipientUID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_uid = $1 AND is_read = false`
	if err := r.db.QueryRowContext(ctx, query, recipientUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
