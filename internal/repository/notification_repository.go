package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fisiohome/fisiohome-api/internal/models"
)

// NotificationRepository provides persistence for notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification for its recipient.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO notifications (id, user_id, title, message, type, appointment_id, read, created_at) VALUES (:id, :user_id, :title, :message, :type, :appointment_id, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a recipient's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := `FROM notifications WHERE user_id = $1`
	args := []interface{}{filter.UserID}
	if filter.UnreadOnly {
		base += ` AND read = FALSE`
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, user_id, title, message, type, appointment_id, read, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead flips the read flag for a recipient's notification. The user id
// guard keeps recipients from touching records they do not own.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return affected > 0, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}
