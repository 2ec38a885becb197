package models

import "time"

// Notification types emitted by the scheduling core.
const (
	NotificationTypeNewAppointment       = "NEW_APPOINTMENT"
	NotificationTypeAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
)

// Notification is an in-app message owned by its recipient.
type Notification struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Title         string    `db:"title" json:"title"`
	Message       string    `db:"message" json:"message"`
	Type          string    `db:"type" json:"type"`
	AppointmentID *string   `db:"appointment_id" json:"appointment_id,omitempty"`
	Read          bool      `db:"read" json:"read"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// NotificationFilter lists notifications for a recipient.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
