package models

import "time"

// AppointmentStatus tracks the lifecycle of a booking.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "scheduled"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
)

// Valid reports whether the status is one of the recognized values.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Blocking reports whether an appointment with this status holds its slot.
func (s AppointmentStatus) Blocking() bool {
	return !s.Terminal()
}

// Appointment represents a home visit booking. Appointments are never
// physically deleted; lifecycle state lives in Status.
type Appointment struct {
	ID              string            `db:"id" json:"id"`
	PatientID       string            `db:"patient_id" json:"patient_id"`
	TherapistID     string            `db:"therapist_id" json:"therapist_id"`
	Date            string            `db:"date" json:"date"`
	Time            string            `db:"time" json:"time"`
	ServiceType     string            `db:"service_type" json:"service_type"`
	Status          AppointmentStatus `db:"status" json:"status"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Notes           string            `db:"notes" json:"notes"`
	Address         string            `db:"address" json:"address"`
	TotalCost       float64           `db:"total_cost" json:"total_cost"`
	PaymentStatus   string            `db:"payment_status" json:"payment_status"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter describes listing criteria. PatientID and TherapistID
// are forced from the actor's claims for non-admin callers before the
// query is built.
type AppointmentFilter struct {
	PatientID   string
	TherapistID string
	Status      string
	Date        string
	Page        int
	PageSize    int
}
