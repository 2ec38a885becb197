package models

import "time"

// TherapistProfile stores billing and availability info for a therapist user.
type TherapistProfile struct {
	UserID         string    `db:"user_id" json:"user_id"`
	Specialization string    `db:"specialization" json:"specialization"`
	HourlyRate     float64   `db:"hourly_rate" json:"hourly_rate"`
	Available      bool      `db:"available" json:"available"`
	Bio            string    `db:"bio" json:"bio"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Therapist joins user identity with the therapist profile for directory listings.
type Therapist struct {
	ID             string  `db:"id" json:"id"`
	FullName       string  `db:"full_name" json:"full_name"`
	Email          string  `db:"email" json:"email"`
	Phone          string  `db:"phone" json:"phone"`
	Active         bool    `db:"active" json:"active"`
	Specialization string  `db:"specialization" json:"specialization"`
	HourlyRate     float64 `db:"hourly_rate" json:"hourly_rate"`
	Available      bool    `db:"available" json:"available"`
	Bio            string  `db:"bio" json:"bio"`
}

// TherapistFilter captures directory listing criteria.
type TherapistFilter struct {
	Specialization string
	AvailableOnly  bool
	Search         string
	Page           int
	PageSize       int
}
