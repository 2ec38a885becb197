package models

import "time"

// AvailabilityWindow is a recurring weekly working window for a therapist.
// DayOfWeek follows the civil calendar: 0=Sunday .. 6=Saturday.
// Windows for the same therapist and day may overlap; overlap is not enforced.
type AvailabilityWindow struct {
	ID          string    `db:"id" json:"id"`
	TherapistID string    `db:"therapist_id" json:"therapist_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlot is a bookable start instant for a therapist on a given date.
// Each active window contributes a single slot at its start time.
type TimeSlot struct {
	Time      string `json:"time"`
	WindowEnd string `json:"window_end"`
}
