package dto

// DashboardSummary aggregates appointment and user counts for the
// dashboard endpoint. Counts are scoped to the requesting actor.
type DashboardSummary struct {
	TotalAppointments int            `json:"total_appointments"`
	ByStatus          map[string]int `json:"by_status"`
	UpcomingToday     int            `json:"upcoming_today"`
	TotalPatients     int            `json:"total_patients,omitempty"`
	TotalTherapists   int            `json:"total_therapists,omitempty"`
	UnreadNotifications int          `json:"unread_notifications"`
}
