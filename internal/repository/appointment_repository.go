package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/pkg/database"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

// AppointmentRepository provides persistence for appointments. The
// appointments table carries a partial unique index on
// (therapist_id, date, time) restricted to non-terminal statuses; that
// index is the authoritative double-booking guard.
type AppointmentRepository struct {
	db          *sqlx.DB
	maxListSize int
}

const (
	defaultListSize = 20
	defaultMaxList  = 100
)

// NewAppointmentRepository creates a new appointment repository.
// maxListSize caps the page size List will honor; zero or negative
// falls back to the default cap.
func NewAppointmentRepository(db *sqlx.DB, maxListSize int) *AppointmentRepository {
	if maxListSize <= 0 {
		maxListSize = defaultMaxList
	}
	return &AppointmentRepository{db: db, maxListSize: maxListSize}
}

const appointmentColumns = `id, patient_id, therapist_id, date, time, service_type, status, duration_minutes, notes, address, total_cost, payment_status, created_at, updated_at`

// Create inserts a new appointment. A unique violation from a racing
// insert for the same slot is translated into the slot conflict error.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	const query = `INSERT INTO appointments (id, patient_id, therapist_id, date, time, service_type, status, duration_minutes, notes, address, total_cost, payment_status, created_at, updated_at) VALUES (:id, :patient_id, :therapist_id, :date, :time, :service_type, :status, :duration_minutes, :notes, :address, :total_cost, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrSlotTaken.Code, appErrors.ErrSlotTaken.Status, appErrors.ErrSlotTaken.Message)
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1 LIMIT 1`, appointmentColumns)
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment by id: %w", err)
	}
	return &appointment, nil
}

// List returns appointments matching the filter, newest date/time first.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := `FROM appointments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.TherapistID != "" {
		conditions = append(conditions, fmt.Sprintf("therapist_id = $%d", len(args)+1))
		args = append(args, filter.TherapistID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	switch {
	case size <= 0:
		size = defaultListSize
	case size > r.maxListSize:
		size = r.maxListSize
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, time DESC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// HasConflict reports whether a non-terminal appointment already holds the
// slot. This is the optimistic pre-check; the partial unique index remains
// the authoritative enforcement under concurrency.
func (r *AppointmentRepository) HasConflict(ctx context.Context, therapistID, date, timeOfDay string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM appointments WHERE therapist_id = $1 AND date = $2 AND time = $3 AND status NOT IN ('cancelled', 'completed'))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, therapistID, date, timeOfDay); err != nil {
		return false, fmt.Errorf("check appointment conflict: %w", err)
	}
	return exists, nil
}

// BookedTimes returns the start times held by non-terminal appointments
// for a therapist on a date. Cancelled and completed bookings free their
// slot retroactively.
func (r *AppointmentRepository) BookedTimes(ctx context.Context, therapistID, date string) ([]string, error) {
	const query = `SELECT time FROM appointments WHERE therapist_id = $1 AND date = $2 AND status NOT IN ('cancelled', 'completed') ORDER BY time ASC`
	var times []string
	if err := r.db.SelectContext(ctx, &times, query, therapistID, date); err != nil {
		return nil, fmt.Errorf("list booked times: %w", err)
	}
	return times, nil
}

// UpdateStatus persists a status transition. Notes are replaced only when
// a non-nil value is supplied.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus, notes *string) error {
	now := time.Now().UTC()
	if notes != nil {
		const query = `UPDATE appointments SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, status, *notes, now); err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		return nil
	}
	const query = `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, now); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// CountByStatus aggregates appointment counts per status, optionally
// scoped to a patient or therapist.
func (r *AppointmentRepository) CountByStatus(ctx context.Context, filter models.AppointmentFilter) (map[string]int, error) {
	base := `FROM appointments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.PatientID != "" {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", len(args)+1))
		args = append(args, filter.PatientID)
	}
	if filter.TherapistID != "" {
		conditions = append(conditions, fmt.Sprintf("therapist_id = $%d", len(args)+1))
		args = append(args, filter.TherapistID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT status, COUNT(*) AS total %s GROUP BY status", base)
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = total
	}
	return counts, rows.Err()
}
