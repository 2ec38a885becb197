package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fisiohome/fisiohome-api/internal/models"
)

// AvailabilityRepository provides persistence for weekly availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const windowColumns = `id, therapist_id, day_of_week, start_time, end_time, active, created_at, updated_at`

// FindByID loads a window by id.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE id = $1 LIMIT 1`, windowColumns)
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability window: %w", err)
	}
	return &window, nil
}

// ListByTherapist returns all windows for a therapist ordered by day and start time.
func (r *AvailabilityRepository) ListByTherapist(ctx context.Context, therapistID string) ([]models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE therapist_id = $1 ORDER BY day_of_week ASC, start_time ASC`, windowColumns)
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, therapistID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ListActiveForDay returns active windows for a therapist on a weekday,
// ordered ascending by start time. Used by slot derivation.
func (r *AvailabilityRepository) ListActiveForDay(ctx context.Context, therapistID string, dayOfWeek int) ([]models.AvailabilityWindow, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_windows WHERE therapist_id = $1 AND day_of_week = $2 AND active = TRUE ORDER BY start_time ASC`, windowColumns)
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, therapistID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list availability windows for day: %w", err)
	}
	return windows, nil
}

// Create stores a new window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	window.CreatedAt = now
	window.UpdatedAt = now

	const query = `INSERT INTO availability_windows (id, therapist_id, day_of_week, start_time, end_time, active, created_at, updated_at) VALUES (:id, :therapist_id, :day_of_week, :start_time, :end_time, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}
	return nil
}

// Update modifies an existing window.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `UPDATE availability_windows SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	return nil
}

// Delete removes a window. Removal is always explicit; nothing deletes
// windows as a side effect.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	return nil
}
