package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fisiohome/fisiohome-api/internal/models"
)

// TherapistRepository provides persistence for therapist profiles.
type TherapistRepository struct {
	db *sqlx.DB
}

// NewTherapistRepository creates a new therapist repository.
func NewTherapistRepository(db *sqlx.DB) *TherapistRepository {
	return &TherapistRepository{db: db}
}

const therapistColumns = `u.id, u.full_name, u.email, u.phone, u.active, p.specialization, p.hourly_rate, p.available, p.bio`

// FindByID loads a therapist with profile by user id. Only rows with the
// therapist role qualify.
func (r *TherapistRepository) FindByID(ctx context.Context, id string) (*models.Therapist, error) {
	query := fmt.Sprintf(`SELECT %s FROM users u JOIN therapist_profiles p ON p.user_id = u.id WHERE u.id = $1 AND u.role = 'therapist' LIMIT 1`, therapistColumns)
	var therapist models.Therapist
	if err := r.db.GetContext(ctx, &therapist, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find therapist by id: %w", err)
	}
	return &therapist, nil
}

// List returns therapists matching the directory filter.
func (r *TherapistRepository) List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, int, error) {
	base := `FROM users u JOIN therapist_profiles p ON p.user_id = u.id WHERE u.role = 'therapist' AND u.active = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Specialization != "" {
		conditions = append(conditions, fmt.Sprintf("p.specialization ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Specialization+"%")
	}
	if filter.AvailableOnly {
		conditions = append(conditions, "p.available = TRUE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("u.full_name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY u.full_name ASC LIMIT %d OFFSET %d", therapistColumns, base, size, offset)
	var therapists []models.Therapist
	if err := r.db.SelectContext(ctx, &therapists, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list therapists: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count therapists: %w", err)
	}

	return therapists, total, nil
}

// FindProfile loads the raw profile row for a therapist user.
func (r *TherapistRepository) FindProfile(ctx context.Context, userID string) (*models.TherapistProfile, error) {
	const query = `SELECT user_id, specialization, hourly_rate, available, bio, created_at, updated_at FROM therapist_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.TherapistProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find therapist profile: %w", err)
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the profile row for a therapist.
func (r *TherapistRepository) UpsertProfile(ctx context.Context, profile *models.TherapistProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO therapist_profiles (user_id, specialization, hourly_rate, available, bio, created_at, updated_at)
		VALUES (:user_id, :specialization, :hourly_rate, :available, :bio, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET specialization = EXCLUDED.specialization, hourly_rate = EXCLUDED.hourly_rate, available = EXCLUDED.available, bio = EXCLUDED.bio, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert therapist profile: %w", err)
	}
	return nil
}
