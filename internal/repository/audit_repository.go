package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fisiohome/fisiohome-api/internal/models"
)

// AuditRepository appends audit trail records. The table is insert-only.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByResource returns entries for a specific record, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, user_id, action, resource, resource_id, old_values, new_values, created_at FROM audit_logs WHERE resource = $1 AND resource_id = $2 ORDER BY created_at DESC LIMIT %d`, limit)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, resource, resourceID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
