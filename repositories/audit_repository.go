package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/localsales/form-entries/models"
)

// AuditRepository handles audit log persistence
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
}

type auditRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB, loc *time.Location) AuditRepository {
	if loc == nil {
		loc = time.Local
	}
	return &auditRepository{db: db, loc: loc}
}

// Create inserts a new audit log entry
func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (timestamp, user_email, action, target_id, user_agent, ip_address)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().In(r.loc)
	}

	result, err := r.db.ExecContext(ctx, query,
		models.FormatDateTime(entry.Timestamp),
		entry.UserEmail,
		entry.Action,
		entry.TargetID,
		entry.UserAgent,
		entry.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	entry.ID = id
	return nil
}
