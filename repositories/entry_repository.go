package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/localsales/form-entries/models"
)

// ErrEntryNotFound is returned when no entry has the requested id
var ErrEntryNotFound = errors.New("entry not found")

// EntryRepository interface defines form entry database operations
type EntryRepository interface {
	Create(ctx context.Context, entry *models.Entry) error
	GetByID(ctx context.Context, id int64) (*models.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]models.EntrySummary, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// entryRepository implements EntryRepository interface
type entryRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *sql.DB, loc *time.Location) EntryRepository {
	if loc == nil {
		loc = time.Local
	}
	return &entryRepository{db: db, loc: loc}
}

// Create inserts a new entry and sets its ID
func (r *entryRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO form_entries (form_id, form_title, page_url, ip_address, user_agent, fields_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().In(r.loc)
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.FormID,
		entry.FormTitle,
		entry.PageURL,
		entry.IPAddress,
		entry.UserAgent,
		entry.FieldsJSON,
		models.FormatDateTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted ID: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByID retrieves an entry with its field payload
func (r *entryRepository) GetByID(ctx context.Context, id int64) (*models.Entry, error) {
	query := `
		SELECT id, form_id, form_title, page_url, ip_address, user_agent, fields_json, created_at
		FROM form_entries
		WHERE id = ?
	`

	var entry models.Entry
	var pageURL, userAgent sql.NullString
	var createdAt time.Time

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.FormID,
		&entry.FormTitle,
		&pageURL,
		&entry.IPAddress,
		&userAgent,
		&entry.FieldsJSON,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %d: %w", id, ErrEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	entry.PageURL = pageURL.String
	entry.UserAgent = userAgent.String
	entry.CreatedAt = models.InLocation(createdAt, r.loc)

	return &entry, nil
}

// ListRecent retrieves the newest entries by id without their payload
func (r *entryRepository) ListRecent(ctx context.Context, limit int) ([]models.EntrySummary, error) {
	query := `
		SELECT id, form_id, form_title, page_url, created_at
		FROM form_entries
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []models.EntrySummary{}
	for rows.Next() {
		var summary models.EntrySummary
		var pageURL sql.NullString
		var createdAt time.Time

		if err := rows.Scan(
			&summary.ID,
			&summary.FormID,
			&summary.FormTitle,
			&pageURL,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		summary.PageURL = pageURL.String
		summary.CreatedAt = models.InLocation(createdAt, r.loc)
		entries = append(entries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// Delete removes an entry by ID. Deleting a missing entry is not an error;
// the returned bool reports whether a row was removed.
func (r *entryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM form_entries WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
