package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/localsales/form-entries/config"
	"github.com/localsales/form-entries/database"
	"github.com/localsales/form-entries/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	// Initialize test database using the actual migration system
	db, err := database.InitializeDatabase(config.DBConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testLocation(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Lisbon")
	if err != nil {
		return time.FixedZone("WEST", 3600)
	}
	return loc
}

func TestEntryRepository(t *testing.T) {
	ctx := context.Background()
	loc := testLocation(t)
	repo := NewEntryRepository(setupTestDB(t), loc)

	// Test Create
	created := time.Date(2024, 7, 1, 14, 30, 5, 0, loc)
	entry := &models.Entry{
		FormID:     7,
		FormTitle:  "Contact",
		PageURL:    "https://site/contact/",
		IPAddress:  "203.0.113.9",
		UserAgent:  "Mozilla/5.0",
		FieldsJSON: `{"1":{"id":"1","type":"text","name":"Name","value":"Ana"}}`,
		CreatedAt:  created,
	}

	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Failed to create entry: %v", err)
	}

	if entry.ID == 0 {
		t.Error("Expected entry ID to be set after creation")
	}

	// Test GetByID
	retrieved, err := repo.GetByID(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Failed to get entry by ID: %v", err)
	}

	if retrieved.FormTitle != "Contact" || retrieved.FormID != 7 {
		t.Errorf("Expected form 7 Contact, got %d %s", retrieved.FormID, retrieved.FormTitle)
	}
	if retrieved.FieldsJSON != entry.FieldsJSON {
		t.Errorf("Expected payload %s, got %s", entry.FieldsJSON, retrieved.FieldsJSON)
	}
	if !retrieved.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, retrieved.CreatedAt)
	}
	if models.FormatDateTime(retrieved.CreatedAt) != "2024-07-01 14:30:05" {
		t.Errorf("Expected wall clock to survive storage, got %s", models.FormatDateTime(retrieved.CreatedAt))
	}

	// Test GetByID on a missing entry
	_, err = repo.GetByID(ctx, entry.ID+100)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}

	// Test Delete of a missing entry is a no-op
	deleted, err := repo.Delete(ctx, entry.ID+100)
	if err != nil {
		t.Fatalf("Failed to delete missing entry: %v", err)
	}
	if deleted {
		t.Error("Expected no row to be removed for a missing entry")
	}

	// Test Delete
	deleted, err = repo.Delete(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}
	if !deleted {
		t.Error("Expected the entry row to be removed")
	}

	// Verify deletion
	if _, err := repo.GetByID(ctx, entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound for deleted entry, got %v", err)
	}
}

func TestEntryRepositoryNullableColumns(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewEntryRepository(db, time.UTC)

	// Rows written by other tools may leave page_url and user_agent NULL
	result, err := db.Exec(`INSERT INTO form_entries (form_id, form_title, page_url, ip_address, user_agent, fields_json, created_at)
		VALUES (3, '', NULL, '', NULL, '[]', '2024-01-02 03:04:05')`)
	if err != nil {
		t.Fatalf("Failed to insert row: %v", err)
	}
	id, _ := result.LastInsertId()

	entry, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get entry: %v", err)
	}
	if entry.PageURL != "" || entry.UserAgent != "" {
		t.Errorf("Expected NULL columns to read as empty, got %q %q", entry.PageURL, entry.UserAgent)
	}
	if len(entry.Fields()) != 0 {
		t.Errorf("Expected no fields for legacy empty payload, got %+v", entry.Fields())
	}
}

func TestEntryRepositoryListRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(setupTestDB(t), time.UTC)

	// Empty table
	entries, err := repo.ListRecent(ctx, models.MaxListedEntries)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("Expected an empty non-nil list, got %v", entries)
	}

	total := models.MaxListedEntries + 5
	for i := 0; i < total; i++ {
		entry := &models.Entry{
			FormID:     int64(i%3 + 1),
			FieldsJSON: `{}`,
			PageURL:    "https://site/p",
			// Older ids get newer timestamps; the list must still follow id
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(total-i) * time.Minute),
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Failed to create entry %d: %v", i, err)
		}
	}

	entries, err = repo.ListRecent(ctx, models.MaxListedEntries)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}

	if len(entries) != models.MaxListedEntries {
		t.Fatalf("Expected %d entries, got %d", models.MaxListedEntries, len(entries))
	}
	if entries[0].ID != int64(total) {
		t.Errorf("Expected newest id %d first, got %d", total, entries[0].ID)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ID >= entries[i-1].ID {
			t.Fatalf("Expected ids in descending order, got %d after %d", entries[i].ID, entries[i-1].ID)
		}
	}
	if entries[len(entries)-1].ID != 6 {
		t.Errorf("Expected oldest listed id 6, got %d", entries[len(entries)-1].ID)
	}
}

func TestEntryRepositoryDeleteRemovesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(setupTestDB(t), time.UTC)

	var ids []int64
	for i := 0; i < 3; i++ {
		entry := &models.Entry{FormID: 1, FieldsJSON: `{}`}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Failed to create entry: %v", err)
		}
		ids = append(ids, entry.ID)
	}

	if _, err := repo.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("Failed to delete entry: %v", err)
	}

	entries, err := repo.ListRecent(ctx, models.MaxListedEntries)
	if err != nil {
		t.Fatalf("Failed to list entries: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != ids[2] || entries[1].ID != ids[0] {
		t.Errorf("Expected ids %d and %d to remain, got %+v", ids[2], ids[0], entries)
	}
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewAuditRepository(db, time.UTC)

	record := &models.AuditLogEntry{
		UserEmail: "admin@example.com",
		Action:    models.AuditActionDeleteEntry,
		TargetID:  42,
		UserAgent: "Mozilla/5.0",
		IPAddress: "198.51.100.4",
		Timestamp: time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC),
	}

	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Failed to create audit log entry: %v", err)
	}
	if record.ID == 0 {
		t.Error("Expected audit log ID to be set after creation")
	}

	if err := repo.Create(ctx, &models.AuditLogEntry{Action: models.AuditActionDeleteEntry, TargetID: 7}); err != nil {
		t.Fatalf("Failed to create audit log entry: %v", err)
	}

	var (
		userEmail string
		ipAddress string
		timestamp time.Time
	)
	err := db.QueryRowContext(ctx,
		"SELECT user_email, ip_address, timestamp FROM audit_log WHERE target_id = ?", 42,
	).Scan(&userEmail, &ipAddress, &timestamp)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	if userEmail != "admin@example.com" || ipAddress != "198.51.100.4" {
		t.Errorf("Unexpected audit log entry: %s %s", userEmail, ipAddress)
	}
	if got := models.FormatDateTime(timestamp); got != "2024-03-09 08:00:00" {
		t.Errorf("Expected timestamp 2024-03-09 08:00:00, got %s", got)
	}
}
