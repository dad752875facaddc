package repositories

import (
	"database/sql"
	"time"
)

// Repositories struct holds all repository interfaces
type Repositories struct {
	Entries EntryRepository
	Audit   AuditRepository
}

// NewRepositories creates and initializes all repositories. Timestamps are
// read back as wall-clock time in loc.
func NewRepositories(db *sql.DB, loc *time.Location) *Repositories {
	return &Repositories{
		Entries: NewEntryRepository(db, loc),
		Audit:   NewAuditRepository(db, loc),
	}
}
