package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/models"
	"github.com/localsales/form-entries/repositories"
)

// Actor identifies the admin performing a mutation
type Actor struct {
	Email     string
	IPAddress string
	UserAgent string
}

// EntryService interface defines the admin operations on stored entries
type EntryService interface {
	ListRecent(ctx context.Context) ([]models.EntrySummary, error)
	GetEntry(ctx context.Context, id int64) (*models.Entry, error)
	DeleteEntry(ctx context.Context, id int64, actor Actor) error
}

// entryService implements EntryService interface
type entryService struct {
	entryRepo repositories.EntryRepository
	auditRepo repositories.AuditRepository
}

// NewEntryService creates a new entry service
func NewEntryService(entryRepo repositories.EntryRepository, auditRepo repositories.AuditRepository) EntryService {
	return &entryService{
		entryRepo: entryRepo,
		auditRepo: auditRepo,
	}
}

// ListRecent returns the newest entries, capped at models.MaxListedEntries
func (s *entryService) ListRecent(ctx context.Context) ([]models.EntrySummary, error) {
	return s.entryRepo.ListRecent(ctx, models.MaxListedEntries)
}

// GetEntry retrieves one entry; ids <= 0 are reported as not found
func (s *entryService) GetEntry(ctx context.Context, id int64) (*models.Entry, error) {
	if id <= 0 {
		return nil, fmt.Errorf("entry %d: %w", id, repositories.ErrEntryNotFound)
	}
	return s.entryRepo.GetByID(ctx, id)
}

// DeleteEntry removes an entry and records who removed it. Ids <= 0 and
// entries that no longer exist are a no-op.
func (s *entryService) DeleteEntry(ctx context.Context, id int64, actor Actor) error {
	if id <= 0 {
		return nil
	}

	deleted, err := s.entryRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	if !deleted {
		return nil
	}

	record := &models.AuditLogEntry{
		UserEmail: actor.Email,
		Action:    models.AuditActionDeleteEntry,
		TargetID:  id,
		UserAgent: actor.UserAgent,
		IPAddress: actor.IPAddress,
	}
	if err := s.auditRepo.Create(ctx, record); err != nil {
		// The entry is already gone; a missing audit row must not undo that
		log.WithError(err).WithFields(log.Fields{
			"entry_id":   id,
			"user_email": actor.Email,
		}).Error("Failed to write audit log entry")
		return nil
	}

	log.WithFields(log.Fields{
		"entry_id":   id,
		"user_email": actor.Email,
	}).Info("Entry deleted")

	return nil
}
