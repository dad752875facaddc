package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/models"
	"github.com/localsales/form-entries/repositories"
	"github.com/localsales/form-entries/sanitize"
)

// CaptureService stores finalized form submissions
type CaptureService interface {
	// Capture stores one submission and returns the new entry id. It never
	// fails the caller: invalid submissions and storage errors return 0.
	Capture(ctx context.Context, submission *models.Submission) int64
}

// captureService implements CaptureService interface
type captureService struct {
	entryRepo repositories.EntryRepository
	loc       *time.Location
	now       func() time.Time
}

// NewCaptureService creates a new capture service. Timestamps are taken from
// clock (time.Now when nil) and recorded as wall-clock time in loc.
func NewCaptureService(entryRepo repositories.EntryRepository, loc *time.Location, clock func() time.Time) CaptureService {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	return &captureService{
		entryRepo: entryRepo,
		loc:       loc,
		now:       clock,
	}
}

// Capture normalizes the submission and inserts one entry row
func (s *captureService) Capture(ctx context.Context, submission *models.Submission) int64 {
	if submission == nil {
		return 0
	}

	formID, ok := submission.Form.FormID()
	if !ok {
		log.WithField("form_id", string(submission.Form.ID)).Debug("Ignoring submission without a usable form id")
		return 0
	}

	fieldsJSON, err := models.NormalizeFields(submission.Fields).Encode()
	if err != nil {
		log.WithError(err).WithField("form_id", formID).Error("Failed to encode submission fields")
		return 0
	}

	entry := &models.Entry{
		FormID:     formID,
		FormTitle:  submission.Form.Title(),
		PageURL:    pageURL(submission.Request),
		IPAddress:  ipAddress(submission.Request),
		UserAgent:  sanitize.TextField(submission.Request.UserAgent),
		FieldsJSON: fieldsJSON,
		CreatedAt:  s.now().In(s.loc),
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"form_id": formID,
		}).Error("Failed to store form entry")
		return 0
	}

	log.WithFields(log.Fields{
		"entry_id": entry.ID,
		"form_id":  formID,
	}).Debug("Stored form entry")

	return entry.ID
}

// pageURL prefers the posted page URL and falls back to the referrer
func pageURL(req models.RequestContext) string {
	if posted := sanitize.URL(req.PostedPageURL); posted != "" {
		return posted
	}
	return sanitize.TextField(req.Referrer)
}

// ipAddress uses the host's client IP when it resolved one, even an empty one
func ipAddress(req models.RequestContext) string {
	if req.ClientIP != nil {
		return sanitize.TextField(*req.ClientIP)
	}
	return sanitize.TextField(req.RemoteAddr)
}
