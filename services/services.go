package services

import (
	"time"

	"github.com/localsales/form-entries/repositories"
)

// Services holds all service instances
type Services struct {
	Capture CaptureService
	Entries EntryService
}

// NewServices creates and initializes all service instances. Captured
// entries are timestamped in loc.
func NewServices(repos *repositories.Repositories, loc *time.Location) *Services {
	return &Services{
		Capture: NewCaptureService(repos.Entries, loc, nil),
		Entries: NewEntryService(repos.Entries, repos.Audit),
	}
}
