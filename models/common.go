package models

import (
	"time"
)

// DateTimeLayout is the stored and displayed timestamp format
const DateTimeLayout = "2006-01-02 15:04:05"

// FlashMessage represents an inline notice for the admin page
type FlashMessage struct {
	Type    string `json:"type"` // "success", "error", "warning", "info"
	Message string `json:"message"`
}

// FormatDateTime formats a time as YYYY-MM-DD HH:MM:SS
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// InLocation re-labels the wall clock of t with loc. Drivers hand back
// DATETIME columns labelled UTC even though they hold local wall-clock time.
func InLocation(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
