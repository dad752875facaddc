package models

import (
	"net/url"
	"time"
)

// MaxListedEntries caps how many entries the admin list shows
const MaxListedEntries = 200

// Entry is one stored form submission
type Entry struct {
	ID         int64     `json:"id" db:"id"`
	FormID     int64     `json:"form_id" db:"form_id"`
	FormTitle  string    `json:"form_title" db:"form_title"`
	PageURL    string    `json:"page_url" db:"page_url"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	FieldsJSON string    `json:"fields_json" db:"fields_json"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Fields decodes the stored payload; a malformed payload yields no fields
func (e *Entry) Fields() Fields {
	return DecodeFields([]byte(e.FieldsJSON))
}

// EntrySummary is the list-mode projection of an Entry
type EntrySummary struct {
	ID        int64     `json:"id" db:"id"`
	FormID    int64     `json:"form_id" db:"form_id"`
	FormTitle string    `json:"form_title" db:"form_title"`
	PageURL   string    `json:"page_url" db:"page_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PagePath returns the path component of PageURL, or PageURL itself when it has none
func (s EntrySummary) PagePath() string {
	if s.PageURL == "" {
		return ""
	}
	u, err := url.Parse(s.PageURL)
	if err != nil || u.Path == "" {
		return s.PageURL
	}
	return u.Path
}
