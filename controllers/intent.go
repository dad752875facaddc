package controllers

import (
	"net/url"
	"strconv"
	"strings"
)

// Intent is the decoded request of the admin page
type Intent interface {
	isIntent()
}

// ViewList shows the newest entries
type ViewList struct{}

// ViewDetail shows one entry
type ViewDetail struct {
	ID int64
}

// DeleteEntry deletes one entry after its confirmation token is verified.
// ID is 0 when the submitted id was not a positive integer.
type DeleteEntry struct {
	ID    int64
	Token string
}

func (ViewList) isIntent()    {}
func (ViewDetail) isIntent()  {}
func (DeleteEntry) isIntent() {}

// ParseIntent decodes the admin page query parameters
func ParseIntent(query url.Values) Intent {
	id := parseEntryID(query.Get("entry_id"))

	if query.Get("action") == "delete" && query.Has("entry_id") {
		return DeleteEntry{ID: id, Token: query.Get("token")}
	}
	if id > 0 {
		return ViewDetail{ID: id}
	}
	return ViewList{}
}

// parseEntryID returns the id when s is a positive integer, else 0
func parseEntryID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
