package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mssola/user_agent"
	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/middleware"
	"github.com/localsales/form-entries/models"
	"github.com/localsales/form-entries/repositories"
	"github.com/localsales/form-entries/sanitize"
	"github.com/localsales/form-entries/services"
	"github.com/localsales/form-entries/tokens"
	"github.com/localsales/form-entries/userctx"
)

// EntriesController handles the admin entries page
type EntriesController struct {
	services       *services.Services
	tokens         *tokens.Manager
	captureEnabled bool
	trustProxy     bool
}

// NewEntriesController creates a new entries controller
func NewEntriesController(services *services.Services, tokenManager *tokens.Manager, captureEnabled, trustProxy bool) *EntriesController {
	return &EntriesController{
		services:       services,
		tokens:         tokenManager,
		captureEnabled: captureEnabled,
		trustProxy:     trustProxy,
	}
}

type entriesPageData struct {
	Title           string
	BasePath        string
	UserEmail       string
	Notices         []models.FlashMessage
	CaptureDisabled bool

	// List mode
	Entries    []models.EntrySummary
	LoadFailed bool

	// Detail mode
	Entry     *entryDetail
	DeleteURL string
}

type entryDetail struct {
	*models.Entry
	Fields models.Fields
	Client string
}

// Index handles GET /admin/form-entries
func (c *EntriesController) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := &entriesPageData{
		Title:           "Form Entries",
		BasePath:        EntriesPath,
		UserEmail:       userctx.GetUserEmail(ctx),
		CaptureDisabled: !c.captureEnabled,
	}

	switch intent := ParseIntent(r.URL.Query()).(type) {
	case DeleteEntry:
		c.delete(w, r, data, intent)
	case ViewDetail:
		c.detail(w, r, data, intent.ID)
	default:
		c.list(w, r, data, http.StatusOK)
	}
}

// delete verifies the confirmation token, removes the entry and falls through to the list
func (c *EntriesController) delete(w http.ResponseWriter, r *http.Request, data *entriesPageData, intent DeleteEntry) {
	ctx := r.Context()

	if err := c.tokens.Verify(intent.Token, tokens.ActionDeleteEntry, userctx.GetSessionID(ctx)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"entry_id":   intent.ID,
			"user_email": userctx.GetUserEmail(ctx),
		}).Warn("Rejected delete confirmation")
		http.Error(w, "The link you followed has expired.", http.StatusForbidden)
		return
	}

	actor := services.Actor{
		Email:     userctx.GetUserEmail(ctx),
		IPAddress: middleware.ClientIP(r, c.trustProxy),
		UserAgent: sanitize.TextField(r.UserAgent()),
	}

	if err := c.services.Entries.DeleteEntry(ctx, intent.ID, actor); err != nil {
		log.WithError(err).WithField("entry_id", intent.ID).Error("Failed to delete entry")
		data.Notices = append(data.Notices, models.FlashMessage{Type: "error", Message: "Failed to delete entry. Open the entry again to get a new delete link."})
		c.list(w, r, data, http.StatusInternalServerError)
		return
	}

	data.Notices = append(data.Notices, models.FlashMessage{Type: "success", Message: "Entry deleted."})
	c.list(w, r, data, http.StatusOK)
}

// detail renders one entry with its decoded fields
func (c *EntriesController) detail(w http.ResponseWriter, r *http.Request, data *entriesPageData, id int64) {
	ctx := r.Context()

	entry, err := c.services.Entries.GetEntry(ctx, id)
	if errors.Is(err, repositories.ErrEntryNotFound) {
		data.Notices = append(data.Notices, models.FlashMessage{Type: "error", Message: "Entry not found."})
		renderTemplateWithStatus(w, http.StatusNotFound, "entries", "entry_missing.html", data)
		return
	}
	if err != nil {
		log.WithError(err).WithField("entry_id", id).Error("Failed to load entry")
		data.Notices = append(data.Notices, models.FlashMessage{Type: "error", Message: "Failed to load entry."})
		renderTemplateWithStatus(w, http.StatusInternalServerError, "entries", "entry_missing.html", data)
		return
	}

	data.Entry = &entryDetail{
		Entry:  entry,
		Fields: entry.Fields(),
		Client: describeUserAgent(entry.UserAgent),
	}

	token, err := c.tokens.Issue(tokens.ActionDeleteEntry, userctx.GetSessionID(ctx))
	if err != nil {
		log.WithError(err).WithField("entry_id", id).Error("Failed to issue delete confirmation")
	} else {
		data.DeleteURL = EntriesPath + "?" + url.Values{
			"action":   {"delete"},
			"entry_id": {strconv.FormatInt(entry.ID, 10)},
			"token":    {token},
		}.Encode()
	}

	renderTemplate(w, "entries", "entry_detail.html", data)
}

// list renders the newest entries
func (c *EntriesController) list(w http.ResponseWriter, r *http.Request, data *entriesPageData, status int) {
	entries, err := c.services.Entries.ListRecent(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to load entries")
		data.Notices = append(data.Notices, models.FlashMessage{Type: "error", Message: "Failed to load entries."})
		data.LoadFailed = true
		status = http.StatusInternalServerError
	}
	data.Entries = entries

	renderTemplateWithStatus(w, status, "entries", "entries_list.html", data)
}

// describeUserAgent summarizes a user agent as "Browser version on OS"
func describeUserAgent(ua string) string {
	if ua == "" {
		return ""
	}

	parsed := user_agent.New(ua)
	name, version := parsed.Browser()
	if parsed.Bot() {
		return "Bot: " + name
	}

	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := parsed.OS(); os != "" {
		if summary == "" {
			return os
		}
		summary += " on " + os
	}
	return summary
}
