package controllers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/authenticator"
	"github.com/localsales/form-entries/models"
	"github.com/localsales/form-entries/services"
	"github.com/localsales/form-entries/tokens"
)

// EntriesPath is the fixed slug of the admin page
const EntriesPath = "/admin/form-entries"

//go:embed templates/*.html
var templatesFS embed.FS

var templateFuncs = template.FuncMap{
	"formatDateTime": models.FormatDateTime,
	"viewURL": func(id int64) string {
		return EntriesPath + "?" + url.Values{"entry_id": {strconv.FormatInt(id, 10)}}.Encode()
	},
}

// renderTemplate creates a template set and renders it with the provided data
func renderTemplate(w http.ResponseWriter, templateName string, pageTemplate string, data interface{}) error {
	return renderTemplateWithStatus(w, http.StatusOK, templateName, pageTemplate, data)
}

// renderTemplateWithStatus creates a template set and renders it with the provided data and status code
func renderTemplateWithStatus(w http.ResponseWriter, statusCode int, templateName string, pageTemplate string, data interface{}) error {
	// Create a new template set with only the templates we need
	tmpl, err := template.New(templateName).Funcs(templateFuncs).
		ParseFS(templatesFS, "templates/layout.html", "templates/"+pageTemplate)
	if err != nil {
		log.WithError(err).WithField("template", pageTemplate).Error("Failed to parse template")
		http.Error(w, "Failed to parse template", http.StatusInternalServerError)
		return err
	}

	// Render into a buffer so a failed render never leaves a partial page
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.WithError(err).WithField("template", pageTemplate).Error("Failed to render template")
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err = buf.WriteTo(w)
	return err
}

// Options carries the settings controllers need beyond the services
type Options struct {
	Tokens   *tokens.Manager
	Provider authenticator.Provider // nil when OIDC login is not configured

	DevAdminEmail     string
	CaptureEnabled    bool
	WebhookSecret     string
	TrustProxyHeaders bool
}

// Controllers holds all controller instances
type Controllers struct {
	Auth    *AuthController
	Entries *EntriesController
	Webhook *WebhookController
}

// NewControllers creates and initializes all controller instances
func NewControllers(services *services.Services, opts Options) *Controllers {
	return &Controllers{
		Auth:    NewAuthController(opts.Provider, opts.DevAdminEmail),
		Entries: NewEntriesController(services, opts.Tokens, opts.CaptureEnabled, opts.TrustProxyHeaders),
		Webhook: NewWebhookController(services, opts.WebhookSecret, opts.CaptureEnabled, opts.TrustProxyHeaders),
	}
}
