package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/middleware"
	"github.com/localsales/form-entries/models"
	"github.com/localsales/form-entries/services"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body
const SignatureHeader = "X-Signature"

const maxSubmissionBytes = 1 << 20

// WebhookController receives submission events from the form host
type WebhookController struct {
	services   *services.Services
	secret     []byte
	enabled    bool
	trustProxy bool
}

// NewWebhookController creates a new webhook controller. An empty secret
// disables signature checks.
func NewWebhookController(services *services.Services, secret string, enabled, trustProxy bool) *WebhookController {
	return &WebhookController{
		services:   services,
		secret:     []byte(secret),
		enabled:    enabled,
		trustProxy: trustProxy,
	}
}

// Submission handles POST /hooks/submission
func (c *WebhookController) Submission(w http.ResponseWriter, r *http.Request) {
	if !c.enabled {
		http.Error(w, "Submission capture is disabled", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Submission too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read submission", http.StatusBadRequest)
		return
	}

	if !c.validSignature(r.Header.Get(SignatureHeader), body) {
		log.WithField("remote_addr", r.RemoteAddr).Warn("Rejected submission with invalid signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var submission models.Submission
	if err := json.Unmarshal(body, &submission); err != nil {
		http.Error(w, "Invalid submission payload", http.StatusBadRequest)
		return
	}

	// Behind a trusted proxy the forwarded client address stands in for a
	// host that sent no request metadata of its own
	req := &submission.Request
	if req.ClientIP == nil && req.RemoteAddr == "" && c.trustProxy {
		req.RemoteAddr = middleware.ClientIP(r, true)
	}

	// Capture failures are logged by the service and never reach the host
	c.services.Capture.Capture(r.Context(), &submission)

	w.WriteHeader(http.StatusNoContent)
}

// validSignature checks header against "sha256=" + hex(HMAC-SHA256(secret, body))
func (c *WebhookController) validSignature(header string, body []byte) bool {
	if len(c.secret) == 0 {
		return true
	}

	return hmac.Equal([]byte(header), []byte(Sign(c.secret, body)))
}

// Sign returns the signature header value for body under secret
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
