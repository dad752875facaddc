package middleware

import (
	"net/http"

	"gitea.com/go-chi/session"
	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/userctx"
)

// CapabilityManageEntries allows reading and deleting stored entries
const CapabilityManageEntries = "manage_entries"

// Session keys
const (
	SessionUserID        = "user_id"
	SessionUserEmail     = "user_email"
	SessionUserName      = "user_name"
	SessionState         = "state"
	SessionRedirectAfter = "redirect_after_login"
)

// CapabilityChecker reports whether the user with email holds capability
type CapabilityChecker func(email, capability string) bool

// RequireAuth ensures the user is authenticated
// If not authenticated, redirects to /login and stores the intended destination
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.GetSession(r)
		userID, _ := sess.Get(SessionUserID).(string)

		if userID == "" {
			// Store the intended destination for redirect after login
			sess.Set(SessionRedirectAfter, r.URL.RequestURI())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		email, _ := sess.Get(SessionUserEmail).(string)

		// Add user identity to request context for use in handlers
		ctx := userctx.SetUserID(r.Context(), userID)
		ctx = userctx.SetUserEmail(ctx, email)
		ctx = userctx.SetSessionID(ctx, sess.ID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireCapability rejects users without capability with an empty 403
func RequireCapability(capability string, check CapabilityChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := userctx.GetUserEmail(r.Context())
			if !check(email, capability) {
				log.WithFields(log.Fields{
					"user_email": email,
					"capability": capability,
					"path":       r.URL.Path,
				}).Warn("Access denied")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
