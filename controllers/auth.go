package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"strings"

	"gitea.com/go-chi/session"
	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/authenticator"
	"github.com/localsales/form-entries/middleware"
)

// AuthController handles admin login and logout
type AuthController struct {
	provider      authenticator.Provider
	devAdminEmail string
}

// NewAuthController creates a new auth controller. Without a provider, login
// signs in devAdminEmail directly when it is set.
func NewAuthController(provider authenticator.Provider, devAdminEmail string) *AuthController {
	return &AuthController{
		provider:      provider,
		devAdminEmail: devAdminEmail,
	}
}

// Login initiates the authentication process
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.GetSession(r)

	if ac.provider == nil {
		if ac.devAdminEmail == "" {
			http.Error(w, "Login is not configured", http.StatusServiceUnavailable)
			return
		}

		log.WithField("user_email", ac.devAdminEmail).Warn("Signing in development admin without a login provider")
		sess.Set(middleware.SessionUserID, "dev:"+ac.devAdminEmail)
		sess.Set(middleware.SessionUserEmail, ac.devAdminEmail)
		sess.Set(middleware.SessionUserName, ac.devAdminEmail)
		http.Redirect(w, r, redirectAfterLogin(sess), http.StatusSeeOther)
		return
	}

	// Generate random state
	state, err := generateRandomState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Save the state in the session to validate in callback
	sess.Set(middleware.SessionState, state)

	// Redirect to the provider login page
	http.Redirect(w, r, ac.provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the callback from the OpenID Connect provider
func (ac *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	if ac.provider == nil {
		http.NotFound(w, r)
		return
	}

	// Get session
	sess := session.GetSession(r)

	// Verify state
	storedState, _ := sess.Get(middleware.SessionState).(string)
	if storedState == "" {
		http.Error(w, "State not found in session", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != storedState {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	// Clear the state from session
	sess.Delete(middleware.SessionState)

	claims, err := ac.provider.Authenticate(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.WithError(err).Warn("Failed to authenticate with the identity provider")
		http.Error(w, "Failed to sign in with the identity provider", http.StatusUnauthorized)
		return
	}

	email := claims.Email()
	if claims.Subject() == "" || email == "" {
		http.Error(w, "Your account has no verified email address", http.StatusForbidden)
		return
	}

	// Store the user session
	sess.Set(middleware.SessionUserID, claims.Subject())
	sess.Set(middleware.SessionUserEmail, email)
	sess.Set(middleware.SessionUserName, claims.DisplayName())

	log.WithField("user_email", email).Info("User signed in")

	http.Redirect(w, r, redirectAfterLogin(sess), http.StatusSeeOther)
}

// Logout clears the session
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.GetSession(r)
	if err := sess.Flush(); err != nil {
		log.WithError(err).Warn("Failed to clear session")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// redirectAfterLogin pops the stored destination; only local paths are honoured
func redirectAfterLogin(sess session.Store) string {
	target, _ := sess.Get(middleware.SessionRedirectAfter).(string)
	sess.Delete(middleware.SessionRedirectAfter)

	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return EntriesPath
	}
	return target
}

// generateRandomState generates a random state value for CSRF protection
func generateRandomState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
