package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localsales/form-entries/config"
	"github.com/localsales/form-entries/controllers"
	"github.com/localsales/form-entries/database"
	"github.com/localsales/form-entries/repositories"
	"github.com/localsales/form-entries/services"
	"github.com/localsales/form-entries/tokens"
)

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	db, err := database.InitializeDatabase(config.DBConfig{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srvs := services.NewServices(repositories.NewRepositories(db, time.UTC), time.UTC)
	manager, err := tokens.NewManager([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	ctrl := controllers.NewControllers(srvs, controllers.Options{
		Tokens:         manager,
		DevAdminEmail:  devAdminEmail(cfg),
		CaptureEnabled: cfg.CaptureEnabled,
	})
	return setupRouter(cfg, ctrl)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &config.Config{Environment: config.DEVELOPMENT, CaptureEnabled: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "healthy"`)
}

func TestAdminPageRequiresLogin(t *testing.T) {
	router := newTestRouter(t, &config.Config{Environment: config.DEVELOPMENT, CaptureEnabled: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, controllers.EntriesPath, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestDevelopmentAdminFlow(t *testing.T) {
	cfg := &config.Config{
		Environment:    config.DEVELOPMENT,
		DevAdminEmail:  "dev@example.com",
		CaptureEnabled: true,
	}
	router := newTestRouter(t, cfg)

	// Capture one submission through the webhook
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hooks/submission",
		strings.NewReader(`{"form": {"id": 7, "settings": {"form_title": "Contact"}}, "fields": {"1": {"name": "Name", "value": "Ana"}}}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Log in as the development admin
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, controllers.EntriesPath, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Contact (ID: 7)")
}

func TestNonAdminIsForbidden(t *testing.T) {
	cfg := &config.Config{
		Environment:    config.DEVELOPMENT,
		DevAdminEmail:  "dev@example.com",
		CaptureEnabled: true,
	}
	router := newTestRouter(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := rec.Result().Cookies()

	// The dev admin loses the capability once it is no longer configured
	cfg.DevAdminEmail = ""

	req := httptest.NewRequest(http.MethodGet, controllers.EntriesPath, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Body.String())
}
