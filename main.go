package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/localsales/form-entries/authenticator"
	"github.com/localsales/form-entries/config"
	"github.com/localsales/form-entries/controllers"
	"github.com/localsales/form-entries/database"
	authmiddleware "github.com/localsales/form-entries/middleware"
	"github.com/localsales/form-entries/repositories"
	"github.com/localsales/form-entries/services"
	"github.com/localsales/form-entries/tokens"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "activate the database schema and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.InitLogging(cfg)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve time zone: %v", err)
	}

	// Initialize database
	db, err := database.InitializeDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if *migrateOnly {
		log.Info("Schema is up to date.")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize repositories
	repos := repositories.NewRepositories(db, loc)

	// Initialize services
	srvs := services.NewServices(repos, loc)

	tokenManager, err := tokens.NewManager(sessionSecret(cfg), cfg.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize confirmation tokens: %v", err)
	}

	// Initialize the OpenID Connect provider when configured
	var provider authenticator.Provider
	if cfg.OIDCConfigured() {
		provider, err = authenticator.NewOpenIDProvider(ctx, authenticator.Config{
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			CallbackURL:  cfg.OIDC.CallbackURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize OpenID Connect provider: %v", err)
		}
	} else if !cfg.IsDevelopment() || cfg.DevAdminEmail == "" {
		log.Warn("OIDC is not configured; admin login is unavailable.")
	}

	// Initialize controllers
	ctrl := controllers.NewControllers(srvs, controllers.Options{
		Tokens:            tokenManager,
		Provider:          provider,
		DevAdminEmail:     devAdminEmail(cfg),
		CaptureEnabled:    cfg.CaptureEnabled,
		WebhookSecret:     cfg.WebhookSecret,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	// Set up router
	r := setupRouter(cfg, ctrl)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":     cfg.Port,
			"driver":   cfg.Database.Driver,
			"timezone": loc.String(),
		}).Info("Form entries service starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown error: %v", err)
	}
}

// setupRouter configures all routes
func setupRouter(cfg *config.Config, ctrl *controllers.Controllers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(authmiddleware.RequestLogger(log.StandardLogger()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second)) // 60 second timeout for OAuth callbacks

	// PUBLIC ROUTES (no session, no authentication)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "service": "form-entries"}`)
	})
	r.Post("/hooks/submission", ctrl.Webhook.Submission)

	r.Group(func(r chi.Router) {
		// Session middleware
		r.Use(session.Sessioner(session.Options{
			Provider:    "memory",
			CookieName:  "form_entries_session",
			Secure:      cfg.UseHTTPS, // Set to true when USE_HTTPS=true (production)
			Gclifetime:  3600,         // Session lifetime in seconds
			Maxlifetime: 3600,
		}))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, controllers.EntriesPath, http.StatusSeeOther)
		})
		r.Get("/login", ctrl.Auth.Login)
		r.Get("/callback", ctrl.Auth.Callback)
		r.Get("/logout", ctrl.Auth.Logout)

		// PROTECTED ROUTES (authentication and manage_entries required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoCache)
			r.Use(authmiddleware.RequireAuth)
			r.Use(authmiddleware.RequireCapability(authmiddleware.CapabilityManageEntries, func(email, capability string) bool {
				return capability == authmiddleware.CapabilityManageEntries && cfg.IsAdmin(email)
			}))

			r.Get(controllers.EntriesPath, ctrl.Entries.Index)
		})
	})

	return r
}

// sessionSecret returns SESSION_SECRET, or a random per-process secret in
// development. Tokens signed with a random secret die with the process.
func sessionSecret(cfg *config.Config) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}

	log.Warn("SESSION_SECRET is not set; using a random secret for this process.")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return secret
}

// devAdminEmail returns DEV_ADMIN_EMAIL only in development
func devAdminEmail(cfg *config.Config) string {
	if !cfg.IsDevelopment() {
		return ""
	}
	return cfg.DevAdminEmail
}
