package http

import (
	"log/slog"
	"net/http"

	"festregistration/internal/delivery/http/controllers"
	h "festregistration/internal/delivery/http/helpers"
	"festregistration/internal/delivery/http/middleware"
	"festregistration/internal/domain"
	"festregistration/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds the dependencies needed to build the HTTP handler.
type RouterConfig struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string

	Auth          *controllers.AuthController
	Events        *controllers.EventController
	Registrations *controllers.RegistrationController
	Admin         *controllers.AdminController
}

// NewRouter initializes the HTTP router with all application routes and wraps
// it in the CORS, request logging and metrics middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)
	optional := middleware.OptionalAuth(cfg.Verifier)
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireAdmin(next))
	}

	// Operational
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// Auth
	mux.HandleFunc("POST /auth/signup", cfg.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", cfg.Auth.Login)
	mux.HandleFunc("GET /auth/me", auth(cfg.Auth.Me))
	mux.HandleFunc("PUT /auth/profile", auth(cfg.Auth.UpdateProfile))

	// Events
	mux.HandleFunc("GET /events", cfg.Events.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", optional(cfg.Events.GetEvent))

	// Registrations
	mux.HandleFunc("GET /registrations/mine", auth(cfg.Registrations.Mine))
	mux.HandleFunc("POST /registrations/email-summary", auth(cfg.Registrations.EmailSummary))
	mux.HandleFunc("GET /registrations/{pid}/exists", auth(cfg.Registrations.ValidatePID))
	mux.HandleFunc("POST /registrations/{eventID}", auth(cfg.Registrations.Register))
	mux.HandleFunc("DELETE /registrations/{eventID}", auth(cfg.Registrations.Cancel))

	// Admin
	mux.HandleFunc("GET /admin/stats", admin(cfg.Admin.Stats))
	mux.HandleFunc("POST /admin/reconcile", admin(cfg.Admin.Reconcile))
	mux.HandleFunc("GET /admin/users", admin(cfg.Admin.ListUsers))
	mux.HandleFunc("DELETE /admin/users/{userID}", admin(cfg.Admin.DeleteUser))
	mux.HandleFunc("GET /admin/events", admin(cfg.Admin.ListEvents))
	mux.HandleFunc("POST /admin/events", admin(cfg.Admin.CreateEvent))
	mux.HandleFunc("PUT /admin/events/{eventID}", admin(cfg.Admin.UpdateEvent))
	mux.HandleFunc("DELETE /admin/events/{eventID}", admin(cfg.Admin.DeleteEvent))
	mux.HandleFunc("PATCH /admin/events/{eventID}/toggle", admin(cfg.Admin.ToggleListing))
	mux.HandleFunc("PUT /admin/events/{eventID}/image", admin(cfg.Admin.UploadImage))
	mux.HandleFunc("GET /admin/events/{eventID}/registrations", admin(cfg.Admin.EventRegistrations))
	mux.HandleFunc("DELETE /admin/registrations/{registrationID}", admin(cfg.Admin.DeleteRegistration))
	mux.HandleFunc("PATCH /admin/registrations/{registrationID}", admin(cfg.Admin.UpdateTeamName))

	var handler http.Handler = mux
	handler = middleware.Metrics(cfg.Metrics, handler)
	handler = middleware.LoggingMiddleware(cfg.Logger, handler)
	return middleware.CORS(cfg.AllowedOrigins, handler)
}
