package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/tutorhub-identity/internal/auth"
	"github.com/redmonkez12/tutorhub-identity/internal/config"
	"github.com/redmonkez12/tutorhub-identity/internal/httputil"
	"github.com/redmonkez12/tutorhub-identity/internal/logging"
	"github.com/redmonkez12/tutorhub-identity/internal/user"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth       *auth.Handler
	Admin      *auth.AdminHandler
	Middleware *auth.Middleware
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: false,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(!cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled", "path", "/swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Public auth routes
	r.Post("/login", h.Auth.Login)
	r.Post("/signup", h.Auth.Signup)
	r.Post("/forgot-password", h.Auth.ForgotPassword)
	r.Post("/reset-password", h.Auth.ResetPassword)
	r.Post("/resend-verification", h.Auth.ResendVerificationEmail)
	r.Post("/verify-email", h.Auth.VerifyEmail)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(h.Middleware.RequireAuth)
		r.Get("/me", h.Auth.Me)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireRole(user.RoleAdmin))
			r.Get("/tutors", h.Admin.ListPendingTutors)
			r.Put("/tutors", h.Admin.UpdateTutorApproval)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
