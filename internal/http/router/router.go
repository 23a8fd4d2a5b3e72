package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/health"
	"github.com/charmops/charmops-backend/internal/http/handler"
	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/http/response"
	"github.com/charmops/charmops-backend/internal/security"
)

// Distinct types for the two limiter slots so the injector can tell them
// apart.
type (
	GlobalRateLimiterFunc func(http.Handler) http.Handler
	AuthRateLimiterFunc   func(http.Handler) http.Handler
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	InviteHandler     *handler.InviteHandler
	ProfileHandler    *handler.ProfileHandler
	OperatorHandler   *handler.OperatorHandler
	JWTManager        *security.JWTManager
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter GlobalRateLimiterFunc
	AuthRateLimiter   AuthRateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}
	auth := middleware.AuthMiddleware(dep.JWTManager)
	adminOnly := middleware.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFMiddleware)
				r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
				r.With(auth).Post("/logout", dep.AuthHandler.Logout)
				r.With(auth, authLimiter).Post("/change-password", dep.AuthHandler.ChangePassword)
			})
		})

		r.With(auth).Get("/me", dep.AuthHandler.Me)
		r.With(auth, middleware.CSRFMiddleware).Post("/me/ping", dep.OperatorHandler.Ping)

		r.Route("/invites", func(r chi.Router) {
			// token resolution and accept stay public so invitees can
			// onboard without a session
			r.With(authLimiter).Get("/{token}/resolve", dep.InviteHandler.Resolve)
			r.With(authLimiter).Post("/{token}/accept", dep.InviteHandler.Accept)
			r.Group(func(r chi.Router) {
				r.Use(auth, adminOnly)
				r.Get("/", dep.InviteHandler.List)
				r.Group(func(r chi.Router) {
					r.Use(middleware.CSRFMiddleware)
					r.Post("/", dep.InviteHandler.Create)
					r.Patch("/{id}", dep.InviteHandler.Revoke)
				})
			})
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Use(auth)
			r.Get("/", dep.ProfileHandler.List)
			r.Get("/{id}", dep.ProfileHandler.GetByID)
			r.With(adminOnly).Get("/{id}/credential", dep.ProfileHandler.RevealCredential)
			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFMiddleware)
				r.With(adminOnly).Post("/", dep.ProfileHandler.Create)
				r.Patch("/{id}", dep.ProfileHandler.Update)
				r.With(middleware.RequireRole(domain.RoleSuperAdmin)).Delete("/{id}", dep.ProfileHandler.Delete)
			})
		})

		r.Route("/operators", func(r chi.Router) {
			r.Use(auth)
			r.Get("/", dep.OperatorHandler.Roster)
			r.Get("/{id}", dep.OperatorHandler.Detail)
			r.Group(func(r chi.Router) {
				r.Use(adminOnly, middleware.CSRFMiddleware)
				r.Post("/{id}/assign", dep.ProfileHandler.Assign)
				r.Post("/{id}/unassign", dep.ProfileHandler.Unassign)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
