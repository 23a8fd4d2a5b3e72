package middleware

import (
	"net/http"
	"path"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/charmops/charmops-backend/internal/http/response"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/security"
)

func RequestID(next http.Handler) http.Handler { return chimiddleware.RequestID(next) }

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// CORS admits only the configured dashboard origins and always allows
// credentials, since every authenticated call rides on cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFMiddleware enforces the double-submit check on every mutating method.
// Safe methods pass through untouched.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		pathGroup := csrfPathGroup(r.URL.Path)
		cookie := security.GetCookie(r, security.CSRFCookieName)
		if cookie == "" {
			observability.RecordCSRFValidation(r.Context(), "missing_cookie", pathGroup)
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "invalid csrf token", nil)
			return
		}
		if r.Header.Get("X-CSRF-Token") != cookie {
			observability.RecordCSRFValidation(r.Context(), "mismatch", pathGroup)
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "invalid csrf token", nil)
			return
		}
		observability.RecordCSRFValidation(r.Context(), "valid", pathGroup)
		next.ServeHTTP(w, r)
	})
}

func csrfPathGroup(rawPath string) string {
	p := strings.Trim(path.Clean(rawPath), "/")
	if p == "." || p == "" {
		return "root"
	}
	parts := strings.Split(p, "/")
	if len(parts) >= 3 && parts[0] == "api" {
		return parts[0] + "/" + parts[2]
	}
	return parts[0]
}
