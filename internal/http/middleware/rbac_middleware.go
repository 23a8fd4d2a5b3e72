package middleware

import (
	"net/http"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/http/response"
)

// RequireRole gates a route by explicit role membership. Roles are a closed
// set, so there is no rank comparison: super_admin is listed wherever it is
// allowed.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", map[string]string{"role": string(claims.Role)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
