package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/security"
)

func requestWithRole(role domain.Role) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	claims := &security.Claims{UserID: 1, Role: role}
	return req.WithContext(context.WithValue(req.Context(), ClaimsContextKey, claims))
}

func TestRequireRoleDenied(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("expected middleware to block request")
	})).ServeHTTP(rr, requestWithRole(domain.RoleOperator))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if code := decodeErrCode(t, rr.Body.String()); code != "FORBIDDEN" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestRequireRoleAllowed(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin)

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin} {
		rr := httptest.NewRecorder()
		called := false
		mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		})).ServeHTTP(rr, requestWithRole(role))

		if rr.Code != http.StatusOK || !called {
			t.Fatalf("expected %s to pass, got %d called=%v", role, rr.Code, called)
		}
	}
}

func TestRequireRoleMissingClaims(t *testing.T) {
	mw := RequireRole(domain.RoleAdmin)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("expected middleware to block request")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
