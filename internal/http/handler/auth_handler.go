package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/http/response"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/security"
	"github.com/charmops/charmops-backend/internal/service"
)

type AuthHandler struct {
	authSvc    service.AuthServiceInterface
	cookieMgr  *security.CookieManager
	refreshTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookieMgr: cookieMgr, refreshTTL: refreshTTL}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	result, err := h.authSvc.Login(r.Context(), body.Email, body.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			observability.Audit(r, "auth.login.failed", "reason", "invalid_credentials")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		return
	}
	h.cookieMgr.SetTokenCookies(w, result.AccessToken, result.RefreshToken, result.CSRFToken, h.refreshTTL)
	observability.Audit(r, "auth.login.success", "user_id", result.User.ID, "role", string(result.User.Role))
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":       result.User,
		"csrf_token": result.CSRFToken,
		"expires_at": result.ExpiresAt,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refresh := security.GetCookie(r, security.RefreshCookieName)
	if refresh == "" {
		observability.Audit(r, "auth.refresh.failed", "reason", "missing_refresh_cookie")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
		return
	}
	result, err := h.authSvc.Refresh(r.Context(), refresh, r.UserAgent(), clientIP(r))
	if err != nil {
		observability.Audit(r, "auth.refresh.failed", "reason", "invalid_refresh")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token", nil)
		return
	}
	h.cookieMgr.SetTokenCookies(w, result.AccessToken, result.RefreshToken, result.CSRFToken, h.refreshTTL)
	observability.Audit(r, "auth.refresh.success", "user_id", result.User.ID)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":       result.User,
		"csrf_token": result.CSRFToken,
		"expires_at": result.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	if err := h.authSvc.Logout(r.Context(), claims.UserID); err != nil {
		observability.Audit(r, "auth.logout.failed", "user_id", claims.UserID, "reason", "revoke_error")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	h.cookieMgr.ClearTokenCookies(w)
	observability.Audit(r, "auth.logout.success", "user_id", claims.UserID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// ChangePassword revokes every session on success, so the client must log in
// again with the new password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	err := h.authSvc.ChangePassword(r.Context(), claims.UserID, body.CurrentPassword, body.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		case errors.Is(err, service.ErrInvalidCredentials):
			observability.Audit(r, "auth.change_password.failed", "user_id", claims.UserID, "reason", "wrong_current_password")
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "current password is incorrect", nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "password change failed", nil)
			return
		}
	}
	h.cookieMgr.ClearTokenCookies(w)
	observability.Audit(r, "auth.change_password.success", "user_id", claims.UserID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_changed"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	user, err := h.authSvc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "user no longer exists", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load user", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"user": user})
}
