package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/http/response"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/service"
)

type InviteHandler struct {
	inviteSvc service.InviteServiceInterface
	authSvc   service.AuthServiceInterface
}

func NewInviteHandler(inviteSvc service.InviteServiceInterface, authSvc service.AuthServiceInterface) *InviteHandler {
	return &InviteHandler{inviteSvc: inviteSvc, authSvc: authSvc}
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var body struct {
		Email string      `json:"email"`
		Role  domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	inviter, err := h.authSvc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "user no longer exists", nil)
		return
	}

	invite, err := h.inviteSvc.Create(r.Context(), service.CreateInviteInput{
		InviterID:   inviter.ID,
		InviterRole: inviter.Role,
		InviterName: strings.TrimSpace(inviter.FirstName + " " + inviter.LastName),
		Email:       body.Email,
		Role:        body.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrRoleNotInvitable):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		case errors.Is(err, service.ErrRoleNotAllowed):
			observability.Audit(r, "invite.create.denied", "actor_id", inviter.ID, "requested_role", string(body.Role))
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			return
		case errors.Is(err, service.ErrUserExists):
			response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
			return
		case errors.Is(err, service.ErrEmailSendFailed):
			// the invite row survived; re-inviting the address re-sends
			observability.Audit(r, "invite.create.email_failed", "actor_id", inviter.ID, "invite_id", invite.ID)
			response.Error(w, r, http.StatusBadGateway, "EMAIL_SEND_FAILED", err.Error(), map[string]any{"invite_id": invite.ID})
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create invite", nil)
			return
		}
	}
	observability.Audit(r, "invite.create.success", "actor_id", inviter.ID, "invite_id", invite.ID, "role", string(invite.Role))
	response.JSON(w, r, http.StatusCreated, invite)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	res, err := h.inviteSvc.ListPaged(r.Context(), pageReq, claims.UserID, claims.Role)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list invites", nil)
		return
	}

	now := time.Now()
	items := make([]map[string]any, 0, len(res.Items))
	for _, inv := range res.Items {
		items = append(items, inviteView(&inv, now))
	}
	response.JSON(w, r, http.StatusOK, paginatedData(items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid invite id", nil)
		return
	}
	if err := h.inviteSvc.Revoke(r.Context(), id, claims.UserID, claims.Role); err != nil {
		switch {
		case errors.Is(err, repository.ErrInviteNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "invite not found", nil)
			return
		case errors.Is(err, service.ErrInviteResolved):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "invite already accepted", nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to revoke invite", nil)
			return
		}
	}
	observability.Audit(r, "invite.revoke.success", "actor_id", claims.UserID, "invite_id", id)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": true})
}

// Resolve is the public token check behind the accept form. Revoked tokens
// deliberately read as unknown.
func (h *InviteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	invite, err := h.inviteSvc.Resolve(r.Context(), chi.URLParam(r, "token"), time.Now())
	if err != nil {
		writeResolveError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"email":      invite.Email,
		"role":       invite.Role,
		"expires_at": invite.ExpiresAt,
	})
}

func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	user, err := h.inviteSvc.Accept(r.Context(), service.AcceptInviteInput{
		Token:     chi.URLParam(r, "token"),
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Password:  body.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInviteInvalid), errors.Is(err, service.ErrInviteUsed), errors.Is(err, service.ErrInviteExpired):
			writeResolveError(w, r, err)
			return
		case errors.Is(err, service.ErrWeakPassword):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		case errors.Is(err, service.ErrUserExists):
			response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
			return
		default:
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	observability.Audit(r, "invite.accept.success", "user_id", user.ID, "role", string(user.Role))
	response.JSON(w, r, http.StatusCreated, map[string]any{"user_id": user.ID})
}

func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInviteUsed):
		response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), map[string]string{"code": "used"})
	case errors.Is(err, service.ErrInviteExpired):
		response.Error(w, r, http.StatusGone, "GONE", err.Error(), map[string]string{"code": "expired"})
	case errors.Is(err, service.ErrInviteInvalid):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), map[string]string{"code": "invalid"})
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to resolve invite", nil)
	}
}

// inviteView adds the read-time status the clients render as a badge.
func inviteView(inv *domain.Invite, now time.Time) map[string]any {
	return map[string]any{
		"id":          inv.ID,
		"email":       inv.Email,
		"role":        inv.Role,
		"status":      inv.Status(now),
		"expires_at":  inv.ExpiresAt,
		"accepted_at": inv.AcceptedAt,
		"invited_by":  inv.InvitedByUserID,
		"created_at":  inv.CreatedAt,
	}
}
