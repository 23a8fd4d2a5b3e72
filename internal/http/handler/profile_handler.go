package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/http/response"
	"github.com/charmops/charmops-backend/internal/observability"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/service"
)

type ProfileHandler struct {
	profileSvc service.ProfileServiceInterface
}

func NewProfileHandler(profileSvc service.ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	var body struct {
		Platform    domain.Platform `json:"platform"`
		Login       string          `json:"login"`
		Credential  string          `json:"credential"`
		DisplayName string          `json:"display_name"`
		Locale      string          `json:"locale"`
		AvatarURL   string          `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	created, err := h.profileSvc.Create(r.Context(), claims.UserID, service.CreateProfileInput{
		Platform:    body.Platform,
		Login:       body.Login,
		Credential:  body.Credential,
		DisplayName: body.DisplayName,
		Locale:      body.Locale,
		AvatarURL:   body.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlatform),
			errors.Is(err, service.ErrInvalidLogin),
			errors.Is(err, service.ErrInvalidDisplayName),
			errors.Is(err, service.ErrEmptyCredential):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		case errors.Is(err, service.ErrDuplicateLogin):
			response.Error(w, r, http.StatusConflict, "CONFLICT", err.Error(), nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create profile", nil)
			return
		}
	}
	observability.Audit(r, "profile.create.success", "actor_id", claims.UserID, "profile_id", created.ID, "platform", string(created.Platform))
	response.JSON(w, r, http.StatusCreated, created)
}

// List gives admins the filterable collection; operators always get exactly
// their own assigned profiles no matter what filters they send.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}

	if claims.Role == domain.RoleOperator {
		profiles, err := h.profileSvc.ListForOperator(r.Context(), claims.UserID)
		if err != nil {
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list profiles", nil)
			return
		}
		response.JSON(w, r, http.StatusOK, paginatedData(profiles, 1, len(profiles), int64(len(profiles)), 1))
		return
	}

	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	filter, err := parseProfileFilter(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	res, err := h.profileSvc.ListPaged(r.Context(), pageReq, filter)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list profiles", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *ProfileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid profile id", nil)
		return
	}
	profile, err := h.profileSvc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load profile", nil)
		return
	}
	// an unassigned profile does not exist from an operator's point of view
	if claims.Role == domain.RoleOperator && !assignedTo(profile, claims.UserID) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid profile id", nil)
		return
	}
	var body struct {
		DisplayName *string               `json:"display_name"`
		Locale      *string               `json:"locale"`
		AvatarURL   *string               `json:"avatar_url"`
		Status      *domain.ProfileStatus `json:"status"`
		Credential  *string               `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	if claims.Role == domain.RoleOperator {
		profile, err := h.profileSvc.GetByID(r.Context(), id)
		if err != nil || !assignedTo(profile, claims.UserID) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		}
		if body.Credential != nil {
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "operators cannot change credentials", nil)
			return
		}
	}

	updated, err := h.profileSvc.Update(r.Context(), id, service.UpdateProfileInput{
		DisplayName: body.DisplayName,
		Locale:      body.Locale,
		AvatarURL:   body.AvatarURL,
		Status:      body.Status,
		Credential:  body.Credential,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProfileNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		case errors.Is(err, service.ErrInvalidDisplayName),
			errors.Is(err, service.ErrInvalidStatus),
			errors.Is(err, service.ErrEmptyCredential),
			errors.Is(err, service.ErrProfileNoUpdates):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to update profile", nil)
			return
		}
	}
	observability.Audit(r, "profile.update.success", "actor_id", claims.UserID, "profile_id", id)
	response.JSON(w, r, http.StatusOK, updated)
}

func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid profile id", nil)
		return
	}
	if err := h.profileSvc.DeleteByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete profile", nil)
		return
	}
	observability.Audit(r, "profile.delete.success", "actor_id", claims.UserID, "profile_id", id)
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

// RevealCredential unseals the platform password for admins. Every call is
// an audit event; the plaintext appears nowhere else in the API.
func (h *ProfileHandler) RevealCredential(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid profile id", nil)
		return
	}
	credential, err := h.profileSvc.RevealCredential(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to reveal credential", nil)
		return
	}
	observability.Audit(r, "profile.credential.revealed", "actor_id", claims.UserID, "profile_id", id)
	response.JSON(w, r, http.StatusOK, map[string]string{"credential": credential})
}

func (h *ProfileHandler) Assign(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	operatorID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid operator id", nil)
		return
	}
	var body struct {
		ProfileID uint `json:"profile_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProfileID == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "profile_id is required", nil)
		return
	}

	assigned, err := h.profileSvc.Assign(r.Context(), body.ProfileID, operatorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, service.ErrNotAnOperator), errors.Is(err, repository.ErrProfileNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "operator or profile not found", nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to assign profile", nil)
			return
		}
	}
	observability.Audit(r, "profile.assign.success", "actor_id", claims.UserID, "profile_id", body.ProfileID, "operator_id", operatorID)
	response.JSON(w, r, http.StatusOK, assigned)
}

// Unassign is conditional on the claimed operator actually holding the
// profile; a stale pairing is a conflict and nothing changes.
func (h *ProfileHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	operatorID, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid operator id", nil)
		return
	}
	var body struct {
		ProfileID uint `json:"profile_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProfileID == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "profile_id is required", nil)
		return
	}

	if err := h.profileSvc.Unassign(r.Context(), body.ProfileID, operatorID); err != nil {
		switch {
		case errors.Is(err, repository.ErrProfileNotAssigned):
			response.Error(w, r, http.StatusConflict, "CONFLICT", "profile is not assigned to this operator", nil)
			return
		case errors.Is(err, repository.ErrProfileNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile not found", nil)
			return
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to unassign profile", nil)
			return
		}
	}
	observability.Audit(r, "profile.unassign.success", "actor_id", claims.UserID, "profile_id", body.ProfileID, "operator_id", operatorID)
	response.JSON(w, r, http.StatusOK, map[string]any{"unassigned": true})
}

func assignedTo(p *domain.Profile, operatorID uint) bool {
	return p.AssignedOperatorID != nil && *p.AssignedOperatorID == operatorID
}

func parseProfileFilter(r *http.Request) (repository.ProfileFilter, error) {
	var filter repository.ProfileFilter
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("platform")); raw != "" {
		platform := domain.Platform(raw)
		if !platform.Valid() {
			return filter, errors.New("unknown platform filter")
		}
		filter.Platform = platform
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := domain.ProfileStatus(raw)
		if !status.Valid() {
			return filter, errors.New("unknown status filter")
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(q.Get("assigned")); raw != "" {
		if raw == "unassigned" {
			filter.Unassigned = true
		} else {
			id, err := parsePathID(raw)
			if err != nil {
				return filter, errors.New("assigned must be an operator id or \"unassigned\"")
			}
			filter.AssignedTo = &id
		}
	}
	filter.Search = strings.TrimSpace(q.Get("search"))
	return filter, nil
}
