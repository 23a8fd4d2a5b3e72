package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/http/response"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/service"
)

type OperatorHandler struct {
	operatorSvc service.OperatorServiceInterface
	presenceSvc service.PresenceServiceInterface
}

func NewOperatorHandler(operatorSvc service.OperatorServiceInterface, presenceSvc service.PresenceServiceInterface) *OperatorHandler {
	return &OperatorHandler{operatorSvc: operatorSvc, presenceSvc: presenceSvc}
}

// Roster lists every operator for admins; an operator sees only their own
// row.
func (h *OperatorHandler) Roster(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	entries, err := h.operatorSvc.Roster(r.Context(), time.Now())
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load roster", nil)
		return
	}
	if claims.Role == domain.RoleOperator {
		own := entries[:0:0]
		for _, e := range entries {
			if e.ID == claims.UserID {
				own = append(own, e)
			}
		}
		entries = own
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"operators": entries})
}

func (h *OperatorHandler) Detail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	id, err := parsePathID(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid operator id", nil)
		return
	}
	if claims.Role == domain.RoleOperator && claims.UserID != id {
		response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "operators may only view themselves", nil)
		return
	}
	detail, err := h.operatorSvc.Detail(r.Context(), id, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "operator not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load operator", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, detail)
}

func (h *OperatorHandler) Ping(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return
	}
	now := time.Now()
	if err := h.presenceSvc.Ping(r.Context(), claims.UserID, now); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to record ping", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"pinged_at": now})
}
