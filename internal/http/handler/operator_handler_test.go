package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/service"
)

type stubOperatorService struct {
	roster    []service.OperatorRosterEntry
	rosterErr error
	detail    *service.OperatorDetail
	detailErr error
}

func (s *stubOperatorService) Roster(context.Context, time.Time) ([]service.OperatorRosterEntry, error) {
	return s.roster, s.rosterErr
}

func (s *stubOperatorService) Detail(context.Context, uint, time.Time) (*service.OperatorDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubOperatorService) PruneActivity(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubPresenceService struct {
	pings   []uint
	pingErr error
}

func (s *stubPresenceService) Ping(_ context.Context, userID uint, _ time.Time) error {
	s.pings = append(s.pings, userID)
	return s.pingErr
}

func (s *stubPresenceService) Status(_ context.Context, userID uint, _ time.Time) (*service.PresenceStatus, error) {
	return &service.PresenceStatus{UserID: userID}, nil
}

func TestOperatorHandlerRosterScoping(t *testing.T) {
	svc := &stubOperatorService{roster: []service.OperatorRosterEntry{
		{ID: 5, Email: "op5@example.com"},
		{ID: 6, Email: "op6@example.com"},
	}}
	h := NewOperatorHandler(svc, &stubPresenceService{})

	// admins get the full roster
	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/operators", nil), 2, domain.RoleAdmin)
	rr := httptest.NewRecorder()
	h.Roster(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := len(decodeBody(t, rr)["operators"].([]any)); got != 2 {
		t.Fatalf("expected 2 entries for admin, got %d", got)
	}

	// an operator only sees their own row
	req = withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/operators", nil), 5, domain.RoleOperator)
	rr = httptest.NewRecorder()
	h.Roster(rr, req)
	entries := decodeBody(t, rr)["operators"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for operator, got %d", len(entries))
	}
	if entries[0].(map[string]any)["id"] != float64(5) {
		t.Fatalf("wrong row returned: %v", entries[0])
	}
}

func TestOperatorHandlerDetail(t *testing.T) {
	svc := &stubOperatorService{detail: &service.OperatorDetail{
		OperatorRosterEntry: service.OperatorRosterEntry{ID: 5, Email: "op5@example.com", Online: true},
	}}
	h := NewOperatorHandler(svc, &stubPresenceService{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/operators/5", nil), 2, domain.RoleAdmin)
	req = withURLParam(req, "id", "5")
	rr := httptest.NewRecorder()
	h.Detail(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if decodeBody(t, rr)["online"] != true {
		t.Fatalf("online flag missing: %s", rr.Body.String())
	}
}

func TestOperatorHandlerDetailSelfOnly(t *testing.T) {
	svc := &stubOperatorService{detail: &service.OperatorDetail{
		OperatorRosterEntry: service.OperatorRosterEntry{ID: 5},
	}}
	h := NewOperatorHandler(svc, &stubPresenceService{})

	// another operator's page is off limits
	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/operators/6", nil), 5, domain.RoleOperator)
	req = withURLParam(req, "id", "6")
	rr := httptest.NewRecorder()
	h.Detail(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	// their own page works
	req = withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/operators/5", nil), 5, domain.RoleOperator)
	req = withURLParam(req, "id", "5")
	rr = httptest.NewRecorder()
	h.Detail(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestOperatorHandlerDetailNotFound(t *testing.T) {
	h := NewOperatorHandler(&stubOperatorService{detailErr: repository.ErrUserNotFound}, &stubPresenceService{})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/operators/999", nil), 2, domain.RoleAdmin)
	req = withURLParam(req, "id", "999")
	rr := httptest.NewRecorder()
	h.Detail(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestOperatorHandlerPing(t *testing.T) {
	presence := &stubPresenceService{}
	h := NewOperatorHandler(&stubOperatorService{}, presence)

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/me/ping", nil), 5, domain.RoleOperator)
	rr := httptest.NewRecorder()
	h.Ping(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(presence.pings) != 1 || presence.pings[0] != 5 {
		t.Fatalf("ping not recorded: %v", presence.pings)
	}
	if decodeBody(t, rr)["pinged_at"] == nil {
		t.Fatalf("pinged_at missing: %s", rr.Body.String())
	}
}
