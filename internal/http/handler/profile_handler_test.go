package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/repository"
	"github.com/charmops/charmops-backend/internal/service"
)

type stubProfileService struct {
	created       *domain.Profile
	createErr     error
	byID          map[uint]*domain.Profile
	listResult    repository.PageResult[domain.Profile]
	listFilter    repository.ProfileFilter
	operatorList  []domain.Profile
	updated       *domain.Profile
	updateErr     error
	updateInput   service.UpdateProfileInput
	assignErr     error
	unassignErr   error
	credential    string
	credentialErr error
	deleteErr     error
}

func (s *stubProfileService) Create(_ context.Context, _ uint, _ service.CreateProfileInput) (*domain.Profile, error) {
	return s.created, s.createErr
}

func (s *stubProfileService) GetByID(_ context.Context, id uint) (*domain.Profile, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p, nil
}

func (s *stubProfileService) ListPaged(_ context.Context, _ repository.PageRequest, filter repository.ProfileFilter) (repository.PageResult[domain.Profile], error) {
	s.listFilter = filter
	return s.listResult, nil
}

func (s *stubProfileService) ListForOperator(context.Context, uint) ([]domain.Profile, error) {
	return s.operatorList, nil
}

func (s *stubProfileService) Update(_ context.Context, _ uint, input service.UpdateProfileInput) (*domain.Profile, error) {
	s.updateInput = input
	return s.updated, s.updateErr
}

func (s *stubProfileService) Assign(_ context.Context, profileID, _ uint) (*domain.Profile, error) {
	if s.assignErr != nil {
		return nil, s.assignErr
	}
	return s.byID[profileID], nil
}

func (s *stubProfileService) Unassign(context.Context, uint, uint) error {
	return s.unassignErr
}

func (s *stubProfileService) RevealCredential(context.Context, uint) (string, error) {
	return s.credential, s.credentialErr
}

func (s *stubProfileService) DeleteByID(context.Context, uint) error {
	return s.deleteErr
}

func operatorID(id uint) *uint { return &id }

func TestProfileHandlerGetHidesForeignProfileFromOperator(t *testing.T) {
	svc := &stubProfileService{byID: map[uint]*domain.Profile{
		7: {ID: 7, Platform: domain.PlatformSofiaDate, Login: "mila", AssignedOperatorID: operatorID(99)},
		8: {ID: 8, Platform: domain.PlatformSofiaDate, Login: "vera"},
	}}
	h := NewProfileHandler(svc)

	// assigned to someone else
	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/7", nil), 5, domain.RoleOperator)
	req = withURLParam(req, "id", "7")
	rr := httptest.NewRecorder()
	h.GetByID(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign profile, got %d", rr.Code)
	}

	// unassigned
	req = withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/8", nil), 5, domain.RoleOperator)
	req = withURLParam(req, "id", "8")
	rr = httptest.NewRecorder()
	h.GetByID(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unassigned profile, got %d", rr.Code)
	}

	// admins see everything
	req = withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/7", nil), 2, domain.RoleAdmin)
	req = withURLParam(req, "id", "7")
	rr = httptest.NewRecorder()
	h.GetByID(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}
}

func TestProfileHandlerListScopesOperators(t *testing.T) {
	svc := &stubProfileService{
		operatorList: []domain.Profile{
			{ID: 7, Platform: domain.PlatformSofiaDate, Login: "mila", AssignedOperatorID: operatorID(5)},
		},
	}
	h := NewProfileHandler(svc)

	// filters from an operator are ignored, they get their assignments
	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/profiles?assigned=unassigned", nil), 5, domain.RoleOperator)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	items := decodeBody(t, rr)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestProfileHandlerListFilters(t *testing.T) {
	svc := &stubProfileService{}
	h := NewProfileHandler(svc)

	req := withClaims(httptest.NewRequest(http.MethodGet,
		"/api/v1/profiles?platform=sofiadate&status=active&assigned=unassigned&search=mila", nil), 2, domain.RoleAdmin)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	f := svc.listFilter
	if f.Platform != domain.PlatformSofiaDate || f.Status != domain.ProfileStatusActive || !f.Unassigned || f.Search != "mila" {
		t.Fatalf("filter not parsed: %+v", f)
	}

	req = withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/profiles?platform=tinder", nil), 2, domain.RoleAdmin)
	rr = httptest.NewRecorder()
	h.List(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", rr.Code)
	}
}

func TestProfileHandlerCreate(t *testing.T) {
	svc := &stubProfileService{
		created: &domain.Profile{ID: 1, Platform: domain.PlatformSakuraDate, Login: "yuki"},
	}
	h := NewProfileHandler(svc)

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/profiles",
		strings.NewReader(`{"platform":"sakuradate","login":"yuki","credential":"pw","display_name":"Yuki"}`)), 2, domain.RoleAdmin)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProfileHandlerCreateDuplicate(t *testing.T) {
	h := NewProfileHandler(&stubProfileService{createErr: service.ErrDuplicateLogin})

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/profiles",
		strings.NewReader(`{"platform":"sakuradate","login":"yuki","credential":"pw","display_name":"Yuki"}`)), 2, domain.RoleAdmin)
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestProfileHandlerOperatorUpdateCredentialForbidden(t *testing.T) {
	svc := &stubProfileService{byID: map[uint]*domain.Profile{
		7: {ID: 7, AssignedOperatorID: operatorID(5)},
	}}
	h := NewProfileHandler(svc)

	req := withClaims(httptest.NewRequest(http.MethodPatch, "/api/v1/profiles/7",
		strings.NewReader(`{"credential":"newpw"}`)), 5, domain.RoleOperator)
	req = withURLParam(req, "id", "7")
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestProfileHandlerOperatorUpdateOwnProfile(t *testing.T) {
	svc := &stubProfileService{
		byID:    map[uint]*domain.Profile{7: {ID: 7, AssignedOperatorID: operatorID(5)}},
		updated: &domain.Profile{ID: 7, DisplayName: "Mila M"},
	}
	h := NewProfileHandler(svc)

	req := withClaims(httptest.NewRequest(http.MethodPatch, "/api/v1/profiles/7",
		strings.NewReader(`{"display_name":"Mila M"}`)), 5, domain.RoleOperator)
	req = withURLParam(req, "id", "7")
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.updateInput.DisplayName == nil || *svc.updateInput.DisplayName != "Mila M" {
		t.Fatalf("display name not forwarded: %+v", svc.updateInput)
	}
}

func TestProfileHandlerRevealCredential(t *testing.T) {
	h := NewProfileHandler(&stubProfileService{credential: "s3cret"})

	req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/profiles/7/credential", nil), 2, domain.RoleAdmin)
	req = withURLParam(req, "id", "7")
	rr := httptest.NewRecorder()
	h.RevealCredential(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if decodeBody(t, rr)["credential"] != "s3cret" {
		t.Fatalf("credential missing: %s", rr.Body.String())
	}
}

func TestProfileHandlerAssignErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not an operator", service.ErrNotAnOperator, http.StatusNotFound},
		{"no such user", repository.ErrUserNotFound, http.StatusNotFound},
		{"no such profile", repository.ErrProfileNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewProfileHandler(&stubProfileService{assignErr: tc.err})
			req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/operators/5/assign",
				strings.NewReader(`{"profile_id":7}`)), 2, domain.RoleAdmin)
			req = withURLParam(req, "id", "5")
			rr := httptest.NewRecorder()
			h.Assign(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
		})
	}
}

func TestProfileHandlerAssignMissingProfileID(t *testing.T) {
	h := NewProfileHandler(&stubProfileService{})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/operators/5/assign",
		strings.NewReader(`{}`)), 2, domain.RoleAdmin)
	req = withURLParam(req, "id", "5")
	rr := httptest.NewRecorder()
	h.Assign(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestProfileHandlerUnassignStalePairing(t *testing.T) {
	h := NewProfileHandler(&stubProfileService{unassignErr: repository.ErrProfileNotAssigned})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/v1/operators/5/unassign",
		strings.NewReader(`{"profile_id":7}`)), 2, domain.RoleAdmin)
	req = withURLParam(req, "id", "5")
	rr := httptest.NewRecorder()
	h.Unassign(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if code, _ := decodeEnvelope(t, rr); code != "CONFLICT" {
		t.Fatalf("unexpected error code %q", code)
	}
}
