package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/charmops/charmops-backend/internal/domain"
	"github.com/charmops/charmops-backend/internal/http/middleware"
	"github.com/charmops/charmops-backend/internal/security"
)

func withClaims(req *http.Request, userID uint, role domain.Role) *http.Request {
	claims := &security.Claims{UserID: userID, Role: role}
	return req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) (code string, details map[string]any) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope %q: %v", rr.Body.String(), err)
	}
	return envelope.Error.Code, envelope.Error.Details
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestParsePathID(t *testing.T) {
	if _, err := parsePathID("0"); err == nil {
		t.Fatal("zero id must be rejected")
	}
	if _, err := parsePathID("abc"); err == nil {
		t.Fatal("non-numeric id must be rejected")
	}
	id, err := parsePathID(" 42 ")
	if err != nil || id != 42 {
		t.Fatalf("parsePathID: id=%d err=%v", id, err)
	}
}

func TestParsePageRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&page_size=50", nil)
	pr, err := parsePageRequest(req)
	if err != nil || pr.Page != 2 || pr.PageSize != 50 {
		t.Fatalf("parsePageRequest: %+v err=%v", pr, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?page_size=5000", nil)
	if _, err := parsePageRequest(req); err == nil {
		t.Fatal("oversized page_size must be rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/?page=-1", nil)
	if _, err := parsePageRequest(req); err == nil {
		t.Fatal("negative page must be rejected")
	}
}
