package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)

	res := doRequest(t, api, http.MethodGet, "/healthz", nil, "")

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api := newTestAPI(t)

	res := doRequest(t, api, http.MethodOptions, "/api/v1/imports", nil, "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Fatalf("expected DELETE in allowed methods, got %q", got)
	}
}

func TestAPIRoutesRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/v1/tickets", "/api/v1/metrics/summary", "/api/v1/metrics/reps"} {
		res := doRequest(t, api, http.MethodGet, path, nil, "")
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", path, res.Code)
		}
		res = doRequest(t, api, http.MethodGet, path, nil, "Bearer not-a-jwt")
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for garbage token, got %d", path, res.Code)
		}
	}
}

func TestTokensAreScopedToTheirTenant(t *testing.T) {
	api := newTestAPI(t)
	doRequest(t, api, http.MethodPost, "/api/v1/imports", domain.ImportRequest{Rows: importGrid()}, bearer(t, api, RoleAdmin))

	other, _, err := api.tokens.IssueToken("intruder", domain.Tenant{OrgID: "org-2", FranchiseID: "fr-9"}, RoleAdmin, 0)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	res := doRequest(t, api, http.MethodGet, "/api/v1/tickets", nil, "Bearer "+other)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := decodeBody[domain.TicketListResponse](t, res); got.Count != 0 {
		t.Fatalf("expected no tickets visible to another tenant, got %d", got.Count)
	}
}

func TestImportRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	admin := bearer(t, api, RoleAdmin)

	for i := 0; i < 4; i++ {
		res := doRequest(t, api, http.MethodPost, "/api/v1/imports", domain.ImportRequest{Rows: importGrid()}, admin)
		if i < 3 && res.Code != http.StatusOK {
			t.Fatalf("import %d expected 200 before limit, got %d", i+1, res.Code)
		}
		if i == 3 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("import 4 expected 429, got %d", res.Code)
		}
	}
}

func TestImportBodyOverLimitRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", maxImportBytes+1024)
	body := fmt.Sprintf(`{"rows":[["%s"]]}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, api, RoleAdmin))
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized import, got %d", res.Code)
	}
}

func TestInternalErrorsDoNotLeakDetails(t *testing.T) {
	api := newTestAPI(t)
	res := httptest.NewRecorder()

	api.writeError(res, http.StatusInternalServerError, fmt.Errorf("pq: relation sale_lines does not exist"))

	if strings.Contains(res.Body.String(), "sale_lines") {
		t.Fatalf("expected generic message, got %s", res.Body.String())
	}
}
