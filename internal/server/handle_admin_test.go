package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func adminRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	return req
}

func TestAdminDisabledWithoutHash(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(adminRequest(http.MethodGet, "/api/admin/catalog"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{"bearer", "Bearer " + testAdminToken, "", http.StatusOK},
		{"query token", "", "?token=" + testAdminToken, http.StatusOK},
		{"no token", "", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"basic scheme", "Basic " + testAdminToken, "", http.StatusUnauthorized},
		{"header wins over query", "Bearer nope", "?token=" + testAdminToken, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/catalog"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := env.do(req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAdminCatalog(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(adminRequest(http.MethodGet, "/api/admin/catalog"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp CatalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Cities) != 1 || resp.Cities[0].City != "sanFrancisco" {
		t.Fatalf("cities = %+v, want only sanFrancisco", resp.Cities)
	}
	locs := resp.Cities[0].Locations
	if len(locs) != 2 {
		t.Fatalf("locations = %d, want 2", len(locs))
	}
	if locs[1].Name != "Presidio Park" || locs[1].ClueCount != 3 {
		t.Errorf("second location = %+v", locs[1])
	}
	if body := rec.Body.String(); strings.Contains(body, "Clue 1") {
		t.Error("catalog response leaks clue text")
	}
}

func TestAdminConversationLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	body := `{"object":"page","entry":[{"id":"p1","time":1,"messaging":[{"sender":{"id":"u7"},"recipient":{"id":"p1"},"message":{"mid":"m1","quick_reply":{"payload":"SAN_FRANCISCO"}}}]}]}`
	if rec := env.do(signedWebhook(body)); rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}

	rec := env.do(adminRequest(http.MethodGet, "/api/admin/conversations/u7"))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	var conv ConversationResponse
	if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if conv.SenderID != "u7" || conv.State != "need_location" || conv.Progress.City != "sanFrancisco" {
		t.Errorf("conversation = %+v", conv)
	}

	rec = env.do(adminRequest(http.MethodDelete, "/api/admin/conversations/u7"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = env.do(adminRequest(http.MethodGet, "/api/admin/conversations/u7"))
	conv = ConversationResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if conv.State != "need_city" || conv.Progress.City != "" {
		t.Errorf("after reset = %+v", conv)
	}
}

func TestAdminUnknownConversation(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(adminRequest(http.MethodGet, "/api/admin/conversations/nobody"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var conv ConversationResponse
	json.NewDecoder(rec.Body).Decode(&conv)
	if conv.State != "need_city" {
		t.Errorf("state = %q, want need_city", conv.State)
	}
}
