package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsRequest(t *testing.T, m *CORSMiddleware, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/v1/pets", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORSExactOrigin(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://app.pawsync.io"})

	rec := corsRequest(t, m, http.MethodGet, "https://app.pawsync.io")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.pawsync.io" {
		t.Fatalf("allowed origin not echoed: %q", got)
	}

	rec = corsRequest(t, m, http.MethodGet, "https://evil.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestCORSSubdomainPattern(t *testing.T) {
	m := NewCORSMiddleware([]string{"*.pawsync.io"})

	rec := corsRequest(t, m, http.MethodGet, "https://staging.pawsync.io")
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("subdomain origin not allowed")
	}

	rec = corsRequest(t, m, http.MethodGet, "https://notpawsync.io")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("non-subdomain origin allowed: %q", got)
	}
}

func TestCORSWildcard(t *testing.T) {
	m := NewCORSMiddleware([]string{"*"})

	rec := corsRequest(t, m, http.MethodGet, "https://anywhere.example.com")
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("wildcard config must allow any origin")
	}

	// no Origin header, no CORS headers
	rec = corsRequest(t, m, http.MethodGet, "")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("same-origin request got CORS headers: %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	m := NewCORSMiddleware([]string{"https://app.pawsync.io"})

	rec := corsRequest(t, m, http.MethodOptions, "https://app.pawsync.io")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("preflight missing allowed methods")
	}
}
