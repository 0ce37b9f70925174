package apihttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tracks", "/tracks"},
		{"/tracks/track-1", "/tracks/{uri}"},
		{"/tracks/track-1/stream", "/tracks/{uri}/stream"},
		{"/tracks/track-1/end", "/tracks/{uri}/end"},
		{"/playback-history", "/playback-history"},
	}
	for _, tt := range tests {
		if got := normalizeRoute(tt.path); got != tt.want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestTrackRoute(t *testing.T) {
	tests := []struct {
		path       string
		wantURI    string
		wantAction string
	}{
		{"/tracks/track-1", "track-1", ""},
		{"/tracks/track-1/stream", "track-1", "stream"},
		{"/tracks/track-1/end", "track-1", "end"},
		{"/tracks/", "", ""},
	}
	for _, tt := range tests {
		uri, action := trackRoute(tt.path)
		if uri != tt.wantURI || action != tt.wantAction {
			t.Errorf("trackRoute(%q) = (%q, %q), want (%q, %q)", tt.path, uri, action, tt.wantURI, tt.wantAction)
		}
	}
}

func TestOriginAllowed(t *testing.T) {
	if !originAllowed(nil, "https://anything.example") {
		t.Error("empty whitelist rejected an origin")
	}
	allowed := []string{"https://a.example"}
	if !originAllowed(allowed, "https://a.example") {
		t.Error("whitelisted origin rejected")
	}
	if originAllowed(allowed, "https://b.example") {
		t.Error("non-whitelisted origin allowed")
	}
	if !originAllowed([]string{"*"}, "https://b.example") {
		t.Error("wildcard whitelist rejected an origin")
	}
}

func TestCORSMiddlewareAnswersPreflight(t *testing.T) {
	handler := corsMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight reached the inner handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/tracks", nil)
	req.Header.Set("Origin", "https://player.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://player.example" {
		t.Fatalf("Allow-Origin = %q", got)
	}
}

func TestRecoveryMiddlewareTurnsPanicInto500(t *testing.T) {
	handler := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracks", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestRateLimitMiddlewareRejectsBurstOverflow(t *testing.T) {
	handler := rateLimitMiddleware(1, 2, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracks", nil))
		statuses = append(statuses, rec.Code)
	}

	limited := 0
	for _, status := range statuses {
		if status == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Fatalf("no request was rate limited: %v", statuses)
	}

	// Health stays exempt even with the bucket drained.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tracks", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP = %q, want first forwarded hop", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q, want remote host", got)
	}
}
