package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"where-am-i/internal/version"
)

func TestIndexServesPage(t *testing.T) {
	rr := httptest.NewRecorder()
	Index().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("content-type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{"/where-am-i", `id="retry"`, `id="refresh"`, "/config.js"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestConfigJS(t *testing.T) {
	old := version.Commit
	version.Commit = "abc123"
	defer func() { version.Commit = old }()

	rr := httptest.NewRecorder()
	ConfigJS("/edge").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/config.js", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `window.__API_BASE__="/edge"`) {
		t.Errorf("missing api base: %q", body)
	}
	if !strings.Contains(body, `window.__COMMIT_SHA__="abc123"`) {
		t.Errorf("missing commit: %q", body)
	}
	if cc := rr.Header().Get("cache-control"); cc != "no-store" {
		t.Errorf("cache-control = %q", cc)
	}
}
