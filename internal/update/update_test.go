package update

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0.3.0", "0.3.0"},
		{"v0.3.0", "0.3.0"},
		{"0.3.0-dirty", "0.3.0"},
		{"0.3.0-2-g5ea24ba", "0.3.0"},
		{"0.3.0-2-g5ea24ba-dirty", "0.3.0"},
		{"0.2.0-rc1", "0.2.0-rc1"},
		{"1.0.0-beta.1", "1.0.0-beta.1"},
		{"dev", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeVersion(tt.input); got != tt.expected {
				t.Errorf("NormalizeVersion(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"0.3.0", "0.2.0", true},
		{"0.2.0", "0.3.0", false},
		{"1.0.0", "0.9.9", true},
		{"0.3.0", "0.3.0", false},
		{"0.3.1", "0.3.0", true},
		{"0.3.0-rc1", "0.2.0", true},
		{"0.1.0", "dev", true},
		{"0.10.0", "0.9.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			if got := IsNewer(tt.a, tt.b); got != tt.expected {
				t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func releaseServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/releases/latest":
			fmt.Fprint(w, `{"tag_name":"v0.4.0","html_url":"https://example.test/v0.4.0"}`)
		case "/releases":
			fmt.Fprint(w, `[
				{"tag_name":"v0.5.0-rc1","draft":true},
				{"tag_name":"v0.5.0-rc0","prerelease":true},
				{"tag_name":"v0.4.0"}
			]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckStable(t *testing.T) {
	srv := releaseServer(t)

	available, rel, err := NewChecker("tiroq", "scribe", "v0.3.2-4-gdeadbee-dirty", WithAPIURL(srv.URL)).Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !available || rel.TagName != "v0.4.0" || rel.HTMLURL == "" {
		t.Errorf("expected v0.4.0 to be available, got %v %+v", available, rel)
	}

	available, rel, err = NewChecker("tiroq", "scribe", "0.4.0", WithAPIURL(srv.URL)).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if available {
		t.Errorf("0.4.0 should be up to date, got %+v", rel)
	}
}

func TestCheckPrereleaseSkipsDrafts(t *testing.T) {
	srv := releaseServer(t)

	rel, err := NewChecker("tiroq", "scribe", "0.4.0", WithAPIURL(srv.URL+"/"), WithChannel(ChannelPrerelease)).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rel.TagName != "v0.5.0-rc0" {
		t.Errorf("expected first non-draft release, got %s", rel.TagName)
	}
}

func TestCheckHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := NewChecker("tiroq", "scribe", "0.1.0", WithAPIURL(srv.URL)).Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Errorf("expected status error, got %v", err)
	}
}
