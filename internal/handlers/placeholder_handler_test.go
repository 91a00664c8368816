package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestPlaceholderHandler_StripsNonXMLText(t *testing.T) {
	mux := http.NewServeMux()
	NewPlaceholderHandler(zap.NewNop()).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/placeholder.svg?text=a%01b%FFc%EF%BF%BEd", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	body := rr.Body.Bytes()
	if !utf8.Valid(body) {
		t.Error("body is not valid UTF-8")
	}
	if !strings.Contains(string(body), ">abcd</text>") {
		t.Errorf("expected cleaned text in body, got %s", body)
	}
}

func TestXMLText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"tab\tand\nnewline", "tab\tand\nnewline"},
		{"bell\x07nul\x00", "bellnul"},
		{"bad\xffbyte", "badbyte"},
		{"emoji 📸", "emoji 📸"},
	}
	for _, tt := range tests {
		if got := xmlText(tt.in); got != tt.want {
			t.Errorf("xmlText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlaceholderHandler(t *testing.T) {
	mux := http.NewServeMux()
	NewPlaceholderHandler(zap.NewNop()).RegisterRoutes(mux)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		contains   []string
	}{
		{
			name:       "requested size",
			query:      "?width=390&height=844&text=https%3A%2F%2Fexample.com",
			wantStatus: http.StatusOK,
			contains:   []string{`width="390"`, `height="844"`, "https://example.com"},
		},
		{
			name:       "clamped",
			query:      "?width=99999&height=-5",
			wantStatus: http.StatusOK,
			contains:   []string{`width="3840"`, `height="1"`},
		},
		{
			name:       "defaults",
			query:      "",
			wantStatus: http.StatusOK,
			contains:   []string{`width="1280"`, `height="800"`, "Screenshot"},
		},
		{
			name:       "text is escaped",
			query:      "?text=%3Cscript%3E",
			wantStatus: http.StatusOK,
			contains:   []string{"&lt;script&gt;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/placeholder.svg"+tt.query, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/svg+xml") {
				t.Errorf("Content-Type = %q", ct)
			}
			body := rr.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q:\n%s", want, body)
				}
			}
			if strings.Contains(body, "<script>") {
				t.Error("unescaped text in SVG")
			}
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/placeholder.svg", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", rr.Code)
		}
	})
}

func TestClampDimension(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"1440", 1440},
		{"0", 1},
		{"4000", 3840},
		{"abc", 42},
		{"", 42},
	}
	for _, tt := range tests {
		if got := clampDimension(tt.raw, 42); got != tt.want {
			t.Errorf("clampDimension(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
