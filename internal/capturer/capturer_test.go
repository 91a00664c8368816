package capturer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

func TestPlaceholderURL(t *testing.T) {
	req := models.CaptureRequest{URL: "https://example.com/a b?x=1&y=2", Width: 1440, Height: 900}
	at := time.UnixMilli(1700000000123)

	got := PlaceholderURL("http://localhost:8080", req, at)

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", got, err)
	}
	if u.Path != "/placeholder.svg" || u.Host != "localhost:8080" {
		t.Errorf("unexpected location %q", got)
	}
	q := u.Query()
	if q.Get("width") != "1440" || q.Get("height") != "900" {
		t.Errorf("dimensions = %s x %s", q.Get("width"), q.Get("height"))
	}
	if q.Get("text") != req.URL {
		t.Errorf("text = %q, want %q", q.Get("text"), req.URL)
	}
	if q.Get("t") != "1700000000123" {
		t.Errorf("t = %q", q.Get("t"))
	}
}

func TestPlaceholder_Capture(t *testing.T) {
	t.Run("returns requested size", func(t *testing.T) {
		p := NewPlaceholder("http://localhost:8080/", 0, zap.NewNop())
		req := models.CaptureRequest{URL: "https://example.com", Width: 390, Height: 844}

		reply, err := p.Capture(context.Background(), req)
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if reply.Width != 390 || reply.Height != 844 {
			t.Errorf("reply dims = %dx%d", reply.Width, reply.Height)
		}
		if !strings.HasPrefix(reply.ImageURL, "http://localhost:8080/placeholder.svg?") {
			t.Errorf("ImageURL = %q", reply.ImageURL)
		}
	})

	t.Run("relative without base", func(t *testing.T) {
		p := NewPlaceholder("", 0, zap.NewNop())
		reply, _ := p.Capture(context.Background(), models.CaptureRequest{URL: "https://example.com", Width: 100, Height: 100})
		if !strings.HasPrefix(reply.ImageURL, "/placeholder.svg?") {
			t.Errorf("ImageURL = %q", reply.ImageURL)
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		p := NewPlaceholder("", time.Hour, zap.NewNop())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := p.Capture(ctx, models.CaptureRequest{URL: "https://example.com", Width: 100, Height: 100})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want deadline exceeded", err)
		}
	})
}

func TestHTTP_Capture(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got models.CaptureRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(models.CaptureReply{ImageURL: "https://cdn.example.com/x.png", Width: 1920, Height: 1080})
		}))
		defer server.Close()

		h := NewHTTP(server.URL, 5*time.Second, zap.NewNop())
		req := models.CaptureRequest{URL: "https://example.com", Width: 1920, Height: 1080}
		reply, err := h.Capture(context.Background(), req)
		if err != nil {
			t.Fatalf("Capture() error = %v", err)
		}
		if got != req {
			t.Errorf("server received %+v", got)
		}
		if reply.ImageURL != "https://cdn.example.com/x.png" || reply.Width != 1920 {
			t.Errorf("reply = %+v", reply)
		}
	})

	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream timeout", http.StatusBadGateway)
		}))
		defer server.Close()

		h := NewHTTP(server.URL, 5*time.Second, zap.NewNop())
		_, err := h.Capture(context.Background(), models.CaptureRequest{URL: "https://example.com", Width: 100, Height: 100})

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("error = %v, want *StatusError", err)
		}
		if statusErr.StatusCode != http.StatusBadGateway || !strings.Contains(statusErr.Body, "upstream timeout") {
			t.Errorf("status error = %+v", statusErr)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		h := NewHTTP(server.URL, 5*time.Second, zap.NewNop())
		if _, err := h.Capture(context.Background(), models.CaptureRequest{URL: "https://example.com", Width: 100, Height: 100}); err == nil {
			t.Error("expected decode error")
		}
	})
}
