package handlers

import (
	"bytes"
	"html"
	"net/http"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/koios/shotframe/internal/capture"
	"go.uber.org/zap"
)

const maxPlaceholderText = 80

var placeholderTemplate = template.Must(template.New("placeholder").Funcs(template.FuncMap{
	"escape": html.EscapeString,
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<rect width="100%" height="100%" fill="#e5e7eb"/>
<text x="50%" y="50%" fill="#6b7280" font-family="sans-serif" font-size="{{.FontSize}}" text-anchor="middle" dominant-baseline="middle">{{escape .Text}}</text>
<text x="50%" y="{{.SizeY}}" fill="#9ca3af" font-family="sans-serif" font-size="{{.SmallSize}}" text-anchor="middle">{{.Width}} × {{.Height}}</text>
</svg>
`))

type placeholderView struct {
	Width     int
	Height    int
	Text      string
	FontSize  int
	SmallSize int
	SizeY     int
}

// PlaceholderHandler renders stand-in screenshot images
type PlaceholderHandler struct {
	logger *zap.Logger
}

// NewPlaceholderHandler creates a placeholder image handler
func NewPlaceholderHandler(logger *zap.Logger) *PlaceholderHandler {
	return &PlaceholderHandler{logger: logger}
}

// RegisterRoutes registers the placeholder route
func (h *PlaceholderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/placeholder.svg", h.handlePlaceholder)
}

// handlePlaceholder handles GET /placeholder.svg?width=&height=&text=
func (h *PlaceholderHandler) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	width := clampDimension(q.Get("width"), capture.DefaultCustomWidth)
	height := clampDimension(q.Get("height"), capture.DefaultCustomHeight)

	text := xmlText(q.Get("text"))
	if runes := []rune(text); len(runes) > maxPlaceholderText {
		text = string(runes[:maxPlaceholderText-1]) + "…"
	}
	if text == "" {
		text = "Screenshot"
	}

	fontSize := min(width, height) / 20
	if fontSize < 10 {
		fontSize = 10
	}
	view := placeholderView{
		Width:     width,
		Height:    height,
		Text:      text,
		FontSize:  fontSize,
		SmallSize: fontSize * 2 / 3,
		SizeY:     height/2 + fontSize*2,
	}

	var buf bytes.Buffer
	if err := placeholderTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("Failed to render placeholder", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(buf.Bytes())
	}
}

// xmlText drops invalid UTF-8 and the runes XML 1.0 does not allow in character data
func xmlText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r >= 0x20 && r <= 0xD7FF:
			return r
		case r >= 0xE000 && r <= 0xFFFD:
			return r
		case r >= 0x10000 && r <= utf8.MaxRune:
			return r
		}
		return -1
	}, strings.ToValidUTF8(s, ""))
}

// clampDimension parses a size parameter and clamps it to [1, MaxDimension]
func clampDimension(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if n < 1 {
		return 1
	}
	if n > capture.MaxDimension {
		return capture.MaxDimension
	}
	return n
}
