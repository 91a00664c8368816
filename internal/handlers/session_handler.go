package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/koios/shotframe/internal/capture"
	"github.com/koios/shotframe/internal/redis"
	"github.com/koios/shotframe/internal/session"
	"github.com/koios/shotframe/pkg/models"
	"go.uber.org/zap"
)

// HistoryLister returns the archived captures of a session
type HistoryLister interface {
	List(ctx context.Context, sessionID string) ([]redis.HistoryEntry, error)
}

// SessionHandler exposes capture sessions over HTTP
type SessionHandler struct {
	store   *session.Store
	history HistoryLister
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler. history may be nil.
func NewSessionHandler(store *session.Store, history HistoryLister, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		store:   store,
		history: history,
		logger:  logger,
	}
}

// RegisterRoutes registers the session routes
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/presets", h.handlePresets)
	mux.HandleFunc("/sessions", h.handleSessions)
	mux.HandleFunc("/sessions/", h.handleSessionDetails)
}

// FormUpdateRequest is the body of PUT /sessions/{id}/form. Absent fields are left unchanged.
type FormUpdateRequest struct {
	URL          *string `json:"url"`
	PresetID     *string `json:"preset_id"`
	CustomWidth  *int    `json:"custom_width"`
	CustomHeight *int    `json:"custom_height"`
}

// SubmitErrorResponse is returned when a submit is rejected by validation
type SubmitErrorResponse struct {
	Valid   bool                     `json:"valid"`
	Message string                   `json:"message"`
	Errors  capture.ValidationErrors `json:"errors"`
}

// CopyResponse carries the text the browser should place on its clipboard
type CopyResponse struct {
	Text string `json:"text"`
}

// DownloadResponse reports where an artifact was saved
type DownloadResponse struct {
	Filename string `json:"filename"`
	Location string `json:"location"`
}

// ArtifactEventResponse reports the outcome of an artifact load event
type ArtifactEventResponse struct {
	Changed    bool                   `json:"changed"`
	ImageState session.ImageLoadState `json:"image_state"`
}

// handleHealth handles GET /health - returns service health status
func (h *SessionHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"service":  "shotframe",
		"version":  "1.0.0",
		"sessions": h.store.Len(),
	})
}

// handlePresets handles GET /presets - returns the device preset catalog
func (h *SessionHandler) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, models.Presets())
}

// handleSessions handles POST /sessions - starts a new session
func (h *SessionHandler) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s := h.store.Create()
	h.logger.Debug("Created session", zap.String("session_id", s.ID))
	h.writeJSON(w, http.StatusCreated, s.Snapshot())
}

// handleSessionDetails handles:
// - GET/DELETE /sessions/{id}
// - PUT /sessions/{id}/form
// - POST /sessions/{id}/submit
// - POST /sessions/{id}/artifact/loaded and /artifact/failed
// - POST /sessions/{id}/copy and /download
// - GET /sessions/{id}/visit, /notifications and /history
func (h *SessionHandler) handleSessionDetails(w http.ResponseWriter, r *http.Request) {
	p := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	pathParts := strings.Split(p, "/")

	if len(pathParts) == 0 || pathParts[0] == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	sessionID := pathParts[0]
	s, exists := h.store.Get(sessionID)
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	action := strings.Join(pathParts[1:], "/")
	route := r.Method + " " + action

	switch route {
	case "GET ":
		h.writeJSON(w, http.StatusOK, s.Snapshot())
	case "DELETE ":
		h.store.Delete(sessionID)
		w.WriteHeader(http.StatusNoContent)
	case "PUT form":
		h.handleFormUpdate(w, r, s)
	case "POST submit":
		h.handleSubmit(w, s)
	case "POST artifact/loaded":
		h.handleArtifactEvent(w, s, (*session.Artifact).OnArtifactLoaded)
	case "POST artifact/failed":
		h.handleArtifactEvent(w, s, (*session.Artifact).OnArtifactLoadFailed)
	case "POST copy":
		h.handleCopy(w, r, s)
	case "POST download":
		h.handleDownload(w, r, s)
	case "GET visit":
		h.handleVisit(w, r, s)
	case "GET notifications":
		h.writeJSON(w, http.StatusOK, s.Notifications())
	case "GET history":
		h.handleHistory(w, r, s)
	default:
		if knownAction(action) {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.Error(w, "Endpoint not found", http.StatusNotFound)
	}
}

func knownAction(action string) bool {
	switch action {
	case "", "form", "submit", "artifact/loaded", "artifact/failed", "copy", "download", "visit", "notifications", "history":
		return true
	}
	return false
}

// handleFormUpdate handles PUT /sessions/{id}/form
func (h *SessionHandler) handleFormUpdate(w http.ResponseWriter, r *http.Request, s *session.Session) {
	var request FormUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Error("Failed to decode form update",
			zap.String("session_id", s.ID),
			zap.Error(err))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if request.PresetID != nil {
		if err := s.SelectPreset(*request.PresetID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if request.URL != nil {
		s.SetURL(*request.URL)
	}
	if request.CustomWidth != nil || request.CustomHeight != nil {
		form := s.Form()
		width, height := form.CustomWidth, form.CustomHeight
		if request.CustomWidth != nil {
			width = *request.CustomWidth
		}
		if request.CustomHeight != nil {
			height = *request.CustomHeight
		}
		s.SetCustomDimensions(width, height)
	}

	h.writeJSON(w, http.StatusOK, s.Snapshot())
}

// handleSubmit handles POST /sessions/{id}/submit
func (h *SessionHandler) handleSubmit(w http.ResponseWriter, s *session.Session) {
	_, err := s.Submit()

	var validation capture.ValidationErrors
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusAccepted, s.Snapshot())
	case errors.As(err, &validation):
		h.writeJSON(w, http.StatusUnprocessableEntity, SubmitErrorResponse{
			Valid:   false,
			Message: "Please enter a valid URL and dimensions",
			Errors:  validation,
		})
	case errors.Is(err, session.ErrCaptureInFlight):
		http.Error(w, "A capture is already in progress", http.StatusConflict)
	case errors.Is(err, session.ErrSessionClosed):
		http.Error(w, "Session closed", http.StatusGone)
	default:
		h.logger.Error("Submit failed", zap.String("session_id", s.ID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleArtifactEvent handles POST /sessions/{id}/artifact/{loaded|failed}
func (h *SessionHandler) handleArtifactEvent(w http.ResponseWriter, s *session.Session, event func(*session.Artifact) bool) {
	a, ok := h.artifact(w, s)
	if !ok {
		return
	}

	changed := event(a)
	h.writeJSON(w, http.StatusOK, ArtifactEventResponse{
		Changed:    changed,
		ImageState: a.LoadState(),
	})
}

// handleCopy handles POST /sessions/{id}/copy
func (h *SessionHandler) handleCopy(w http.ResponseWriter, r *http.Request, s *session.Session) {
	a, ok := h.artifact(w, s)
	if !ok {
		return
	}

	text, err := a.CopyImageReference(r.Context()).Wait(r.Context())
	if err != nil {
		h.logger.Warn("Copy failed", zap.String("session_id", s.ID), zap.Error(err))
		http.Error(w, "Copy failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, CopyResponse{Text: text})
}

// handleDownload handles POST /sessions/{id}/download
func (h *SessionHandler) handleDownload(w http.ResponseWriter, r *http.Request, s *session.Session) {
	a, ok := h.artifact(w, s)
	if !ok {
		return
	}

	location, err := a.Download(r.Context()).Wait(r.Context())
	if err != nil {
		h.logger.Warn("Download failed", zap.String("session_id", s.ID), zap.Error(err))
		http.Error(w, "Download failed", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, DownloadResponse{
		Filename: path.Base(location),
		Location: location,
	})
}

// handleVisit handles GET /sessions/{id}/visit - redirects to the captured page
func (h *SessionHandler) handleVisit(w http.ResponseWriter, r *http.Request, s *session.Session) {
	a, ok := h.artifact(w, s)
	if !ok {
		return
	}

	target, err := a.OpenSource(r.Context())
	if err != nil {
		http.Error(w, "Could not open source", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleHistory handles GET /sessions/{id}/history
func (h *SessionHandler) handleHistory(w http.ResponseWriter, r *http.Request, s *session.Session) {
	if h.history == nil {
		http.Error(w, "History is not enabled", http.StatusNotFound)
		return
	}

	entries, err := h.history.List(r.Context(), s.ID)
	if err != nil {
		h.logger.Error("Failed to load history", zap.String("session_id", s.ID), zap.Error(err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// artifact returns the session's current artifact or writes 409
func (h *SessionHandler) artifact(w http.ResponseWriter, s *session.Session) (*session.Artifact, bool) {
	a, err := s.Artifact()
	if err != nil {
		http.Error(w, "No capture result available", http.StatusConflict)
		return nil, false
	}
	return a, true
}

func (h *SessionHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
