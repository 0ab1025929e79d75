// Package handlers provides HTTP handlers for the PDF signing API.
//
// This package contains the HTTP endpoints for session management, document
// upload, page navigation, annotation placement, pointer input, duplication
// across pages and export of the signed PDF.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(sessionManager, handlers.Options{})
//	r := chi.NewRouter()
//	r.Post("/api/sessions/", h.CreateSession)
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"go-signpdf/internal/annotation"
	"go-signpdf/internal/editor"
	"go-signpdf/internal/export"
	"go-signpdf/internal/imaging"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/session"
	"go-signpdf/internal/viewer"

	"github.com/go-chi/chi/v5"
	"golang.org/x/image/font/opentype"
)

const (
	DefaultMaxPDFBytes = 50 << 20
	// multipart framing on top of the file itself
	formOverhead = 1 << 20
	// JSON bodies may carry an image as a data URL
	maxJSONBytes = 8 << 20
)

type Options struct {
	MaxPDFBytes   int64
	MaxImageBytes int64
	// StampFont replaces the built-in stamp font.
	StampFont *opentype.Font
	Logger    *slog.Logger
}

type APIHandler struct {
	SessionManager *session.SessionManager
	MaxPDFBytes    int64
	MaxImageBytes  int64
	StampFont      *opentype.Font
	Logger         *slog.Logger
}

func NewAPIHandler(sm *session.SessionManager, opts Options) *APIHandler {
	h := &APIHandler{
		SessionManager: sm,
		MaxPDFBytes:    opts.MaxPDFBytes,
		MaxImageBytes:  opts.MaxImageBytes,
		StampFont:      opts.StampFont,
		Logger:         opts.Logger,
	}
	if h.MaxPDFBytes <= 0 {
		h.MaxPDFBytes = DefaultMaxPDFBytes
	}
	if h.MaxImageBytes <= 0 {
		h.MaxImageBytes = imaging.MaxUploadBytes
	}
	if h.Logger == nil {
		h.Logger = slog.Default()
	}
	return h
}

type SessionCreated struct {
	SessionID string `json:"sessionId"`
}

// ErrorResponse is the body of 422 warnings.
type ErrorResponse struct {
	Error   string `json:"error"`
	Warning bool   `json:"warning,omitempty"`
}

// Health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string  "{ status: ok }"
// @Router       /api/health [get]
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateSession godoc
// @Summary      Create a new session
// @Description  Creates a new signing session and returns a session ID
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  SessionCreated
// @Router       /api/sessions/ [post]
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.SessionManager.CreateSession()
	h.Logger.Debug("session created", "session", session.ID)
	writeJSON(w, http.StatusOK, SessionCreated{SessionID: session.ID})
}

// GetSession godoc
// @Summary      Get session state
// @Description  Returns the document, view, annotations and selection of the session
// @Tags         sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200  {object}  editor.Snapshot
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID} [get]
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Editor.Snapshot())
}

// DeleteSession godoc
// @Summary      Close a session
// @Description  Discards the document and every annotation of the session
// @Tags         sessions
// @Param        sessionID  path  string  true  "Session ID"
// @Success      204
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID} [delete]
func (h *APIHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	h.SessionManager.DeleteSession(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	session, exists := h.SessionManager.GetSession(chi.URLParam(r, "sessionID"))
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
	}
	return session, exists
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Unable to write response", "err", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeError maps domain errors onto status codes. Unexpected errors are
// logged and answered with a generic message.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, annotation.ErrNotFound):
		http.Error(w, "Annotation not found", http.StatusNotFound)
	case errors.Is(err, export.ErrInProgress):
		http.Error(w, "Export already in progress", http.StatusConflict)
	case export.IsWarning(err):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Warning: true})
	case errors.Is(err, export.ErrFailed):
		http.Error(w, "Failed to save PDF", http.StatusInternalServerError)
	case errors.Is(err, imaging.ErrTooLarge):
		http.Error(w, "File too large", http.StatusBadRequest)
	case isBadRequest(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

var badRequest = []error{
	annotation.ErrNoActiveDocument,
	annotation.ErrEmptyImage,
	editor.ErrNoDocument,
	viewer.ErrInvalidPageReference,
	viewer.ErrInvalidViewport,
	imaging.ErrUnsupportedFormat,
	imaging.ErrEmptyDrawing,
	imaging.ErrInvalidStamp,
	imaging.ErrInvalidColor,
	pdf.ErrNotPDF,
	pdf.ErrNoPages,
}

func isBadRequest(err error) bool {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
