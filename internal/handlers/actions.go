package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"go-signpdf/internal/pointer"
)

type PointerEvent struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Phase string  `json:"phase" enums:"down,move,up,cancel"`
}

// PointerRequest is a batch of pointer events in render-space pixels,
// applied in order.
type PointerRequest struct {
	Events []PointerEvent `json:"events"`
}

type ClickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type DuplicateResponse struct {
	Copies int `json:"copies"`
}

// Pointer godoc
// @Summary      Feed pointer events
// @Description  Drives drag and resize gestures. Mouse and touch input are both sent as down/move/up/cancel events.
// @Tags         interaction
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string          true  "Session ID"
// @Param        request    body  PointerRequest  true  "Events"
// @Success      200  {object}  editor.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/pointer [post]
func (h *APIHandler) Pointer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PointerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid pointer events", http.StatusBadRequest)
		return
	}
	events := make([]pointer.Event, 0, len(req.Events))
	for _, ev := range req.Events {
		phase, ok := pointer.ParsePhase(ev.Phase)
		if !ok {
			http.Error(w, fmt.Sprintf("Unknown pointer phase %q", ev.Phase), http.StatusBadRequest)
			return
		}
		events = append(events, pointer.Event{X: ev.X, Y: ev.Y, Phase: phase})
	}
	session.Editor.Pointer(events...)
	writeJSON(w, http.StatusOK, session.Editor.Snapshot())
}

// Click godoc
// @Summary      Click on the page
// @Description  A click that misses every annotation clears the selection, except right after a drag or resize
// @Tags         interaction
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string        true  "Session ID"
// @Param        request    body  ClickRequest  true  "Position"
// @Success      200  {object}  editor.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/click [post]
func (h *APIHandler) Click(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ClickRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid click", http.StatusBadRequest)
		return
	}
	session.Editor.Click(req.X, req.Y)
	writeJSON(w, http.StatusOK, session.Editor.Snapshot())
}

// Duplicate godoc
// @Summary      Copy annotations to the selected pages
// @Description  Copies every annotation of the current page onto each other selected page. Needs at least two selected pages.
// @Tags         actions
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {object}  DuplicateResponse
// @Failure      400  {string}  string  "No document loaded"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/actions/duplicate [post]
func (h *APIHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	n, err := session.Editor.Duplicate()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DuplicateResponse{Copies: n})
}

// Export godoc
// @Summary      Download the signed PDF
// @Description  Draws every annotation into a copy of the document and returns it
// @Tags         actions
// @Produce      application/pdf
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {file}    file           "Signed PDF"
// @Failure      404  {string}  string         "Session not found"
// @Failure      409  {string}  string         "Export already in progress"
// @Failure      422  {object}  ErrorResponse  "Nothing to export"
// @Failure      500  {string}  string         "Failed to save PDF"
// @Router       /api/sessions/{sessionID}/actions/export [post]
func (h *APIHandler) Export(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	data, name, err := session.Editor.Export(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.Logger.Warn("export write failed", "session", session.ID, "err", err)
	}
}
