package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go-signpdf/internal/pdf"
	"go-signpdf/internal/utils"
	"go-signpdf/internal/viewer"
)

// ViewRequest changes the page on screen and/or the space it is fitted into.
type ViewRequest struct {
	Page           *int     `json:"page,omitempty"`
	ContainerWidth *float64 `json:"containerWidth,omitempty"`
	MaxHeight      *float64 `json:"maxHeight,omitempty"`
}

// PagesRequest replaces the page selection, or toggles one page.
type PagesRequest struct {
	Pages  []int `json:"pages,omitempty"`
	Toggle *int  `json:"toggle,omitempty"`
}

// UploadDocument godoc
// @Summary      Upload the PDF to sign
// @Description  Loads a PDF into the session, discarding any previous document and its annotations
// @Tags         document
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        pdf        formData  file    true  "PDF file"
// @Success      200  {object}  editor.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/document [post]
func (h *APIHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	data, filename, ok := h.readFormFile(w, r, "pdf", h.MaxPDFBytes)
	if !ok {
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		http.Error(w, "Only PDF files are allowed", http.StatusBadRequest)
		return
	}
	if !pdf.IsPDF(data) {
		http.Error(w, "Uploaded file is not a valid PDF", http.StatusBadRequest)
		return
	}

	if err := session.Editor.Load(utils.SanitizeFilename(filename), data); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Editor.Snapshot())
}

// readFormFile reads one multipart file of at most limit bytes. On failure it
// has already written the response.
func (h *APIHandler) readFormFile(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(limit + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large", http.StatusBadRequest)
		} else {
			http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		}
		return nil, "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		http.Error(w, "Error retrieving file", http.StatusBadRequest)
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return nil, "", false
	}
	if int64(len(data)) > limit {
		http.Error(w, "File too large", http.StatusBadRequest)
		return nil, "", false
	}
	return data, header.Filename, true
}

// SetView godoc
// @Summary      Change page or viewport
// @Description  Moves to another page and/or re-fits the current page into a new viewport. Annotations keep the scale they were placed with.
// @Tags         document
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string       true  "Session ID"
// @Param        request    body  ViewRequest  true  "View change"
// @Success      200  {object}  editor.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/view [put]
func (h *APIHandler) SetView(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ViewRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid view data", http.StatusBadRequest)
		return
	}

	if req.ContainerWidth != nil || req.MaxHeight != nil {
		var vp viewer.Viewport
		if req.ContainerWidth != nil {
			vp.ContainerWidth = *req.ContainerWidth
		}
		if req.MaxHeight != nil {
			vp.MaxHeight = *req.MaxHeight
		}
		if err := session.Editor.SetViewport(vp); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if req.Page != nil {
		if err := session.Editor.ShowPage(*req.Page); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, session.Editor.Snapshot())
}

// SetPages godoc
// @Summary      Select pages
// @Description  Sets the pages that Duplicate copies onto, or toggles a single page
// @Tags         document
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string        true  "Session ID"
// @Param        request    body  PagesRequest  true  "{ pages: [int] } or { toggle: int }"
// @Success      200  {object}  editor.Snapshot
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/pages [put]
func (h *APIHandler) SetPages(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PagesRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid page selection", http.StatusBadRequest)
		return
	}

	var err error
	if req.Toggle != nil {
		err = session.Editor.TogglePage(*req.Toggle)
	} else {
		err = session.Editor.SelectPages(req.Pages)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Editor.Snapshot())
}
