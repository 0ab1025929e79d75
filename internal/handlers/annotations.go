package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"go-signpdf/internal/annotation"
	"go-signpdf/internal/imaging"

	"github.com/go-chi/chi/v5"
)

// ImageRequest carries an image as a data URL, for clients that already
// hold the pixels in a canvas.
type ImageRequest struct {
	DataURL string `json:"dataUrl"`
}

type StampRequest struct {
	Name        string  `json:"name"`
	Shape       string  `json:"shape,omitempty"`
	Color       string  `json:"color,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	IncludeDate bool    `json:"includeDate,omitempty"`
}

type DrawingRequest struct {
	Strokes  [][]imaging.Point `json:"strokes"`
	Color    string            `json:"color,omitempty"`
	PenWidth float64           `json:"penWidth,omitempty"`
}

// PlaceRequest moves an annotation and, with a positive width, resizes it.
type PlaceRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width,omitempty"`
}

// AddImage godoc
// @Summary      Add an image annotation
// @Description  Adds a PNG or JPEG to the current page at the default position. Accepts a multipart upload in the image field or a JSON data URL.
// @Tags         annotations
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string  true   "Session ID"
// @Param        image      formData  file    false  "Image file (PNG/JPEG)"
// @Success      201  {object}  annotation.Annotation
// @Failure      400  {string}  string  "Bad request - invalid image format"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/annotations/image [post]
func (h *APIHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var data []byte
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		var req ImageRequest
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "Invalid image data", http.StatusBadRequest)
			return
		}
		img, err := imaging.DecodeDataURL(req.DataURL)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		data = img.Data
	} else {
		data, _, ok = h.readFormFile(w, r, "image", h.MaxImageBytes)
		if !ok {
			return
		}
	}

	a, err := session.Editor.Add(imaging.UploadedImage{Data: data})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// AddStamp godoc
// @Summary      Add a generated stamp
// @Description  Renders a seal with a name of up to five characters and adds it to the current page
// @Tags         annotations
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string        true  "Session ID"
// @Param        request    body  StampRequest  true  "Stamp settings"
// @Success      201  {object}  annotation.Annotation
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/annotations/stamp [post]
func (h *APIHandler) AddStamp(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req StampRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid stamp data", http.StatusBadRequest)
		return
	}

	a, err := session.Editor.Add(imaging.GeneratedStamp{
		Name:        req.Name,
		Shape:       imaging.StampShape(req.Shape),
		Color:       req.Color,
		BorderWidth: req.BorderWidth,
		FontSize:    req.FontSize,
		IncludeDate: req.IncludeDate,
		Font:        h.StampFont,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// AddDrawing godoc
// @Summary      Add a freehand signature
// @Description  Rasterizes strokes drawn on the 450x200 pad, crops them to the ink and adds the result to the current page
// @Tags         annotations
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string          true  "Session ID"
// @Param        request    body  DrawingRequest  true  "Strokes in pad coordinates"
// @Success      201  {object}  annotation.Annotation
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/annotations/drawing [post]
func (h *APIHandler) AddDrawing(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DrawingRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid drawing data", http.StatusBadRequest)
		return
	}

	a, err := session.Editor.Add(imaging.FreehandDrawing{
		Strokes:  req.Strokes,
		Color:    req.Color,
		PenWidth: req.PenWidth,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// AnnotationImage godoc
// @Summary      Get an annotation's raster
// @Tags         annotations
// @Produce      image/png
// @Produce      image/jpeg
// @Param        sessionID     path  string  true  "Session ID"
// @Param        annotationID  path  string  true  "Annotation ID"
// @Success      200  {file}    file    "Image"
// @Failure      404  {string}  string  "Session or annotation not found"
// @Router       /api/sessions/{sessionID}/annotations/{annotationID}/image [get]
func (h *APIHandler) AnnotationImage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	img, err := session.Editor.Image(chi.URLParam(r, "annotationID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(img.Data); err != nil {
		h.Logger.Warn("image write failed", "err", err)
	}
}

// PlaceAnnotation godoc
// @Summary      Move or resize an annotation
// @Description  Sets the position and optionally the width; the aspect ratio, the minimum size and the page bounds still apply
// @Tags         annotations
// @Accept       json
// @Produce      json
// @Param        sessionID     path  string        true  "Session ID"
// @Param        annotationID  path  string        true  "Annotation ID"
// @Param        request       body  PlaceRequest  true  "Placement"
// @Success      200  {object}  annotation.Annotation
// @Failure      400  {string}  string  "Bad request"
// @Failure      404  {string}  string  "Session or annotation not found"
// @Router       /api/sessions/{sessionID}/annotations/{annotationID} [put]
func (h *APIHandler) PlaceAnnotation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PlaceRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid placement", http.StatusBadRequest)
		return
	}
	a, err := session.Editor.Place(chi.URLParam(r, "annotationID"), req.X, req.Y, req.Width)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAnnotation godoc
// @Summary      Delete an annotation
// @Tags         annotations
// @Param        sessionID     path  string  true  "Session ID"
// @Param        annotationID  path  string  true  "Annotation ID"
// @Success      204
// @Failure      404  {string}  string  "Session or annotation not found"
// @Router       /api/sessions/{sessionID}/annotations/{annotationID} [delete]
func (h *APIHandler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Editor.Delete(chi.URLParam(r, "annotationID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PageAnnotations godoc
// @Summary      List the annotations of a page
// @Description  Returns the annotations placed on one page, bottom-most first
// @Tags         annotations
// @Produce      json
// @Param        sessionID  path  string   true  "Session ID"
// @Param        page       path  integer  true  "Page number, starting at 1"
// @Success      200  {array}   annotation.Annotation
// @Failure      400  {string}  string  "Invalid page"
// @Failure      404  {string}  string  "Session not found"
// @Router       /api/sessions/{sessionID}/pages/{page}/annotations [get]
func (h *APIHandler) PageAnnotations(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}
	list, err := session.Editor.PageAnnotations(page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []annotation.Annotation{}
	}
	writeJSON(w, http.StatusOK, list)
}
