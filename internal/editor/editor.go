// Package editor ties one open document to everything done with it: the
// view state, the annotations, pointer gestures and export.
//
// Types:
//   - Editor: One document editing session. Safe for concurrent use.
//   - Snapshot: A copy of the visible state for clients.
//
// Expected outputs:
// - Loading a document discards everything from the previous one
// - New annotations go on the current page with the current render scale
// - Export never changes the annotations or the loaded bytes
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-signpdf/internal/annotation"
	"go-signpdf/internal/export"
	"go-signpdf/internal/imaging"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/pointer"
	"go-signpdf/internal/utils"
	"go-signpdf/internal/viewer"
)

var ErrNoDocument = errors.New("no document loaded")

type Option func(*Editor)

func WithViewport(vp viewer.Viewport) Option {
	return func(e *Editor) { e.viewport = vp }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithLoader replaces the PDF library used for export.
func WithLoader(load export.Loader) Option {
	return func(e *Editor) { e.loader = load }
}

// WithClock replaces time.Now for the pointer release guard.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

type Editor struct {
	mu       sync.Mutex
	logger   *slog.Logger
	loader   export.Loader
	now      func() time.Time
	viewport viewer.Viewport

	name     string
	source   []byte
	pages    []viewer.PageSize
	renderer viewer.Renderer
	view     *viewer.State
	store    *annotation.Store
	ctrl     *pointer.Controller
	exporter *export.Coordinator
}

func New(opts ...Option) *Editor {
	e := &Editor{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.exporter = export.NewCoordinator(e.loader, e.logger)
	e.reset()
	return e
}

func (e *Editor) reset() {
	e.name = ""
	e.source = nil
	e.pages = nil
	e.renderer = viewer.NewPageRenderer(nil)
	e.view = viewer.NewState(0)
	e.store = annotation.NewStore()
	e.ctrl = e.newController()
}

func (e *Editor) newController() *pointer.Controller {
	return pointer.NewController(e.store, e.view,
		pointer.WithClock(e.now),
		pointer.OnSelect(func(id string) {
			e.logger.Debug("selection changed", "name", e.name, "selected", id)
		}),
	)
}

// Load replaces the open document and renders its first page. On error the
// previous document and its annotations are kept.
func (e *Editor) Load(name string, data []byte) error {
	doc, err := pdf.Load(data)
	if err != nil {
		return err
	}
	pages := make([]viewer.PageSize, 0, doc.PageCount())
	for _, p := range doc.Pages() {
		pages = append(pages, viewer.PageSize{Width: p.Width, Height: p.Height})
	}
	renderer := viewer.NewPageRenderer(pages)
	view := viewer.NewState(len(pages))

	e.mu.Lock()
	defer e.mu.Unlock()
	info, err := renderer.Render(view.CurrentPage(), e.viewport)
	if err != nil {
		return err
	}
	view.SetScale(info)

	e.reset()
	e.name = name
	e.source = bytes.Clone(data)
	e.pages = pages
	e.renderer = renderer
	e.view = view
	e.ctrl = e.newController()
	e.logger.Info("document loaded", "name", name, "pages", len(pages), "bytes", len(data))
	return nil
}

// Close discards the document and all annotations.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

func (e *Editor) render() error {
	info, err := e.renderer.Render(e.view.CurrentPage(), e.viewport)
	if err != nil {
		return err
	}
	e.view.SetScale(info)
	return nil
}

func (e *Editor) loaded() error {
	if e.source == nil {
		return ErrNoDocument
	}
	return nil
}

// ShowPage moves to page and renders it. The annotation selection is dropped.
func (e *Editor) ShowPage(page int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loaded(); err != nil {
		return err
	}
	if err := e.view.GoTo(page); err != nil {
		return err
	}
	e.ctrl.Reset()
	return e.render()
}

// SetViewport re-renders the current page for a new viewport. Existing
// annotations keep the scale they were placed with.
func (e *Editor) SetViewport(vp viewer.Viewport) error {
	if err := vp.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == nil {
		e.viewport = vp
		return nil
	}
	info, err := e.renderer.Render(e.view.CurrentPage(), vp)
	if err != nil {
		return err
	}
	e.viewport = vp
	e.view.SetScale(info)
	return nil
}

func (e *Editor) SelectPages(pages []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loaded(); err != nil {
		return err
	}
	return e.view.SelectPages(pages)
}

func (e *Editor) TogglePage(page int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loaded(); err != nil {
		return err
	}
	return e.view.TogglePage(page)
}

// Add normalizes the tool output and places it on the current page. The new
// annotation becomes the selection.
func (e *Editor) Add(src imaging.Source) (annotation.Annotation, error) {
	e.mu.Lock()
	ready := e.source != nil && e.view.HasScale()
	e.mu.Unlock()
	if !ready {
		return annotation.Annotation{}, annotation.ErrNoActiveDocument
	}

	img, err := src.Normalize()
	if err != nil {
		return annotation.Annotation{}, err
	}
	return e.AddImage(img)
}

// AddImage places an already decoded image on the current page.
func (e *Editor) AddImage(img annotation.Image) (annotation.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// the document may have changed while the image was normalized
	if e.source == nil {
		return annotation.Annotation{}, annotation.ErrNoActiveDocument
	}
	a, err := e.store.Add(e.view.CurrentPage(), img, e.view.Scale())
	if err != nil {
		return annotation.Annotation{}, err
	}
	e.ctrl.Select(a.ID)
	e.logger.Debug("annotation added", "id", a.ID, "page", a.Page, "mime", img.MIME)
	return a, nil
}

// Pointer feeds events to the gesture controller in order.
func (e *Editor) Pointer(events ...pointer.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range events {
		e.ctrl.Handle(ev)
	}
}

func (e *Editor) Click(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctrl.Click(x, y)
}

func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" {
		if _, ok := e.store.Get(id); !ok {
			return annotation.ErrNotFound
		}
	}
	e.ctrl.Select(id)
	return nil
}

func (e *Editor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.store.Get(id); !ok {
		return annotation.ErrNotFound
	}
	e.ctrl.Forget(id)
	e.store.Remove(id)
	return nil
}

// Place moves and optionally resizes an annotation, applying the same rules
// as pointer gestures: the minimum width, the aspect lock and the page bounds
// of the current render. A width of zero keeps the current size.
func (e *Editor) Place(id string, x, y, width float64) (annotation.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Get(id)
	if !ok {
		return annotation.Annotation{}, annotation.ErrNotFound
	}
	w, h := a.Width, a.Height
	if width > 0 {
		w, h = pointer.AspectResize(a.Width, a.Height, width)
	}
	if maxW, maxH, ok := e.view.Bounds(); ok && a.Page == e.view.CurrentPage() {
		if w > maxW || h > maxH {
			fit := min(maxW, maxH*a.AspectRatio())
			w, h = pointer.AspectResize(a.Width, a.Height, fit)
		}
		x, y = pointer.ClampPosition(x, y, w, h, maxW, maxH)
	}
	if err := e.store.Resize(id, w, h); err != nil {
		return annotation.Annotation{}, err
	}
	if err := e.store.Move(id, x, y); err != nil {
		return annotation.Annotation{}, err
	}
	a, _ = e.store.Get(id)
	return a, nil
}

// Duplicate copies the annotations of the current page onto the selected
// pages and returns how many copies were made.
func (e *Editor) Duplicate() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loaded(); err != nil {
		return 0, err
	}
	var targets []int
	for _, p := range e.view.SelectedPages() {
		if e.view.ValidPage(p) {
			targets = append(targets, p)
		}
	}
	n := e.store.DuplicateToPages(e.view.CurrentPage(), targets)
	e.logger.Info("annotations duplicated", "page", e.view.CurrentPage(), "targets", targets, "copies", n)
	return n, nil
}

// Export draws every annotation into a copy of the document. It returns the
// signed PDF and its file name.
func (e *Editor) Export(ctx context.Context) ([]byte, string, error) {
	e.mu.Lock()
	req := export.Request{
		Source:      e.source,
		Annotations: e.store.All(),
		ScaleKnown:  e.view.HasScale(),
	}
	name := e.name
	e.mu.Unlock()

	res, err := e.exporter.Export(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return res.Data, utils.SignedFilename(name), nil
}

func (e *Editor) ExportStatus() export.Status { return e.exporter.Status() }

// Image returns the raster of an annotation.
func (e *Editor) Image(id string) (annotation.Image, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.store.Get(id)
	if !ok {
		return annotation.Image{}, annotation.ErrNotFound
	}
	return a.Image, nil
}

// Snapshot is the client-visible state of an Editor.
type Snapshot struct {
	Loaded        bool                    `json:"loaded"`
	Name          string                  `json:"name,omitempty"`
	TotalPages    int                     `json:"totalPages"`
	CurrentPage   int                     `json:"currentPage"`
	SelectedPages []int                   `json:"selectedPages"`
	Pages         []viewer.PageSize       `json:"pages,omitempty"`
	Scale         *viewer.ScaleInfo       `json:"scale,omitempty"`
	Annotations   []annotation.Annotation `json:"annotations"`
	Selected      string                  `json:"selected,omitempty"`
	Mode          string                  `json:"mode"`
	ExportStatus  export.Status           `json:"exportStatus"`
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		Loaded:        e.source != nil,
		Name:          e.name,
		TotalPages:    e.view.TotalPages(),
		CurrentPage:   e.view.CurrentPage(),
		SelectedPages: e.view.SelectedPages(),
		Scale:         e.view.Scale(),
		Annotations:   e.store.All(),
		Selected:      e.ctrl.Selected(),
		Mode:          e.ctrl.Mode().String(),
		ExportStatus:  e.exporter.Status(),
	}
	s.Pages = append(s.Pages, e.pages...)
	if s.SelectedPages == nil {
		s.SelectedPages = []int{}
	}
	return s
}

// PageAnnotations lists the annotations of page in z-order.
func (e *Editor) PageAnnotations(page int) ([]annotation.Annotation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.view.ValidPage(page) {
		return nil, fmt.Errorf("list page %d: %w", page, viewer.ErrInvalidPageReference)
	}
	return e.store.ByPage(page), nil
}
