// Package export writes annotations into the source PDF.
//
// Types:
//   - Coordinator: Runs one export at a time and tracks its status.
//   - Document: The operations an export needs from a loaded PDF.
//
// Expected outputs:
// - Each annotation lands on its page at the position it had on screen, using
//   the render scale captured when it was placed
// - Annotations whose page no longer exists are skipped
// - The source bytes and the annotations are never modified
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-signpdf/internal/annotation"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/projection"
)

var (
	// Warnings: nothing was attempted.
	ErrNoDocument    = errors.New("no PDF document loaded")
	ErrNoAnnotations = errors.New("no signatures placed")
	ErrScaleUnknown  = errors.New("page scale not computed yet")

	ErrInProgress = errors.New("export already in progress")
	ErrFailed     = errors.New("failed to save PDF")
)

// IsWarning reports whether err is a precondition failure rather than an
// error raised while saving.
func IsWarning(err error) bool {
	return errors.Is(err, ErrNoDocument) || errors.Is(err, ErrNoAnnotations) || errors.Is(err, ErrScaleUnknown)
}

type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)

type Document interface {
	PageCount() int
	PageSize(index int) (pdf.PageSize, bool)
	EmbedImage(data []byte, format pdf.ImageFormat) (*pdf.Image, error)
	DrawImage(index int, img *pdf.Image, x, y, width, height float64) error
	Save() ([]byte, error)
}

// Loader parses PDF bytes into a fresh Document.
type Loader func(data []byte) (Document, error)

func LoadPDF(data []byte) (Document, error) {
	doc, err := pdf.Load(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

type Request struct {
	Source      []byte
	Annotations []annotation.Annotation
	// ScaleKnown is false until the viewer has computed a scale.
	ScaleKnown bool
}

// Result describes a finished export.
type Result struct {
	Data    []byte
	Drawn   int
	Skipped int
}

type Coordinator struct {
	load   Loader
	logger *slog.Logger

	mu     sync.Mutex
	status Status
}

func NewCoordinator(load Loader, logger *slog.Logger) *Coordinator {
	if load == nil {
		load = LoadPDF
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{load: load, logger: logger, status: StatusIdle}
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Export loads a fresh copy of the source and draws every annotation on it.
// Preconditions are checked before the PDF is touched. Any failure while
// saving is logged and reported as ErrFailed.
func (c *Coordinator) Export(ctx context.Context, req Request) (Result, error) {
	switch {
	case len(req.Source) == 0:
		return Result{}, ErrNoDocument
	case len(req.Annotations) == 0:
		return Result{}, ErrNoAnnotations
	case !req.ScaleKnown:
		return Result{}, ErrScaleUnknown
	}

	c.mu.Lock()
	if c.status == StatusSaving {
		c.mu.Unlock()
		return Result{}, ErrInProgress
	}
	c.status = StatusSaving
	c.mu.Unlock()

	res, err := c.run(ctx, req)
	if err != nil {
		c.setStatus(StatusFailed)
		c.logger.Error("export failed", "error", err, "annotations", len(req.Annotations))
		return Result{}, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	c.setStatus(StatusDone)
	c.logger.Info("export finished", "drawn", res.Drawn, "skipped", res.Skipped, "bytes", len(res.Data))
	return res, nil
}

func (c *Coordinator) run(ctx context.Context, req Request) (Result, error) {
	doc, err := c.load(req.Source)
	if err != nil {
		return Result{}, fmt.Errorf("load source: %w", err)
	}

	var res Result
	for _, a := range req.Annotations {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		index := a.Page - 1
		page, ok := doc.PageSize(index)
		if !ok {
			c.logger.Warn("skipping annotation on missing page", "id", a.ID, "page", a.Page, "pages", doc.PageCount())
			res.Skipped++
			continue
		}

		format := pdf.PNG
		if a.Image.IsJPEG() {
			format = pdf.JPEG
		}
		img, err := doc.EmbedImage(a.Image.Data, format)
		if err != nil {
			return Result{}, fmt.Errorf("embed annotation %s: %w", a.ID, err)
		}

		r := projection.Annotation(a, page.Height)
		if err := doc.DrawImage(index, img, r.X, r.Y, r.Width, r.Height); err != nil {
			return Result{}, fmt.Errorf("draw annotation %s: %w", a.ID, err)
		}
		res.Drawn++
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := doc.Save()
	if err != nil {
		return Result{}, err
	}
	res.Data = data
	return res, nil
}
