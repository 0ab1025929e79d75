// Package viewer tracks what the user is looking at: the current page, the
// pages selected as copy targets and the render scale of the page on screen.
//
// The browser rasterizes pages itself; this package only owns the scale
// descriptor that maps PDF user space onto the on-screen raster.
package viewer

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

const (
	DefaultContainerWidth = 800.0
	DefaultMaxHeight      = 600.0
	// ViewportPadding is subtracted from the container width before fitting.
	ViewportPadding = 40.0
	MaxScale        = 1.5
)

var (
	ErrInvalidPageReference = errors.New("page does not exist in document")
	ErrInvalidViewport      = errors.New("viewport has no room for a page")
)

// ScaleInfo describes one render of one page.
type ScaleInfo struct {
	Scale          float64 `json:"scale"`
	OriginalWidth  float64 `json:"originalWidth"`
	OriginalHeight float64 `json:"originalHeight"`
	RenderedWidth  float64 `json:"renderedWidth"`
	RenderedHeight float64 `json:"renderedHeight"`
}

// Viewport is the space available for the page raster.
type Viewport struct {
	ContainerWidth float64 `json:"containerWidth"`
	MaxHeight      float64 `json:"maxHeight"`
}

// Validate accepts zero fields, which take the defaults, and rejects a
// viewport whose fitted scale would not be positive.
func (v Viewport) Validate() error {
	if v.ContainerWidth < 0 || v.MaxHeight < 0 || math.IsNaN(v.ContainerWidth) || math.IsNaN(v.MaxHeight) {
		return fmt.Errorf("%w: container width %g, max height %g", ErrInvalidViewport, v.ContainerWidth, v.MaxHeight)
	}
	d := v.withDefaults()
	if d.ContainerWidth <= ViewportPadding || math.IsInf(d.ContainerWidth, 0) || math.IsInf(d.MaxHeight, 0) {
		return fmt.Errorf("%w: container width %g must exceed the %g padding", ErrInvalidViewport, v.ContainerWidth, ViewportPadding)
	}
	return nil
}

func (v Viewport) withDefaults() Viewport {
	if v.ContainerWidth <= 0 {
		v.ContainerWidth = DefaultContainerWidth
	}
	if v.MaxHeight <= 0 {
		v.MaxHeight = DefaultMaxHeight
	}
	return v
}

// PageSize is a page box in PDF user-space units.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fit computes the uniform scale that fits a page into the viewport. The
// viewport must pass Validate.
func Fit(page PageSize, vp Viewport) ScaleInfo {
	vp = vp.withDefaults()
	scaleX := (vp.ContainerWidth - ViewportPadding) / page.Width
	scaleY := vp.MaxHeight / page.Height
	scale := math.Min(math.Min(scaleX, scaleY), MaxScale)
	return ScaleInfo{
		Scale:          scale,
		OriginalWidth:  page.Width,
		OriginalHeight: page.Height,
		RenderedWidth:  page.Width * scale,
		RenderedHeight: page.Height * scale,
	}
}

// Renderer turns a page number into the scale descriptor of its render.
type Renderer interface {
	Render(page int, vp Viewport) (ScaleInfo, error)
}

// PageRenderer renders from a fixed list of page boxes.
type PageRenderer struct {
	pages []PageSize
}

func NewPageRenderer(pages []PageSize) *PageRenderer {
	return &PageRenderer{pages: slices.Clone(pages)}
}

func (r *PageRenderer) Render(page int, vp Viewport) (ScaleInfo, error) {
	if page < 1 || page > len(r.pages) {
		return ScaleInfo{}, fmt.Errorf("render page %d: %w", page, ErrInvalidPageReference)
	}
	p := r.pages[page-1]
	if p.Width <= 0 || p.Height <= 0 {
		return ScaleInfo{}, fmt.Errorf("render page %d: empty page box", page)
	}
	if err := vp.Validate(); err != nil {
		return ScaleInfo{}, fmt.Errorf("render page %d: %w", page, err)
	}
	return Fit(p, vp), nil
}

// State is the per-document view state.
type State struct {
	currentPage   int
	selectedPages []int
	totalPages    int
	scale         *ScaleInfo
}

// NewState starts on page 1 with page 1 selected.
func NewState(totalPages int) *State {
	s := &State{currentPage: 1, totalPages: totalPages}
	if totalPages > 0 {
		s.selectedPages = []int{1}
	}
	return s
}

func (s *State) CurrentPage() int { return s.currentPage }
func (s *State) TotalPages() int  { return s.totalPages }

func (s *State) SelectedPages() []int { return slices.Clone(s.selectedPages) }

// ValidPage reports whether page exists in the document.
func (s *State) ValidPage(page int) bool {
	return page >= 1 && page <= s.totalPages
}

// GoTo changes the current page. The caller re-renders afterwards.
func (s *State) GoTo(page int) error {
	if !s.ValidPage(page) {
		return fmt.Errorf("go to page %d: %w", page, ErrInvalidPageReference)
	}
	s.currentPage = page
	return nil
}

// TogglePage adds page to the selection or removes it.
func (s *State) TogglePage(page int) error {
	if !s.ValidPage(page) {
		return fmt.Errorf("toggle page %d: %w", page, ErrInvalidPageReference)
	}
	if i := slices.Index(s.selectedPages, page); i >= 0 {
		s.selectedPages = slices.Delete(s.selectedPages, i, i+1)
		return nil
	}
	s.selectedPages = append(s.selectedPages, page)
	slices.Sort(s.selectedPages)
	return nil
}

// SelectPages replaces the selection. Duplicates collapse; order is ascending.
func (s *State) SelectPages(pages []int) error {
	for _, p := range pages {
		if !s.ValidPage(p) {
			return fmt.Errorf("select page %d: %w", p, ErrInvalidPageReference)
		}
	}
	sel := slices.Clone(pages)
	slices.Sort(sel)
	s.selectedPages = slices.Compact(sel)
	return nil
}

// SetScale records the descriptor of the latest render.
func (s *State) SetScale(info ScaleInfo) {
	s.scale = &info
}

// Scale returns the active scale descriptor, nil before the first render.
func (s *State) Scale() *ScaleInfo {
	if s.scale == nil {
		return nil
	}
	info := *s.scale
	return &info
}

func (s *State) HasScale() bool { return s.scale != nil }

// Bounds returns the rendered size of the current page.
func (s *State) Bounds() (width, height float64, ok bool) {
	if s.scale == nil {
		return 0, 0, false
	}
	return s.scale.RenderedWidth, s.scale.RenderedHeight, true
}
