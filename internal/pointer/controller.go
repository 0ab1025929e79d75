package pointer

import (
	"math"
	"time"

	"go-signpdf/internal/annotation"
)

// Store is the part of the annotation store a Controller edits.
type Store interface {
	ByPage(page int) []annotation.Annotation
	Get(id string) (annotation.Annotation, bool)
	Move(id string, x, y float64) error
	Resize(id string, width, height float64) error
}

// Surface describes the page currently on screen.
type Surface interface {
	CurrentPage() int
	Bounds() (width, height float64, ok bool)
}

type Option func(*Controller)

// WithClock replaces time.Now, for the release guard.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// OnSelect registers a callback fired whenever the selection changes.
func OnSelect(fn func(id string)) Option {
	return func(c *Controller) { c.onSelect = fn }
}

type Controller struct {
	store    Store
	surface  Surface
	now      func() time.Time
	onSelect func(id string)

	mode     Mode
	selected string
	active   string

	// drag: pointer offset from the annotation's top-left corner
	offsetX, offsetY float64
	// resize: pointer and size at gesture start
	startX, startY float64
	startW, startH float64

	releasedAt time.Time
}

func NewController(store Store, surface Surface, opts ...Option) *Controller {
	c := &Controller{store: store, surface: surface, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Mode() Mode       { return c.mode }
func (c *Controller) Selected() string { return c.selected }

// Select makes id the single selected annotation; "" clears the selection.
func (c *Controller) Select(id string) {
	if c.selected == id {
		return
	}
	c.selected = id
	if c.onSelect != nil {
		c.onSelect(id)
	}
}

// Forget drops any reference to id, ending a gesture on it.
func (c *Controller) Forget(id string) {
	if c.active == id && c.mode != Idle {
		c.end()
	}
	if c.selected == id {
		c.Select("")
	}
}

// Reset returns to Idle with nothing selected.
func (c *Controller) Reset() {
	c.mode = Idle
	c.active = ""
	c.releasedAt = time.Time{}
	c.Select("")
}

// Handle feeds one pointer event through the gesture state machine.
func (c *Controller) Handle(ev Event) {
	switch ev.Phase {
	case PhaseDown:
		if c.mode == Idle {
			c.begin(ev)
		}
	case PhaseMove:
		switch c.mode {
		case Dragging:
			c.drag(ev)
		case Resizing:
			c.resize(ev)
		}
	case PhaseUp, PhaseCancel:
		if c.mode != Idle {
			c.end()
		}
	}
}

// Click handles a click on the page surface. A click that misses every
// annotation clears the selection, unless a gesture ended within ReleaseGuard.
func (c *Controller) Click(x, y float64) {
	if c.mode != Idle {
		return
	}
	if _, _, hit := c.hitTest(x, y); hit {
		return
	}
	if !c.releasedAt.IsZero() && c.now().Sub(c.releasedAt) < ReleaseGuard {
		return
	}
	c.Select("")
}

// hitTest finds what lies under a point: the selected annotation's resize
// handle first, then the topmost annotation body.
func (c *Controller) hitTest(x, y float64) (a annotation.Annotation, handle, ok bool) {
	onPage := c.store.ByPage(c.surface.CurrentPage())
	const half = HandleSize / 2
	for _, sel := range onPage {
		if sel.ID != c.selected {
			continue
		}
		cx, cy := sel.X+sel.Width, sel.Y+sel.Height
		if math.Abs(x-cx) <= half && math.Abs(y-cy) <= half {
			return sel, true, true
		}
	}
	for i := len(onPage) - 1; i >= 0; i-- {
		if onPage[i].Contains(x, y) {
			return onPage[i], false, true
		}
	}
	return annotation.Annotation{}, false, false
}

func (c *Controller) begin(ev Event) {
	a, handle, ok := c.hitTest(ev.X, ev.Y)
	if !ok {
		return
	}
	c.active = a.ID
	if handle {
		c.mode = Resizing
		c.startX, c.startY = ev.X, ev.Y
		c.startW, c.startH = a.Width, a.Height
		return
	}
	c.Select(a.ID)
	c.mode = Dragging
	c.offsetX, c.offsetY = ev.X-a.X, ev.Y-a.Y
}

func (c *Controller) drag(ev Event) {
	a, ok := c.store.Get(c.active)
	if !ok {
		c.end()
		return
	}
	x, y := ev.X-c.offsetX, ev.Y-c.offsetY
	if maxW, maxH, ok := c.surface.Bounds(); ok {
		x, y = ClampPosition(x, y, a.Width, a.Height, maxW, maxH)
	}
	if err := c.store.Move(a.ID, x, y); err != nil {
		c.end()
	}
}

// resize is driven by horizontal motion only. The width is capped so the box
// stays on the page, but never below MinSize.
func (c *Controller) resize(ev Event) {
	a, ok := c.store.Get(c.active)
	if !ok {
		c.end()
		return
	}
	want := c.startW + (ev.X - c.startX)
	if maxW, maxH, ok := c.surface.Bounds(); ok {
		aspect := c.startW / c.startH
		fit := math.Min(maxW-a.X, (maxH-a.Y)*aspect)
		want = math.Min(want, fit)
	}
	w, h := AspectResize(c.startW, c.startH, want)
	if err := c.store.Resize(a.ID, w, h); err != nil {
		c.end()
	}
}

func (c *Controller) end() {
	c.mode = Idle
	c.active = ""
	c.releasedAt = c.now()
}
