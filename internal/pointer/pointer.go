// Package pointer turns pointer gestures into annotation edits.
//
// Mouse and touch input are expected to be unified into Event values before
// they reach the Controller. A Controller runs one gesture at a time: a drag
// started on an annotation's body, or a resize started on the resize handle of
// the selected annotation.
package pointer

import (
	"math"
	"time"

	"go-signpdf/internal/annotation"
)

const (
	// MinSize is the smallest width a resize may produce.
	MinSize = annotation.MinSize
	// HandleSize is the side of the square resize handle centred on the
	// bottom-right corner of the selected annotation.
	HandleSize = 14.0
	// ReleaseGuard is how long after a gesture ends a background click is
	// ignored.
	ReleaseGuard = 100 * time.Millisecond
)

type Phase int

const (
	PhaseDown Phase = iota
	PhaseMove
	PhaseUp
	// PhaseCancel means the pointer left the window.
	PhaseCancel
)

var phaseNames = map[string]Phase{
	"down":   PhaseDown,
	"move":   PhaseMove,
	"up":     PhaseUp,
	"cancel": PhaseCancel,
}

// ParsePhase maps the wire names down/move/up/cancel onto phases.
func ParsePhase(s string) (Phase, bool) {
	p, ok := phaseNames[s]
	return p, ok
}

// Event is a pointer sample in render-space coordinates of the page surface.
type Event struct {
	X     float64
	Y     float64
	Phase Phase
}

type Mode int

const (
	Idle Mode = iota
	Dragging
	Resizing
)

func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// ClampPosition keeps a box of size w×h inside a surface of size maxW×maxH.
// Boxes larger than the surface are pinned to the origin.
func ClampPosition(x, y, w, h, maxW, maxH float64) (float64, float64) {
	x = math.Max(0, math.Min(x, maxW-w))
	y = math.Max(0, math.Min(y, maxH-h))
	return x, y
}

// AspectResize returns the size for a requested width, keeping the aspect
// ratio of startW×startH and never going below MinSize wide.
func AspectResize(startW, startH, width float64) (float64, float64) {
	aspect := startW / startH
	w := math.Max(MinSize, width)
	return w, w / aspect
}
