// Package annotation holds the overlays placed on document pages.
//
// Types:
//   - Image: an immutable decoded raster (PNG or JPEG) with its pixel size.
//   - Annotation: one overlay bound to a page, in render-space pixels, with the
//     render scale captured when it was created.
//   - Store: the ordered collection of annotations of one document.
//
// Expected outputs:
// - Annotation IDs are unique (UUID)
// - Insertion order is preserved and doubles as z-order and export order
// - The captured scale never changes after creation
package annotation

import (
	"errors"
	"strings"
)

const (
	DefaultWidth = 150.0
	MinSize      = 30.0
	MaxSize      = 300.0
	DefaultX     = 100.0
	DefaultY     = 100.0
)

var (
	ErrNoActiveDocument = errors.New("no document loaded")
	ErrNotFound         = errors.New("annotation not found")
	ErrEmptyImage       = errors.New("image has no pixels")
)

type Image struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// IsJPEG reports whether the image declares itself as JPEG. Anything else is
// treated as PNG.
func (img Image) IsJPEG() bool {
	m := strings.ToLower(img.MIME)
	return m == "image/jpeg" || m == "image/jpg"
}

type Annotation struct {
	ID     string  `json:"id"`
	Page   int     `json:"page"`
	Image  Image   `json:"-"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

func (a Annotation) AspectRatio() float64 {
	return a.Width / a.Height
}

// Contains reports whether the render-space point lies on the annotation.
func (a Annotation) Contains(x, y float64) bool {
	return x >= a.X && x <= a.X+a.Width && y >= a.Y && y <= a.Y+a.Height
}

// displaySize fits an image of the given pixel size to the default footprint:
// 150 px wide, with the height clamped to [MinSize, MaxSize].
func displaySize(pixelWidth, pixelHeight int) (w, h float64) {
	aspect := float64(pixelWidth) / float64(pixelHeight)
	w = DefaultWidth
	h = w / aspect
	switch {
	case h < MinSize:
		h = MinSize
		w = h * aspect
	case h > MaxSize:
		h = MaxSize
		w = h * aspect
	}
	return w, h
}
