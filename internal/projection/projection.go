// Package projection converts overlay geometry between render space (pixels,
// origin top-left, Y down) and PDF user space (points, origin bottom-left, Y up).
//
// Every conversion uses the scale the annotation was placed with, never the
// scale of the current render.
package projection

import "go-signpdf/internal/annotation"

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToPDF maps a render-space rectangle onto a page of the given PDF height.
func ToPDF(r Rect, scale, pageHeight float64) Rect {
	h := r.Height / scale
	return Rect{
		X:      r.X / scale,
		Y:      pageHeight - (r.Y / scale) - h,
		Width:  r.Width / scale,
		Height: h,
	}
}

// ToRender is the inverse of ToPDF.
func ToRender(p Rect, scale, pageHeight float64) Rect {
	return Rect{
		X:      p.X * scale,
		Y:      (pageHeight - p.Y - p.Height) * scale,
		Width:  p.Width * scale,
		Height: p.Height * scale,
	}
}

// Annotation projects a into PDF space using its captured scale.
func Annotation(a annotation.Annotation, pageHeight float64) Rect {
	return ToPDF(Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}, a.Scale, pageHeight)
}
