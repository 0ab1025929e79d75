package imaging

import (
	"image"
	"math"

	"go-signpdf/internal/annotation"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

const (
	PadWidth        = 450
	PadHeight       = 200
	DefaultPenColor = "#000000"
	DefaultPenWidth = 3.0
	// cropPadding is the transparent margin left around the ink.
	cropPadding = 10
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FreehandDrawing is a signature drawn on the pad. Each stroke is the path of
// one pen-down/pen-up in pad coordinates.
type FreehandDrawing struct {
	Strokes  [][]Point
	Color    string
	PenWidth float64
}

func (FreehandDrawing) isSource() {}

// Normalize rasterizes the strokes with round caps and joins on a transparent
// pad and crops the result to the ink.
func (d FreehandDrawing) Normalize() (annotation.Image, error) {
	hex := d.Color
	if hex == "" {
		hex = DefaultPenColor
	}
	ink, err := ParseHexColor(hex)
	if err != nil {
		return annotation.Image{}, err
	}
	pen := d.PenWidth
	if pen <= 0 {
		pen = DefaultPenWidth
	}

	r := vector.NewRasterizer(PadWidth, PadHeight)
	drawn := false
	for _, stroke := range d.Strokes {
		if len(stroke) == 0 {
			continue
		}
		drawn = true
		strokePath(r, stroke, float32(pen/2))
	}
	if !drawn {
		return annotation.Image{}, ErrEmptyDrawing
	}

	canvas := image.NewRGBA(image.Rect(0, 0, PadWidth, PadHeight))
	r.Draw(canvas, canvas.Bounds(), image.NewUniform(ink), image.Point{})

	bounds, ok := inkBounds(canvas)
	if !ok {
		return annotation.Image{}, ErrEmptyDrawing
	}
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx()+2*cropPadding, bounds.Dy()+2*cropPadding))
	draw.Draw(out, bounds.Sub(bounds.Min).Add(image.Pt(cropPadding, cropPadding)), canvas, bounds.Min, draw.Src)
	return encodePNG(out)
}

func clampToPad(p Point) (float32, float32) {
	x := math.Max(0, math.Min(p.X, PadWidth))
	y := math.Max(0, math.Min(p.Y, PadHeight))
	return float32(x), float32(y)
}

// strokePath adds a dot at every point and a band along every segment. All
// sub-paths share one orientation so overlaps never cancel out.
func strokePath(r *vector.Rasterizer, stroke []Point, radius float32) {
	for i, p := range stroke {
		x, y := clampToPad(p)
		circle(r, x, y, radius, false)
		if i == 0 {
			continue
		}
		px, py := clampToPad(stroke[i-1])
		dx, dy := x-px, y-py
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*radius, dx/l*radius
		r.MoveTo(px-nx, py-ny)
		r.LineTo(x-nx, y-ny)
		r.LineTo(x+nx, y+ny)
		r.LineTo(px+nx, py+ny)
		r.ClosePath()
	}
}

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// circle adds a closed circular sub-path; reverse flips its orientation.
func circle(r *vector.Rasterizer, cx, cy, rad float32, reverse bool) {
	k := rad * kappa
	r.MoveTo(cx+rad, cy)
	if !reverse {
		r.CubeTo(cx+rad, cy+k, cx+k, cy+rad, cx, cy+rad)
		r.CubeTo(cx-k, cy+rad, cx-rad, cy+k, cx-rad, cy)
		r.CubeTo(cx-rad, cy-k, cx-k, cy-rad, cx, cy-rad)
		r.CubeTo(cx+k, cy-rad, cx+rad, cy-k, cx+rad, cy)
	} else {
		r.CubeTo(cx+rad, cy-k, cx+k, cy-rad, cx, cy-rad)
		r.CubeTo(cx-k, cy-rad, cx-rad, cy-k, cx-rad, cy)
		r.CubeTo(cx-rad, cy+k, cx-k, cy+rad, cx, cy+rad)
		r.CubeTo(cx+k, cy+rad, cx+rad, cy+k, cx+rad, cy)
	}
	r.ClosePath()
}

// inkBounds is the smallest rectangle holding every non-transparent pixel.
func inkBounds(img *image.RGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
