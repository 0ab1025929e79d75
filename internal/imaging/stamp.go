package imaging

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go-signpdf/internal/annotation"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const (
	// StampDisplaySize is the on-screen side of a stamp; the raster is
	// StampResolution times larger.
	StampDisplaySize = 150
	StampResolution  = 3
	MaxStampNameLen  = 5

	DefaultStampColor  = "#e74c3c"
	DefaultBorderWidth = 3.0
	DefaultFontSize    = 24.0
)

type StampShape string

const (
	ShapeCircle    StampShape = "circle"
	ShapeRectangle StampShape = "rectangle"
)

// GeneratedStamp is a seal: a border around a short name, optionally with
// the date on a second line.
type GeneratedStamp struct {
	Name        string
	Shape       StampShape
	Color       string
	BorderWidth float64
	FontSize    float64
	IncludeDate bool
	// Date defaults to today.
	Date time.Time
	// Font defaults to Go Bold, which has no CJK glyphs.
	Font *opentype.Font
}

func (GeneratedStamp) isSource() {}

var defaultFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(gobold.TTF)
})

// LoadFont reads a TrueType or OpenType font for stamps.
func LoadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stamp font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse stamp font %s: %w", path, err)
	}
	return f, nil
}

func (s GeneratedStamp) withDefaults() GeneratedStamp {
	if s.Shape == "" {
		s.Shape = ShapeCircle
	}
	if s.Color == "" {
		s.Color = DefaultStampColor
	}
	if s.BorderWidth <= 0 {
		s.BorderWidth = DefaultBorderWidth
	}
	if s.FontSize <= 0 {
		s.FontSize = DefaultFontSize
	}
	if s.Date.IsZero() {
		s.Date = time.Now()
	}
	return s
}

func (s GeneratedStamp) validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidStamp)
	}
	if utf8.RuneCountInString(name) > MaxStampNameLen {
		return fmt.Errorf("%w: name longer than %d characters", ErrInvalidStamp, MaxStampNameLen)
	}
	if s.Shape != ShapeCircle && s.Shape != ShapeRectangle {
		return fmt.Errorf("%w: unknown shape %q", ErrInvalidStamp, s.Shape)
	}
	if s.BorderWidth > 20 {
		return fmt.Errorf("%w: border width %v", ErrInvalidStamp, s.BorderWidth)
	}
	if s.FontSize > 72 {
		return fmt.Errorf("%w: font size %v", ErrInvalidStamp, s.FontSize)
	}
	return nil
}

// Normalize renders the stamp on a transparent square.
func (s GeneratedStamp) Normalize() (annotation.Image, error) {
	s = s.withDefaults()
	if err := s.validate(); err != nil {
		return annotation.Image{}, err
	}
	ink, err := ParseHexColor(s.Color)
	if err != nil {
		return annotation.Image{}, err
	}
	f := s.Font
	if f == nil {
		if f, err = defaultFont(); err != nil {
			return annotation.Image{}, fmt.Errorf("load stamp font: %w", err)
		}
	}

	const k = StampResolution
	size := StampDisplaySize * k
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))

	// geometry in display units, scaled on output
	c := float32(StampDisplaySize) / 2
	bw := float32(s.BorderWidth)
	radius := c - bw - 5

	r := vector.NewRasterizer(size, size)
	switch s.Shape {
	case ShapeCircle:
		circle(r, c*k, c*k, (radius+bw/2)*k, false)
		circle(r, c*k, c*k, (radius-bw/2)*k, true)
	case ShapeRectangle:
		half := radius * 1.6 / 2
		square(r, c*k, c*k, (half+bw/2)*k, false)
		square(r, c*k, c*k, (half-bw/2)*k, true)
	}
	r.Draw(canvas, canvas.Bounds(), image.NewUniform(ink), image.Point{})

	name := strings.TrimSpace(s.Name)
	fs := s.FontSize
	if s.IncludeDate {
		if err := drawCentered(canvas, f, name, fs*k, float64(c)*k, (float64(c)-fs/2)*k, ink); err != nil {
			return annotation.Image{}, err
		}
		date := s.Date.Format("2006.01.02")
		if err := drawCentered(canvas, f, date, fs*0.5*k, float64(c)*k, (float64(c)+fs/2)*k, ink); err != nil {
			return annotation.Image{}, err
		}
	} else if err := drawCentered(canvas, f, name, fs*k, float64(c)*k, float64(c)*k, ink); err != nil {
		return annotation.Image{}, err
	}
	return encodePNG(canvas)
}

func square(r *vector.Rasterizer, cx, cy, half float32, reverse bool) {
	r.MoveTo(cx-half, cy-half)
	if !reverse {
		r.LineTo(cx+half, cy-half)
		r.LineTo(cx+half, cy+half)
		r.LineTo(cx-half, cy+half)
	} else {
		r.LineTo(cx-half, cy+half)
		r.LineTo(cx+half, cy+half)
		r.LineTo(cx+half, cy-half)
	}
	r.ClosePath()
}

// drawCentered sets text with its visual middle on (cx, cy).
func drawCentered(dst *image.RGBA, f *opentype.Font, text string, size, cx, cy float64, ink color.Color) error {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("stamp face: %w", err)
	}
	defer face.Close()

	m := face.Metrics()
	width := font.MeasureString(face, text)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(int(cx)) - width/2,
			Y: fixed.I(int(cy)) + (m.Ascent-m.Descent)/2,
		},
	}
	d.DrawString(text)
	return nil
}
