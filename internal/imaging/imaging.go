// Package imaging produces the rasters that become annotations.
//
// Three tools feed the annotation store: a freehand drawing pad, a stamp
// generator and an image upload. Each is a Source and normalizes to the same
// shape, a PNG or JPEG with known pixel dimensions.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"go-signpdf/internal/annotation"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image too large")
	ErrEmptyDrawing      = errors.New("drawing is empty")
	ErrInvalidStamp      = errors.New("invalid stamp")
	ErrInvalidColor      = errors.New("invalid color")
)

// Limits on the decoded size of any image, checked from the header before
// the pixels are decoded.
const (
	MaxImageEdge   = 8000
	MaxImagePixels = 40_000_000
)

// Source is one of FreehandDrawing, GeneratedStamp or UploadedImage.
type Source interface {
	Normalize() (annotation.Image, error)
	isSource()
}

// Decode inspects raw PNG or JPEG bytes and returns them with their size.
func Decode(data []byte) (annotation.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return annotation.Image{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	var mime string
	switch format {
	case "png":
		mime = "image/png"
	case "jpeg":
		mime = "image/jpeg"
	default:
		return annotation.Image{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return annotation.Image{}, err
	}
	return annotation.Image{Data: data, MIME: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

func checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty image", ErrUnsupportedFormat)
	}
	if w > MaxImageEdge || h > MaxImageEdge || int64(w)*int64(h) > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, w, h)
	}
	return nil
}

// DecodeDataURL decodes a base64 "data:image/...;base64," URL.
func DecodeDataURL(s string) (annotation.Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return annotation.Image{}, fmt.Errorf("%w: not a data URL", ErrUnsupportedFormat)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") || !strings.HasPrefix(meta, "image/") {
		return annotation.Image{}, fmt.Errorf("%w: expected base64 image data", ErrUnsupportedFormat)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadBytes+2 {
		return annotation.Image{}, ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return annotation.Image{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if len(data) > MaxUploadBytes {
		return annotation.Image{}, ErrTooLarge
	}
	return Decode(data)
}

func encodePNG(img image.Image) (annotation.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return annotation.Image{}, fmt.Errorf("encode png: %w", err)
	}
	b := img.Bounds()
	return annotation.Image{Data: buf.Bytes(), MIME: "image/png", Width: b.Dx(), Height: b.Dy()}, nil
}

// ParseHexColor parses #rgb or #rrggbb.
func ParseHexColor(s string) (color.NRGBA, error) {
	h, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
