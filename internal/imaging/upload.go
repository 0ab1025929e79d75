package imaging

import (
	"bytes"
	"fmt"
	"image"
	"net/http"

	"go-signpdf/internal/annotation"

	"golang.org/x/image/draw"
)

const (
	MaxUploadBytes = 5 * 1024 * 1024
	// MaxUploadEdge bounds both sides of an uploaded image after normalizing.
	MaxUploadEdge = 300
)

// UploadedImage is a PNG or JPEG file supplied by the user.
type UploadedImage struct {
	Data []byte
}

func (UploadedImage) isSource() {}

// Normalize checks the content type and the pixel dimensions, shrinks the image to fit
// MaxUploadEdge×MaxUploadEdge and re-encodes it as PNG.
func (u UploadedImage) Normalize() (annotation.Image, error) {
	if len(u.Data) > MaxUploadBytes {
		return annotation.Image{}, ErrTooLarge
	}
	switch ct := http.DetectContentType(u.Data); ct {
	case "image/png", "image/jpeg":
	default:
		return annotation.Image{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ct)
	}
	// header first, so oversized images are refused before any pixel is allocated
	if _, err := Decode(u.Data); err != nil {
		return annotation.Image{}, err
	}
	src, _, err := image.Decode(bytes.NewReader(u.Data))
	if err != nil {
		return annotation.Image{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), MaxUploadEdge)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return encodePNG(dst)
}

// fitWithin scales w×h down, keeping the aspect ratio, until neither side
// exceeds limit. Images already within the limit are unchanged.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w > h {
		nh := max(1, int(float64(h)/float64(w)*float64(limit)+0.5))
		return limit, nh
	}
	nw := max(1, int(float64(w)/float64(h)*float64(limit)+0.5))
	return nw, limit
}
