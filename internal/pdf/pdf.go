// Package pdf loads PDF documents, stamps images onto their pages and writes
// them back out. It is a thin layer over pdfcpu.
//
// Functions:
//   - Load: Parses a PDF held in memory.
//     Input: PDF bytes.
//     Output: *Document with the CropBox size of every page, or ErrNotPDF.
//   - EmbedImage: Prepares PNG or JPEG bytes for drawing.
//   - (*Document).DrawImage: Queues an image stamp on a page at a rectangle
//     given in PDF points, origin at the CropBox's bottom-left corner.
//   - (*Document).Save: Applies queued stamps and returns the optimized document.
//
// Pages are addressed by zero-based index.
//
// Stamps are pdfcpu stamps: each image becomes a form XObject painted inside
// an /Artifact /Watermark marked-content sequence under an optional content
// group. Tools that remove pdfcpu watermarks can therefore remove them.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	ErrNotPDF         = errors.New("not a PDF document")
	ErrNoPages        = errors.New("document has no pages")
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrImageFormat    = errors.New("image does not match its declared format")
	ErrEmptyPlacement = errors.New("image placement has no area")

	pdfMagic = []byte("%PDF-")
)

type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG
)

func (f ImageFormat) String() string {
	if f == JPEG {
		return "jpeg"
	}
	return "png"
}

// PageSize is in PDF points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Document struct {
	data  []byte
	pages []PageSize
	conf  *model.Configuration
	// pending holds the stamps not yet written, keyed by page number.
	pending map[int][]*model.Watermark
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic)
}

func Load(data []byte) (*Document, error) {
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}
	conf := newConfig()
	ctx, err := pdfapi.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	boxes, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if len(boxes) == 0 {
		return nil, ErrNoPages
	}
	if len(boxes) != ctx.PageCount {
		return nil, fmt.Errorf("%w: corrupt page tree", ErrNotPDF)
	}
	doc := &Document{
		data:    bytes.Clone(data),
		pages:   make([]PageSize, len(boxes)),
		conf:    conf,
		pending: make(map[int][]*model.Watermark),
	}
	for i, pb := range boxes {
		size, err := visibleSize(pb)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrNotPDF, i+1, err)
		}
		doc.pages[i] = size
	}
	return doc, nil
}

// visibleSize is the size of the CropBox, the region viewers display and
// the one stamps are anchored to. Quarter-turned pages swap their sides.
func visibleSize(pb model.PageBoundaries) (PageSize, error) {
	crop := pb.CropBox()
	if crop == nil || crop.Width() <= 0 || crop.Height() <= 0 {
		crop = pb.MediaBox()
	}
	if crop == nil || crop.Width() <= 0 || crop.Height() <= 0 {
		return PageSize{}, errors.New("empty page box")
	}
	size := PageSize{Width: crop.Width(), Height: crop.Height()}
	if pb.Rot%180 != 0 {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) Pages() []PageSize {
	out := make([]PageSize, len(d.pages))
	copy(out, d.pages)
	return out
}

// PageSize returns the size of the page at index.
func (d *Document) PageSize(index int) (PageSize, bool) {
	if index < 0 || index >= len(d.pages) {
		return PageSize{}, false
	}
	return d.pages[index], true
}

// Image is an embedded raster ready to be drawn any number of times.
type Image struct {
	data          []byte
	format        ImageFormat
	width, height int
}

func (img *Image) Format() ImageFormat { return img.format }
func (img *Image) Width() int          { return img.width }
func (img *Image) Height() int         { return img.height }

func EmbedImage(data []byte, format ImageFormat) (*Image, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", format, err)
	}
	if name != format.String() {
		return nil, fmt.Errorf("%w: declared %s, found %s", ErrImageFormat, format, name)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("embed %s: empty image", format)
	}
	return &Image{data: data, format: format, width: cfg.Width, height: cfg.Height}, nil
}

// EmbedImage calls the package-level EmbedImage.
func (d *Document) EmbedImage(data []byte, format ImageFormat) (*Image, error) {
	return EmbedImage(data, format)
}

// DrawImage stamps img on the page at index so that its lower-left corner is
// at (x, y) and it covers width×height points. Coordinates are relative to
// the lower-left corner of the page's CropBox, the box Pages reports. The
// image is stretched to the rectangle's width; its height follows the
// image's own aspect ratio. Stamps are written out by Save.
func (d *Document) DrawImage(index int, img *Image, x, y, width, height float64) error {
	if _, ok := d.PageSize(index); !ok {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, index, len(d.pages))
	}
	if width <= 0 || height <= 0 {
		return ErrEmptyPlacement
	}
	scale := width / float64(img.width)
	desc := fmt.Sprintf("position:bl, offset:%.4f %.4f, scalefactor:%.6f abs, rotation:0, opacity:1", x, y, scale)
	wm, err := pdfapi.ImageWatermarkForReader(bytes.NewReader(img.data), desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("prepare image stamp: %w", err)
	}
	// the description is rounded; keep the exact placement
	wm.Dx = x
	wm.Dy = y
	wm.Scale = scale
	wm.ScaleAbs = true

	d.pending[index+1] = append(d.pending[index+1], wm)
	return nil
}

// Save writes every pending stamp in a single pass and returns the
// optimized document.
func (d *Document) Save() ([]byte, error) {
	if len(d.pending) > 0 {
		var stamped bytes.Buffer
		if err := pdfapi.AddWatermarksSliceMap(bytes.NewReader(d.data), &stamped, d.pending, d.conf); err != nil {
			return nil, fmt.Errorf("stamp pages: %w", err)
		}
		d.data = stamped.Bytes()
		d.pending = make(map[int][]*model.Watermark)
	}

	var out bytes.Buffer
	if err := pdfapi.Optimize(bytes.NewReader(d.data), &out, d.conf); err != nil {
		return nil, fmt.Errorf("optimize pdf: %w", err)
	}
	return out.Bytes(), nil
}
