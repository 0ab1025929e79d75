package pdf

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"regexp"
	"strconv"
	"testing"

	"go-signpdf/internal/pdf/pdftest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	doc, err := Load(pdftest.Pages(pdftest.Letter, pdftest.Size{Width: 595, Height: 842}))
	if err != nil {
		t.Fatal(err)
	}
	want := []PageSize{{612, 792}, {595, 842}}
	if diff := cmp.Diff(want, doc.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := doc.PageSize(2); ok {
		t.Error("PageSize(2) reported ok on a two page document")
	}
}

func TestLoadReportsCropBox(t *testing.T) {
	doc, err := Load(pdftest.Document(
		pdftest.Page{MediaBox: pdftest.Box{URX: 612, URY: 792}, CropBox: pdftest.Box{LLX: 100, LLY: 100, URX: 512, URY: 692}},
		pdftest.Page{MediaBox: pdftest.Box{LLX: 50, LLY: 50, URX: 662, URY: 842}},
	))
	if err != nil {
		t.Fatal(err)
	}
	want := []PageSize{{412, 592}, {612, 792}}
	if diff := cmp.Diff(want, doc.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsNonPDF(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello"), testPNG(t, 2, 2), []byte("%PDF-1.4\ngarbage")} {
		if _, err := Load(data); !errors.Is(err, ErrNotPDF) {
			t.Errorf("Load(%.10q) = %v, want ErrNotPDF", data, err)
		}
	}
}

func TestEmbedImage(t *testing.T) {
	img, err := EmbedImage(testPNG(t, 30, 10), PNG)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 30 || img.Height() != 10 || img.Format() != PNG {
		t.Errorf("got %dx%d %v", img.Width(), img.Height(), img.Format())
	}
	if _, err := EmbedImage(testPNG(t, 30, 10), JPEG); !errors.Is(err, ErrImageFormat) {
		t.Errorf("png declared as jpeg: %v", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := EmbedImage(buf.Bytes(), JPEG); err != nil {
		t.Errorf("jpeg: %v", err)
	}
}

// stamp is one image stamp found in a page's content stream.
type stamp struct {
	X, Y float64   // translation of the form
	BBox []float64 // the form's bounding box
}

var stampOp = regexp.MustCompile(`q ([-0-9.]+) ([-0-9.]+) ([-0-9.]+) ([-0-9.]+) ([-0-9.]+) ([-0-9.]+) cm /\w+ gs /(\w+) Do Q`)

// pageStamps re-reads data and lists the stamps painted on page (1-based).
func pageStamps(t *testing.T, data []byte, page int) []stamp {
	t.Helper()
	ctx, err := pdfapi.ReadAndValidate(bytes.NewReader(data), newConfig())
	if err != nil {
		t.Fatal(err)
	}
	d, _, _, err := ctx.PageDict(page, false)
	if err != nil {
		t.Fatal(err)
	}
	content, err := ctx.PageContent(d)
	if err != nil {
		t.Fatalf("page %d content: %v", page, err)
	}
	var stamps []stamp
	for _, m := range stampOp.FindAllSubmatch(content, -1) {
		x, _ := strconv.ParseFloat(string(m[5]), 64)
		y, _ := strconv.ParseFloat(string(m[6]), 64)
		s := stamp{X: x, Y: y}

		res, err := ctx.DereferenceDict(d["Resources"])
		if err != nil {
			t.Fatal(err)
		}
		xo, err := ctx.DereferenceDict(res["XObject"])
		if err != nil || xo == nil {
			t.Fatalf("page %d has no XObject resources: %v", page, err)
		}
		form, _, err := ctx.DereferenceStreamDict(xo[string(m[7])])
		if err != nil || form == nil {
			t.Fatalf("form %s: %v", m[7], err)
		}
		bbox, err := ctx.DereferenceArray(form.Dict["BBox"])
		if err != nil {
			t.Fatal(err)
		}
		for _, o := range bbox {
			v, err := ctx.DereferenceNumber(o)
			if err != nil {
				t.Fatal(err)
			}
			s.BBox = append(s.BBox, v)
		}
		stamps = append(stamps, s)
	}
	return stamps
}

func TestDrawImageAndSave(t *testing.T) {
	src := pdftest.Blank(3, 612, 792)
	doc, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	img, err := doc.EmbedImage(testPNG(t, 300, 100), PNG)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.DrawImage(0, img, 100, 642, 150, 50); err != nil {
		t.Fatal(err)
	}
	if err := doc.DrawImage(2, img, 0, 0, 75, 25); err != nil {
		t.Fatal(err)
	}
	out, err := doc.Save()
	if err != nil {
		t.Fatal(err)
	}
	if !IsPDF(out) {
		t.Fatal("output is not a PDF")
	}
	again, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc.Pages(), again.Pages()); diff != "" {
		t.Errorf("page sizes changed (-before +after):\n%s", diff)
	}

	approx := cmpopts.EquateApprox(0, 1e-3)
	want := map[int][]stamp{
		1: {{X: 100, Y: 642, BBox: []float64{0, 0, 150, 50}}},
		2: nil,
		3: {{X: 0, Y: 0, BBox: []float64{0, 0, 75, 25}}},
	}
	for page, w := range want {
		if diff := cmp.Diff(w, pageStamps(t, out, page), approx); diff != "" {
			t.Errorf("page %d stamps (-want +got):\n%s", page, diff)
		}
	}
}

func TestDrawImageSeveralOnOnePage(t *testing.T) {
	doc, err := Load(pdftest.Blank(1, 612, 792))
	if err != nil {
		t.Fatal(err)
	}
	img, err := doc.EmbedImage(testPNG(t, 100, 100), PNG)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range []float64{10, 200, 400} {
		if err := doc.DrawImage(0, img, x, 20, 50, 50); err != nil {
			t.Fatal(err)
		}
	}
	out, err := doc.Save()
	if err != nil {
		t.Fatal(err)
	}
	got := pageStamps(t, out, 1)
	if len(got) != 3 {
		t.Fatalf("%d stamps on page 1, want 3", len(got))
	}
	for i, x := range []float64{10, 200, 400} {
		if got[i].X != x || got[i].Y != 20 {
			t.Errorf("stamp %d at (%v, %v)", i, got[i].X, got[i].Y)
		}
	}

	// Save is repeatable and does not stamp twice.
	again, err := doc.Save()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(pageStamps(t, again, 1)); n != 3 {
		t.Errorf("second Save has %d stamps", n)
	}
}

func TestDrawImageOffsetBoxes(t *testing.T) {
	src := pdftest.Document(
		pdftest.Page{MediaBox: pdftest.Box{URX: 612, URY: 792}, CropBox: pdftest.Box{LLX: 100, LLY: 100, URX: 512, URY: 692}},
		pdftest.Page{MediaBox: pdftest.Box{LLX: 50, LLY: 50, URX: 662, URY: 842}},
	)
	doc, err := Load(src)
	if err != nil {
		t.Fatal(err)
	}
	img, err := doc.EmbedImage(testPNG(t, 300, 100), PNG)
	if err != nil {
		t.Fatal(err)
	}
	// top-left corner of the visible page on both pages
	crop, _ := doc.PageSize(0)
	if err := doc.DrawImage(0, img, 0, crop.Height-50, 150, 50); err != nil {
		t.Fatal(err)
	}
	media, _ := doc.PageSize(1)
	if err := doc.DrawImage(1, img, 0, media.Height-50, 150, 50); err != nil {
		t.Fatal(err)
	}
	out, err := doc.Save()
	if err != nil {
		t.Fatal(err)
	}

	approx := cmpopts.EquateApprox(0, 1e-3)
	// user space positions: the box origin plus the placement
	if diff := cmp.Diff([]stamp{{X: 100, Y: 642, BBox: []float64{0, 0, 150, 50}}}, pageStamps(t, out, 1), approx); diff != "" {
		t.Errorf("cropped page (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]stamp{{X: 50, Y: 792, BBox: []float64{0, 0, 150, 50}}}, pageStamps(t, out, 2), approx); diff != "" {
		t.Errorf("offset media box (-want +got):\n%s", diff)
	}
}

func TestDrawImageErrors(t *testing.T) {
	doc, err := Load(pdftest.Blank(1, 612, 792))
	if err != nil {
		t.Fatal(err)
	}
	img, err := EmbedImage(testPNG(t, 10, 10), PNG)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.DrawImage(1, img, 0, 0, 10, 10); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("page 1: %v", err)
	}
	if err := doc.DrawImage(-1, img, 0, 0, 10, 10); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("page -1: %v", err)
	}
	if err := doc.DrawImage(0, img, 0, 0, 0, 10); !errors.Is(err, ErrEmptyPlacement) {
		t.Errorf("zero width: %v", err)
	}
}
