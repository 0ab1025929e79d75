package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"go-signpdf/internal/annotation"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/pdf/pdftest"

	"github.com/google/go-cmp/cmp"
)

type draw struct {
	Index  int
	X, Y   float64
	Width  float64
	Height float64
	Format pdf.ImageFormat
}

type fakeDoc struct {
	pages   []pdf.PageSize
	draws   []draw
	formats []pdf.ImageFormat
	saveErr error
	// when set, Save closes saving and then waits on block
	saving chan struct{}
	block  chan struct{}
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageSize(i int) (pdf.PageSize, bool) {
	if i < 0 || i >= len(d.pages) {
		return pdf.PageSize{}, false
	}
	return d.pages[i], true
}

func (d *fakeDoc) EmbedImage(data []byte, format pdf.ImageFormat) (*pdf.Image, error) {
	d.formats = append(d.formats, format)
	return &pdf.Image{}, nil
}

func (d *fakeDoc) DrawImage(i int, _ *pdf.Image, x, y, w, h float64) error {
	d.draws = append(d.draws, draw{Index: i, X: x, Y: y, Width: w, Height: h, Format: d.formats[len(d.formats)-1]})
	return nil
}

func (d *fakeDoc) Save() ([]byte, error) {
	if d.block != nil {
		close(d.saving)
		<-d.block
	}
	if d.saveErr != nil {
		return nil, d.saveErr
	}
	return []byte("%PDF-signed"), nil
}

type fakeLoader struct {
	doc   *fakeDoc
	calls int
}

func (l *fakeLoader) load(data []byte) (Document, error) {
	l.calls++
	return l.doc, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func letterDoc(n int) *fakeDoc {
	d := &fakeDoc{}
	for range n {
		d.pages = append(d.pages, pdf.PageSize{Width: 612, Height: 792})
	}
	return d
}

func pngImage() annotation.Image {
	return annotation.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png", Width: 300, Height: 100}
}

func TestExportProjectsAnnotations(t *testing.T) {
	l := &fakeLoader{doc: letterDoc(2)}
	c := NewCoordinator(l.load, quietLogger())

	res, err := c.Export(context.Background(), Request{
		Source:      []byte("%PDF-1.4"),
		Annotations: []annotation.Annotation{{ID: "a", Page: 1, Image: pngImage(), X: 100, Y: 100, Width: 150, Height: 50, Scale: 1}},
		ScaleKnown:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []draw{{Index: 0, X: 100, Y: 642, Width: 150, Height: 50, Format: pdf.PNG}}
	if diff := cmp.Diff(want, l.doc.draws); diff != "" {
		t.Errorf("draws mismatch (-want +got):\n%s", diff)
	}
	if res.Drawn != 1 || res.Skipped != 0 || string(res.Data) != "%PDF-signed" {
		t.Errorf("result = %+v", res)
	}
	if c.Status() != StatusDone {
		t.Errorf("status = %s", c.Status())
	}
}

func TestExportUsesCapturedScale(t *testing.T) {
	l := &fakeLoader{doc: letterDoc(1)}
	c := NewCoordinator(l.load, quietLogger())
	_, err := c.Export(context.Background(), Request{
		Source:      []byte("%PDF-1.4"),
		Annotations: []annotation.Annotation{{ID: "a", Page: 1, Image: pngImage(), X: 50, Y: 20, Width: 75, Height: 25, Scale: 0.5}},
		ScaleKnown:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []draw{{Index: 0, X: 100, Y: 792 - 40 - 50, Width: 150, Height: 50, Format: pdf.PNG}}
	if diff := cmp.Diff(want, l.doc.draws); diff != "" {
		t.Errorf("draws mismatch (-want +got):\n%s", diff)
	}
}

func TestExportWarnings(t *testing.T) {
	one := []annotation.Annotation{{ID: "a", Page: 1, Image: pngImage(), Width: 10, Height: 10, Scale: 1}}
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no document", Request{Annotations: one, ScaleKnown: true}, ErrNoDocument},
		{"no annotations", Request{Source: []byte("%PDF-"), ScaleKnown: true}, ErrNoAnnotations},
		{"no scale", Request{Source: []byte("%PDF-"), Annotations: one}, ErrScaleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLoader{doc: letterDoc(1)}
			c := NewCoordinator(l.load, quietLogger())
			_, err := c.Export(context.Background(), tt.req)
			if !errors.Is(err, tt.want) || !IsWarning(err) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if l.calls != 0 {
				t.Errorf("load called %d times", l.calls)
			}
			if c.Status() != StatusIdle {
				t.Errorf("status = %s", c.Status())
			}
		})
	}
}

func TestExportSkipsMissingPages(t *testing.T) {
	l := &fakeLoader{doc: letterDoc(2)}
	c := NewCoordinator(l.load, quietLogger())
	anns := []annotation.Annotation{
		{ID: "a", Page: 3, Image: pngImage(), Width: 10, Height: 10, Scale: 1},
		{ID: "b", Page: 2, Image: pngImage(), Width: 10, Height: 10, Scale: 1},
	}
	res, err := c.Export(context.Background(), Request{Source: []byte("%PDF-"), Annotations: anns, ScaleKnown: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Drawn != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(l.doc.draws) != 1 || l.doc.draws[0].Index != 1 {
		t.Errorf("draws = %+v", l.doc.draws)
	}
}

func TestExportImageFormat(t *testing.T) {
	l := &fakeLoader{doc: letterDoc(1)}
	c := NewCoordinator(l.load, quietLogger())
	var anns []annotation.Annotation
	for i, mime := range []string{"image/jpeg", "image/jpg", "image/png", "image/webp"} {
		img := pngImage()
		img.MIME = mime
		anns = append(anns, annotation.Annotation{ID: string(rune('a' + i)), Page: 1, Image: img, Width: 10, Height: 10, Scale: 1})
	}
	if _, err := c.Export(context.Background(), Request{Source: []byte("%PDF-"), Annotations: anns, ScaleKnown: true}); err != nil {
		t.Fatal(err)
	}
	want := []pdf.ImageFormat{pdf.JPEG, pdf.JPEG, pdf.PNG, pdf.PNG}
	if diff := cmp.Diff(want, l.doc.formats); diff != "" {
		t.Errorf("formats mismatch (-want +got):\n%s", diff)
	}
}

func TestExportFailureKeepsInputs(t *testing.T) {
	doc := letterDoc(1)
	doc.saveErr = errors.New("disk full")
	l := &fakeLoader{doc: doc}
	c := NewCoordinator(l.load, quietLogger())

	src := []byte("%PDF-1.4 original")
	anns := []annotation.Annotation{{ID: "a", Page: 1, Image: pngImage(), X: 5, Y: 5, Width: 10, Height: 10, Scale: 1}}
	_, err := c.Export(context.Background(), Request{Source: src, Annotations: anns, ScaleKnown: true})
	if !errors.Is(err, ErrFailed) || IsWarning(err) {
		t.Fatalf("err = %v", err)
	}
	if string(src) != "%PDF-1.4 original" || anns[0].X != 5 {
		t.Error("inputs were modified")
	}
	if c.Status() != StatusFailed {
		t.Errorf("status = %s", c.Status())
	}
}

func TestExportCancelled(t *testing.T) {
	l := &fakeLoader{doc: letterDoc(1)}
	c := NewCoordinator(l.load, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	anns := []annotation.Annotation{{ID: "a", Page: 1, Image: pngImage(), Width: 10, Height: 10, Scale: 1}}
	_, err := c.Export(ctx, Request{Source: []byte("%PDF-"), Annotations: anns, ScaleKnown: true})
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("err = %v", err)
	}
	if len(l.doc.draws) != 0 {
		t.Errorf("draws after cancel: %+v", l.doc.draws)
	}
}

func TestExportRejectsConcurrent(t *testing.T) {
	doc := letterDoc(1)
	doc.saving = make(chan struct{})
	doc.block = make(chan struct{})
	l := &fakeLoader{doc: doc}
	c := NewCoordinator(l.load, quietLogger())
	req := Request{
		Source:      []byte("%PDF-"),
		Annotations: []annotation.Annotation{{ID: "a", Page: 1, Image: pngImage(), Width: 10, Height: 10, Scale: 1}},
		ScaleKnown:  true,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := c.Export(context.Background(), req); err != nil {
			t.Errorf("first export: %v", err)
		}
	}()
	<-doc.saving
	if _, err := c.Export(context.Background(), req); !errors.Is(err, ErrInProgress) {
		t.Errorf("second export: %v", err)
	}
	close(doc.block)
	wg.Wait()
}

func TestExportRealPDF(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 300, 100))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	c := NewCoordinator(nil, quietLogger())
	res, err := c.Export(context.Background(), Request{
		Source: pdftest.Blank(2, 612, 792),
		Annotations: []annotation.Annotation{{
			ID: "a", Page: 2, X: 100, Y: 100, Width: 150, Height: 50, Scale: 1,
			Image: annotation.Image{Data: buf.Bytes(), MIME: "image/png", Width: 300, Height: 100},
		}},
		ScaleKnown: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := pdf.Load(res.Data)
	if err != nil {
		t.Fatal(err)
	}
	if doc.PageCount() != 2 {
		t.Errorf("page count = %d", doc.PageCount())
	}
}
