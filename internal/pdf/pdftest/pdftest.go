// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Size is a page size in points.
type Size struct {
	Width, Height float64
}

var Letter = Size{Width: 612, Height: 792}

// Box is a page boundary given by its lower-left and upper-right corners.
type Box struct {
	LLX, LLY, URX, URY float64
}

func (b Box) String() string {
	return fmt.Sprintf("[%g %g %g %g]", b.LLX, b.LLY, b.URX, b.URY)
}

// Page is a page by its boxes. A zero CropBox is left out of the page dict.
type Page struct {
	MediaBox Box
	CropBox  Box
}

// Page returns a page of size s with its MediaBox at the origin.
func (s Size) Page() Page {
	return Page{MediaBox: Box{URX: s.Width, URY: s.Height}}
}

// Blank returns a PDF with n empty pages of the given size.
func Blank(n int, width, height float64) []byte {
	sizes := make([]Size, n)
	for i := range sizes {
		sizes[i] = Size{Width: width, Height: height}
	}
	return Pages(sizes...)
}

// Pages returns a PDF with one empty page per size.
func Pages(sizes ...Size) []byte {
	pages := make([]Page, len(sizes))
	for i, s := range sizes {
		pages[i] = s.Page()
	}
	return Document(pages...)
}

// Document returns a PDF with one empty page per entry of pages.
func Document(pages ...Page) []byte {
	var buf bytes.Buffer
	offsets := []int{0}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	for i, p := range pages {
		boxes := "/MediaBox " + p.MediaBox.String()
		if p.CropBox != (Box{}) {
			boxes += " /CropBox " + p.CropBox.String()
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R %s /Contents %d 0 R /Resources << >> >>", boxes, 4+2*i))
		obj("<< /Length 3 >>\nstream\nq Q\nendstream")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets), xref)
	return buf.Bytes()
}
