package cli

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go-signpdf/internal/editor"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/pdf/pdftest"
	"go-signpdf/internal/viewer"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plan.yaml", []byte(`
placements:
  - page: 1
    image: sig.png
    x: 10
    y: 20
    width: 120
  - page: 2
    stamp: {name: KIM, includeDate: true, date: "2024-05-01"}
    x: 30
    y: 40
copies:
  - from: 1
    to: [2, 3]
`))

	plan, err := LoadPlan(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Plan{
		Placements: []Placement{
			{Page: 1, Image: filepath.Join(dir, "sig.png"), X: 10, Y: 20, Width: 120},
			{Page: 2, Stamp: &StampSpec{Name: "KIM", IncludeDate: true, Date: "2024-05-01"}, X: 30, Y: 40},
		},
		Copies: []Copy{{From: 1, To: []int{2, 3}}},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPlanRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "placements: []\n"},
		{"no source", "placements:\n  - page: 1\n    x: 1\n"},
		{"two sources", "placements:\n  - page: 1\n    image: a.png\n    stamp: {name: A}\n"},
		{"bad date", "placements:\n  - page: 1\n    stamp: {name: A, date: 01/05/2024}\n"},
		{"copy without targets", "placements:\n  - page: 1\n    image: a.png\ncopies:\n  - from: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "plan.yaml", []byte(tt.yaml))
			if _, err := LoadPlan(path); !errors.Is(err, ErrInvalidPlan) {
				t.Errorf("err = %v, want ErrInvalidPlan", err)
			}
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "plan.yaml", []byte("placements:\n  - page: 1\n    image: a.png\n    rotate: 90\n"))
		if _, err := LoadPlan(path); err == nil {
			t.Error("unknown field accepted")
		}
	})
}

func TestApply(t *testing.T) {
	ed := editor.New(editor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := ed.Load("lease.pdf", pdftest.Pages(pdftest.Letter, pdftest.Size{Width: 400, Height: 300})); err != nil {
		t.Fatal(err)
	}

	plan := Plan{
		Placements: []Placement{
			{Page: 1, Stamp: &StampSpec{Name: "LEE"}, X: 400, Y: 600, Width: 100},
			{Page: 2, Stamp: &StampSpec{Name: "PARK", Shape: "rectangle"}, X: 10000, Y: 10000},
		},
		Copies: []Copy{{From: 1, To: []int{2}}},
	}
	data, name, err := Apply(context.Background(), ed, plan, nil)
	if err != nil {
		t.Fatal(err)
	}
	if name != "lease_signed.pdf" {
		t.Errorf("name = %q", name)
	}
	doc, err := pdf.Load(data)
	if err != nil {
		t.Fatalf("signed PDF does not load: %v", err)
	}
	if doc.PageCount() != 2 {
		t.Errorf("page count = %d", doc.PageCount())
	}

	snap := ed.Snapshot()
	if len(snap.Annotations) != 3 {
		t.Fatalf("%d annotations", len(snap.Annotations))
	}
	stamp := snap.Annotations[0]
	if stamp.X != 400 || stamp.Y != 600 || stamp.Width != 100 || stamp.Height != 100 || stamp.Scale != 1 {
		t.Errorf("stamp = %+v", stamp)
	}
	// clamped into the 400x300 page at default size
	corner := snap.Annotations[1]
	if corner.X != 250 || corner.Y != 150 {
		t.Errorf("clamped stamp = %+v", corner)
	}
	if copied := snap.Annotations[2]; copied.Page != 2 || copied.X != 400 {
		t.Errorf("copy = %+v", copied)
	}
}

func TestApplyBadPage(t *testing.T) {
	ed := editor.New(editor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err := ed.Load("a.pdf", pdftest.Blank(1, 612, 792)); err != nil {
		t.Fatal(err)
	}
	plan := Plan{Placements: []Placement{{Page: 2, Stamp: &StampSpec{Name: "A"}}}}
	if _, _, err := Apply(context.Background(), ed, plan, nil); err == nil || !strings.Contains(err.Error(), "placement 1") {
		t.Errorf("err = %v", err)
	}
}

func TestInfoCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "contract.pdf", pdftest.Pages(pdftest.Letter, pdftest.Size{Width: 792, Height: 612}))

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"info", path, "--container-width", "652", "--max-height", "792"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	var got DocumentInfo
	if err := yaml.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out.String())
	}
	want := DocumentInfo{
		File: "contract.pdf",
		Pages: []PageInfo{
			{Page: 1, Width: 612, Height: 792, Scale: 1, RenderedWidth: 612, RenderedHeight: 792},
			{Page: 2, Width: 792, Height: 612, Scale: 612.0 / 792, RenderedWidth: 612, RenderedHeight: 612 * 612.0 / 792},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestInfoCommandRejectsNarrowViewport(t *testing.T) {
	path := writeFile(t, t.TempDir(), "contract.pdf", pdftest.Blank(1, 612, 792))

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"info", path, "--container-width", "30"})
	if err := root.Execute(); !errors.Is(err, viewer.ErrInvalidViewport) {
		t.Errorf("err = %v, want ErrInvalidViewport", err)
	}
}

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "contract.pdf", pdftest.Blank(2, 612, 792))
	writeFile(t, dir, "sig.png", signaturePNG(t))
	plan := writeFile(t, dir, "plan.yaml", []byte(`
placements:
  - page: 1
    image: sig.png
    x: 380
    y: 690
    width: 140
copies:
  - from: 1
    to: [2]
`))

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"apply", input, "--plan", plan})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	signed := filepath.Join(dir, "contract_signed.pdf")
	data, err := os.ReadFile(signed)
	if err != nil {
		t.Fatalf("signed file not written: %v", err)
	}
	if _, err := pdf.Load(data); err != nil {
		t.Fatalf("signed PDF does not load: %v", err)
	}
	if !strings.Contains(out.String(), "(2 annotations)") {
		t.Errorf("output = %q", out.String())
	}
}

func TestApplyCommandNeedsPlan(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"apply", "missing.pdf"})
	if err := root.Execute(); err == nil {
		t.Error("apply without --plan succeeded")
	}
}
