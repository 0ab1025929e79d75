package viewer

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFit(t *testing.T) {
	letter := PageSize{Width: 612, Height: 792}

	tests := []struct {
		name string
		page PageSize
		vp   Viewport
		want float64
	}{
		{"height bound", letter, Viewport{ContainerWidth: 1200, MaxHeight: 600}, 600.0 / 792},
		{"width bound", letter, Viewport{ContainerWidth: 400, MaxHeight: 600}, 360.0 / 612},
		{"capped", PageSize{Width: 100, Height: 100}, Viewport{ContainerWidth: 2000, MaxHeight: 2000}, MaxScale},
		{"defaults", letter, Viewport{}, math.Min(760.0/612, 600.0/792)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.page, tt.vp)
			if math.Abs(got.Scale-tt.want) > 1e-12 {
				t.Fatalf("scale = %v, want %v", got.Scale, tt.want)
			}
			if math.Abs(got.RenderedWidth-tt.page.Width*tt.want) > 1e-9 {
				t.Errorf("renderedWidth = %v", got.RenderedWidth)
			}
			if got.OriginalHeight != tt.page.Height {
				t.Errorf("originalHeight = %v", got.OriginalHeight)
			}
		})
	}
}

func TestPageRendererInvalidPage(t *testing.T) {
	r := NewPageRenderer([]PageSize{{612, 792}})
	if _, err := r.Render(2, Viewport{}); !errors.Is(err, ErrInvalidPageReference) {
		t.Fatalf("expected ErrInvalidPageReference, got %v", err)
	}
	if _, err := r.Render(0, Viewport{}); !errors.Is(err, ErrInvalidPageReference) {
		t.Fatalf("expected ErrInvalidPageReference, got %v", err)
	}
}

func TestViewportValidate(t *testing.T) {
	tests := []struct {
		name string
		vp   Viewport
		ok   bool
	}{
		{"defaults", Viewport{}, true},
		{"just wider than padding", Viewport{ContainerWidth: ViewportPadding + 1, MaxHeight: 1}, true},
		{"narrower than padding", Viewport{ContainerWidth: 20, MaxHeight: 600}, false},
		{"equal to padding", Viewport{ContainerWidth: ViewportPadding, MaxHeight: 600}, false},
		{"negative width", Viewport{ContainerWidth: -800}, false},
		{"negative height", Viewport{MaxHeight: -1}, false},
		{"nan", Viewport{ContainerWidth: math.NaN()}, false},
		{"infinite", Viewport{ContainerWidth: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vp.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidViewport) {
				t.Errorf("Validate() = %v, want ErrInvalidViewport", err)
			}
		})
	}
}

func TestPageRendererInvalidViewport(t *testing.T) {
	r := NewPageRenderer([]PageSize{{612, 792}})
	if _, err := r.Render(1, Viewport{ContainerWidth: 20, MaxHeight: 600}); !errors.Is(err, ErrInvalidViewport) {
		t.Fatalf("Render = %v, want ErrInvalidViewport", err)
	}
	info, err := r.Render(1, Viewport{ContainerWidth: ViewportPadding + 1, MaxHeight: 600})
	if err != nil {
		t.Fatal(err)
	}
	if info.Scale <= 0 || info.RenderedWidth <= 0 || info.RenderedHeight <= 0 {
		t.Errorf("scale = %+v, want positive", info)
	}
}

func TestStateSelection(t *testing.T) {
	s := NewState(4)
	if diff := cmp.Diff([]int{1}, s.SelectedPages()); diff != "" {
		t.Fatalf("initial selection (-want +got):\n%s", diff)
	}

	for _, p := range []int{3, 2} {
		if err := s.TogglePage(p); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]int{1, 2, 3}, s.SelectedPages()); diff != "" {
		t.Fatalf("after toggles (-want +got):\n%s", diff)
	}
	if err := s.TogglePage(1); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 3}, s.SelectedPages()); diff != "" {
		t.Fatalf("after untoggle (-want +got):\n%s", diff)
	}

	if err := s.SelectPages([]int{4, 1, 4}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 4}, s.SelectedPages()); diff != "" {
		t.Fatalf("select (-want +got):\n%s", diff)
	}
	if err := s.SelectPages([]int{1, 5}); !errors.Is(err, ErrInvalidPageReference) {
		t.Fatalf("expected ErrInvalidPageReference, got %v", err)
	}
}

func TestStateScale(t *testing.T) {
	s := NewState(2)
	if s.HasScale() {
		t.Fatal("fresh state has a scale")
	}
	if _, _, ok := s.Bounds(); ok {
		t.Fatal("fresh state has bounds")
	}
	s.SetScale(ScaleInfo{Scale: 1, RenderedWidth: 612, RenderedHeight: 792})
	w, h, ok := s.Bounds()
	if !ok || w != 612 || h != 792 {
		t.Fatalf("bounds = %v %v %v", w, h, ok)
	}

	got := s.Scale()
	got.Scale = 3
	if s.Scale().Scale != 1 {
		t.Fatal("Scale leaked internal state")
	}

	if err := s.GoTo(3); !errors.Is(err, ErrInvalidPageReference) {
		t.Fatalf("expected ErrInvalidPageReference, got %v", err)
	}
	if err := s.GoTo(2); err != nil || s.CurrentPage() != 2 {
		t.Fatalf("GoTo(2) = %v, current %d", err, s.CurrentPage())
	}
}
