package annotation

import (
	"slices"

	"go-signpdf/internal/utils"
	"go-signpdf/internal/viewer"
)

type Store struct {
	items []*Annotation
	newID func() string
}

func NewStore() *Store {
	return &Store{newID: utils.GenerateUUID}
}

// Add places a new annotation on page at the default position, sized from the
// image's pixel dimensions, and records the scale of the current render.
func (s *Store) Add(page int, img Image, scale *viewer.ScaleInfo) (Annotation, error) {
	if scale == nil || scale.Scale <= 0 {
		return Annotation{}, ErrNoActiveDocument
	}
	if img.Width <= 0 || img.Height <= 0 {
		return Annotation{}, ErrEmptyImage
	}
	w, h := displaySize(img.Width, img.Height)
	a := &Annotation{
		ID:     s.newID(),
		Page:   page,
		Image:  img,
		X:      DefaultX,
		Y:      DefaultY,
		Width:  w,
		Height: h,
		Scale:  scale.Scale,
	}
	s.items = append(s.items, a)
	return *a, nil
}

func (s *Store) find(id string) *Annotation {
	for _, a := range s.items {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Store) Get(id string) (Annotation, bool) {
	a := s.find(id)
	if a == nil {
		return Annotation{}, false
	}
	return *a, true
}

// Move replaces the position. Bounds are the caller's concern.
func (s *Store) Move(id string, x, y float64) error {
	a := s.find(id)
	if a == nil {
		return ErrNotFound
	}
	a.X, a.Y = x, y
	return nil
}

// Resize replaces the size. Minimum size and aspect lock are the caller's concern.
func (s *Store) Resize(id string, width, height float64) error {
	a := s.find(id)
	if a == nil {
		return ErrNotFound
	}
	a.Width, a.Height = width, height
	return nil
}

// Remove deletes the annotation if present.
func (s *Store) Remove(id string) {
	s.items = slices.DeleteFunc(s.items, func(a *Annotation) bool { return a.ID == id })
}

// DuplicateToPages copies every annotation of sourcePage onto each target page
// other than sourcePage and returns the number of copies made. Fewer than two
// targets, or an empty source page, is a no-op.
func (s *Store) DuplicateToPages(sourcePage int, targetPages []int) int {
	if len(targetPages) <= 1 {
		return 0
	}
	src := s.ByPage(sourcePage)
	if len(src) == 0 {
		return 0
	}
	n := 0
	for _, page := range targetPages {
		if page == sourcePage {
			continue
		}
		for _, a := range src {
			c := a
			c.ID = s.newID()
			c.Page = page
			s.items = append(s.items, &c)
			n++
		}
	}
	return n
}

// ByPage returns the annotations of page in insertion order.
func (s *Store) ByPage(page int) []Annotation {
	var out []Annotation
	for _, a := range s.items {
		if a.Page == page {
			out = append(out, *a)
		}
	}
	return out
}

func (s *Store) All() []Annotation {
	out := make([]Annotation, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, *a)
	}
	return out
}

func (s *Store) Len() int { return len(s.items) }

// Reset drops every annotation.
func (s *Store) Reset() { s.items = nil }
