package logic

// Slider picks the next page to show.
//
// The index grows without bound and is reduced modulo the page count on
// every call, so the page set may change size between calls. It starts one
// before the first page so the first Next returns page 0.
// Not safe for concurrent use; the slider loop owns it.
type Slider struct {
	index int64
}

// NewSlider creates a slider positioned before page 0.
func NewSlider() *Slider {
	return &Slider{index: -1}
}

// Next advances the index and returns the page it lands on.
// It returns false if pages is empty; the index still advances.
func (s *Slider) Next(pages []Page) (Page, bool) {
	s.index++
	if len(pages) == 0 {
		return Page{}, false
	}
	return pages[s.index%int64(len(pages))], true
}

// Index returns the raw index of the last page returned.
func (s *Slider) Index() int64 {
	return s.index
}

// Position returns the page number the index maps to for n pages,
// or -1 before the first Next or when n is zero.
func (s *Slider) Position(n int) int {
	if n <= 0 || s.index < 0 {
		return -1
	}
	return int(s.index % int64(n))
}
