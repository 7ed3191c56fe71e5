package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pages(titles ...string) []Page {
	out := make([]Page, len(titles))
	for i, title := range titles {
		out[i] = Page{Title: title}
	}
	return out
}

func TestSliderStartsBeforeFirstPage(t *testing.T) {
	s := NewSlider()
	assert.Equal(t, int64(-1), s.Index())
	assert.Equal(t, -1, s.Position(3))

	p, ok := s.Next(pages("0", "1", "2"))
	require.True(t, ok)
	assert.Equal(t, "0", p.Title)
}

func TestSliderRotation(t *testing.T) {
	s := NewSlider()
	set := pages("0", "1", "2")
	s.Next(set)

	var got []string
	for i := 0; i < 5; i++ {
		p, ok := s.Next(set)
		require.True(t, ok)
		got = append(got, p.Title)
	}
	assert.Equal(t, []string{"1", "2", "0", "1", "2"}, got)
}

func TestSliderPageCountShrinks(t *testing.T) {
	s := NewSlider()
	three := pages("a", "b", "c")
	for i := 0; i < 3; i++ {
		s.Next(three)
	}
	// index is 2; with two pages the next index 3 wraps to page 1.
	p, ok := s.Next(pages("a", "b"))
	require.True(t, ok)
	assert.Equal(t, "b", p.Title)
	assert.Equal(t, 1, s.Position(2))
}

func TestSliderPageCountGrows(t *testing.T) {
	s := NewSlider()
	for i := 0; i < 4; i++ {
		s.Next(pages("a", "b"))
	}
	p, _ := s.Next(pages("a", "b", "c", "d", "e", "f"))
	assert.Equal(t, "e", p.Title)
}

func TestSliderEmptyPageSet(t *testing.T) {
	s := NewSlider()
	_, ok := s.Next(nil)
	assert.False(t, ok)
	assert.Equal(t, -1, s.Position(0))

	p, ok := s.Next(pages("only"))
	require.True(t, ok)
	assert.Equal(t, "only", p.Title)
}

func TestSliderIndexIsUnbounded(t *testing.T) {
	s := NewSlider()
	set := pages("a", "b", "c")
	for i := 0; i < 1000; i++ {
		s.Next(set)
	}
	assert.Equal(t, int64(999), s.Index())
	assert.Equal(t, 0, s.Position(len(set)))
}

func TestSliderTimingDelay(t *testing.T) {
	st := SliderTiming{Auto: true, Time: 10 * time.Second, Refresh: 2 * time.Second}

	assert.Equal(t, 10*time.Second, st.Delay(Page{}))
	assert.Equal(t, 2*time.Second, st.Delay(Page{Refresh: true}))

	st.Refresh = 0
	assert.Equal(t, 10*time.Second, st.Delay(Page{Refresh: true}))
}
