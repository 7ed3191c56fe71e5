package display

import (
	"sync"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// FakeSink records what would have been shown. Safe for concurrent use.
type FakeSink struct {
	mu       sync.Mutex
	pages    []logic.Page
	welcomes int
	goodbyes int
	closed   bool

	// ShowError, if set, is returned by Show and nothing is recorded.
	ShowError error

	// Shown, if set, receives the title of every page shown.
	Shown chan string
}

// NewFakeSink creates a FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

func (f *FakeSink) Show(p logic.Page) error {
	f.mu.Lock()
	if f.ShowError != nil {
		f.mu.Unlock()
		return f.ShowError
	}
	f.pages = append(f.pages, p)
	ch := f.Shown
	f.mu.Unlock()

	if ch != nil {
		ch <- p.Title
	}
	return nil
}

func (f *FakeSink) Welcome() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomes++
	return nil
}

func (f *FakeSink) Goodbye() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goodbyes == 0 {
		f.goodbyes++
	}
	return nil
}

func (f *FakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Pages returns a copy of the pages shown so far.
func (f *FakeSink) Pages() []logic.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Page(nil), f.pages...)
}

// Titles returns the titles of the pages shown so far.
func (f *FakeSink) Titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	titles := make([]string, len(f.pages))
	for i, p := range f.pages {
		titles[i] = p.Title
	}
	return titles
}

// Welcomes returns how many times Welcome was called.
func (f *FakeSink) Welcomes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.welcomes
}

// Goodbyes returns 1 once Goodbye has been called.
func (f *FakeSink) Goodbyes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.goodbyes
}

// Closed reports whether Close was called.
func (f *FakeSink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
