package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweeney/rockpi-quad/internal/display"
	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/status"
)

// SliderLoop rotates the status pages on the display.
//
// With auto rotation each page stays up for its delay, and a manual advance
// shows the next page at once and restarts the delay. Without it the loop
// shows a page and then waits for manual advances only.
type SliderLoop struct {
	Sink    display.Sink
	Pages   func(ctx context.Context) []logic.Page
	Slider  *logic.Slider
	Timing  logic.SliderTiming
	Advance <-chan struct{}
	Tracker *status.Tracker // optional

	// After starts a page timer. Defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// Step shows the next page and returns it.
func (l *SliderLoop) Step(ctx context.Context) (logic.Page, bool) {
	pages := l.Pages(ctx)
	page, ok := l.Slider.Next(pages)
	if !ok {
		slog.Warn("no pages to show")
		return page, false
	}
	if err := l.Sink.Show(page); err != nil {
		slog.Warn("display update failed", "page", page.Title, "error", err)
	}
	if l.Tracker != nil {
		l.Tracker.SetPage(l.Slider.Position(len(pages)), len(pages), page.Title)
	}
	return page, true
}

// Run shows pages until ctx is done.
func (l *SliderLoop) Run(ctx context.Context) error {
	after := l.After
	if after == nil {
		after = time.After
	}

	for {
		page, _ := l.Step(ctx)

		var timer <-chan time.Time
		if l.Timing.Auto {
			timer = after(l.Timing.Delay(page))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-timer:
		case <-l.Advance:
		}
	}
}
