package display

import (
	"log/slog"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// Discard is the Sink used when no display is attached. Pages are logged at
// debug level.
type Discard struct{}

func (Discard) Show(p logic.Page) error {
	slog.Debug("page", "title", p.Title, "lines", len(p.Lines))
	return nil
}

func (Discard) Welcome() error { return nil }
func (Discard) Goodbye() error { return nil }
func (Discard) Close() error   { return nil }
