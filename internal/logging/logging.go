// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// Setup installs the default logger on stderr: coloured when stderr is a
// terminal, plain key=value otherwise. Under systemd the journal adds its
// own timestamps, so the plain handler drops them.
func Setup(level slog.Level) *slog.Logger {
	var h slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		h = NewTerminalHandler(os.Stderr, level)
	} else {
		h = NewTextHandler(os.Stderr, level)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// NewTerminalHandler returns a tint handler for interactive use.
func NewTerminalHandler(w io.Writer, level slog.Level) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  level <= slog.LevelDebug,
		TimeFormat: "15:04:05.000",
	})
}

// NewTextHandler returns a plain handler without timestamps and with lower
// case levels.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			if a.Key == slog.LevelKey {
				if v, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToLower(v.String()))
				}
			}
			return a
		},
	})
}
