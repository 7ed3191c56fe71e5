package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestTextHandlerDropsTimeAndLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewTextHandler(&buf, slog.LevelInfo))

	l.Warn("fan stalled", "duty", 50)
	l.Debug("hidden")

	assert.Equal(t, "level=warn msg=\"fan stalled\" duty=50\n", buf.String())
}

func TestTerminalHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewTerminalHandler(&buf, slog.LevelWarn))

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Error("boom")
	assert.Contains(t, buf.String(), "boom")
}
