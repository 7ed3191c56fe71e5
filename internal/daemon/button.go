package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweeney/rockpi-quad/internal/gpio"
	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/mqtt"
)

// ButtonLoop samples the button and acts on classified gestures.
type ButtonLoop struct {
	Button     gpio.ButtonReader
	Classifier *logic.Classifier
	Controls   *Controls
	Publisher  mqtt.Publisher // optional
	Now        func() time.Time

	failing bool
}

// Sample reads the button once and returns the gesture it completed, if
// any.
func (l *ButtonLoop) Sample() (logic.Gesture, error) {
	released, err := l.Button.Read()
	if err != nil {
		return logic.GestureNone, err
	}
	g := l.Classifier.Push(released)
	if g == logic.GestureNone {
		return g, nil
	}

	action := l.Controls.Gesture(g)
	if l.Publisher != nil {
		ev := mqtt.GestureEvent{Timestamp: l.now(), Gesture: g, Action: action}
		if err := l.Publisher.PublishGesture(ev); err != nil {
			slog.Warn("publish gesture failed", "error", err)
		}
	}
	return g, nil
}

func (l *ButtonLoop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Run samples on every tick until ctx is done. Read errors are logged once
// per outage and the sample is skipped.
func (l *ButtonLoop) Run(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			_, err := l.Sample()
			switch {
			case err != nil && !l.failing:
				slog.Error("button read failed", "error", err)
				l.failing = true
			case err == nil && l.failing:
				slog.Info("button read recovered")
				l.failing = false
			}
		}
	}
}
