package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweeney/rockpi-quad/internal/mqtt"
	"github.com/sweeney/rockpi-quad/internal/status"
	"github.com/sweeney/rockpi-quad/internal/telemetry"
)

// Lifecycle publishes status snapshots as system events.
type Lifecycle struct {
	Publisher mqtt.Publisher
	Status    mqtt.ConnectionStatus // optional
	Tracker   *status.Tracker
	// Telemetry refreshes the network info in each snapshot. Optional.
	Telemetry telemetry.Provider
}

// Publish refreshes the tracker and sends event with a full snapshot.
func (l *Lifecycle) Publish(ctx context.Context, event, reason string, retained bool) {
	l.refresh(ctx)
	snap := l.Tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.Publisher.PublishSystem(ev); err != nil {
		slog.Warn("publish system event failed", "event", event, "error", err)
		return
	}
	slog.Debug("published system event", "event", event)
}

func (l *Lifecycle) refresh(ctx context.Context) {
	if l.Status != nil {
		l.Tracker.SetMQTTConnected(l.Status.IsConnected())
	}
	if l.Telemetry == nil {
		return
	}
	ip, err := l.Telemetry.IP(ctx)
	if err != nil {
		slog.Debug("network info unavailable", "error", err)
		return
	}
	ifaces, _ := l.Telemetry.Interfaces(ctx)
	l.Tracker.SetNetwork(&status.NetworkInfo{IP: ip, Interfaces: ifaces})
}

// RunHeartbeat publishes a HEARTBEAT on every tick until ctx is done.
func (l *Lifecycle) RunHeartbeat(ctx context.Context, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			l.Publish(ctx, "HEARTBEAT", "", false)
		}
	}
}
