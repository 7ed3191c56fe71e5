package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/rockpi-quad/internal/display"
	"github.com/sweeney/rockpi-quad/internal/gpio"
	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/mqtt"
	"github.com/sweeney/rockpi-quad/internal/status"
	"github.com/sweeney/rockpi-quad/internal/telemetry"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return epoch }

func timing(twice, press int) logic.GestureTiming {
	return logic.GestureTiming{
		Twice:    time.Duration(twice) * 100 * time.Millisecond,
		Press:    time.Duration(press) * 100 * time.Millisecond,
		Interval: 100 * time.Millisecond,
	}
}

func TestAdvancerCoalesces(t *testing.T) {
	a := NewAdvancer()
	a.Advance()
	a.Advance()
	a.Advance()

	<-a.C()
	select {
	case <-a.C():
		t.Fatal("pending advances should merge into one")
	default:
	}
}

type buttonRig struct {
	loop    *ButtonLoop
	latch   *logic.FanLatch
	adv     *Advancer
	tracker *status.Tracker
	pub     *mqtt.FakePublisher
}

func newButtonRig(samples string, tm logic.GestureTiming) *buttonRig {
	r := &buttonRig{
		latch:   logic.NewFanLatch(true),
		adv:     NewAdvancer(),
		tracker: status.NewTracker(epoch, status.Config{}),
		pub:     mqtt.NewFakePublisher(),
	}
	r.loop = &ButtonLoop{
		Button:     gpio.NewFakeButtonString(samples),
		Classifier: logic.NewClassifier(tm),
		Controls: &Controls{
			Dispatcher: &logic.Dispatcher{Keys: logic.DefaultKeyMap(), Latch: r.latch, Advance: r.adv.Advance},
			Tracker:    r.tracker,
		},
		Publisher: r.pub,
		Now:       fixedNow,
	}
	return r
}

func (r *buttonRig) sampleN(t *testing.T, n int) []logic.Gesture {
	t.Helper()
	var out []logic.Gesture
	for i := 0; i < n; i++ {
		g, err := r.loop.Sample()
		require.NoError(t, err)
		if g != logic.GestureNone {
			out = append(out, g)
		}
	}
	return out
}

func TestButtonClickAdvancesSlider(t *testing.T) {
	r := newButtonRig("1101111", timing(3, 5))

	assert.Equal(t, []logic.Gesture{logic.GestureClick}, r.sampleN(t, 7))

	select {
	case <-r.adv.C():
	default:
		t.Fatal("click should request a page advance")
	}
	assert.True(t, r.latch.Enabled())

	events := r.pub.Gestures()
	require.Len(t, events, 1)
	assert.Equal(t, mqtt.GestureEvent{Timestamp: epoch, Gesture: logic.GestureClick, Action: logic.ActionSlider}, events[0])
	assert.Equal(t, 1, r.tracker.Snapshot().Counts.Click)
}

func TestButtonDoubleClickTogglesFan(t *testing.T) {
	r := newButtonRig("110110111", timing(3, 10))

	assert.Equal(t, []logic.Gesture{logic.GestureTwice}, r.sampleN(t, 9))
	assert.False(t, r.latch.Enabled())
	assert.False(t, r.tracker.Snapshot().Fan.Enabled)

	events := r.pub.Gestures()
	require.Len(t, events, 1)
	assert.Equal(t, logic.ActionSwitch, events[0].Action)
}

func TestButtonLongPressIsNoop(t *testing.T) {
	r := newButtonRig("1100000", timing(3, 5))

	assert.Equal(t, []logic.Gesture{logic.GesturePress}, r.sampleN(t, 7))
	assert.True(t, r.latch.Enabled())
	require.Len(t, r.pub.Gestures(), 1)
	assert.Equal(t, logic.ActionNone, r.pub.Gestures()[0].Action)
}

func TestButtonPublishFailureDoesNotStopLoop(t *testing.T) {
	r := newButtonRig("1101111", timing(3, 5))
	r.pub.PublishError = errors.New("broker down")

	assert.Equal(t, []logic.Gesture{logic.GestureClick}, r.sampleN(t, 7))
}

func TestButtonRunSkipsReadErrors(t *testing.T) {
	r := newButtonRig("1101111", timing(3, 5))
	btn := r.loop.Button.(*gpio.FakeButton)
	btn.ReadError = errors.New("line busy")

	_, err := r.loop.Sample()
	assert.Error(t, err)
	assert.Empty(t, r.loop.Classifier.Window(), "failed reads are not classified")

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error)
	go func() { done <- r.loop.Run(ctx, tick) }()

	tick <- epoch
	tick <- epoch
	cancel()
	require.NoError(t, <-done)
}

type fanRig struct {
	loop    *FanLoop
	thermo  *telemetry.FakeProvider
	fan     *gpio.FakeFan
	latch   *logic.FanLatch
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
}

func newFanRig(cpu float64) *fanRig {
	r := &fanRig{
		thermo:  &telemetry.FakeProvider{CPU: cpu},
		fan:     gpio.NewFakeFan(),
		latch:   logic.NewFanLatch(true),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(epoch, status.Config{}),
	}
	r.loop = &FanLoop{
		Thermometer: r.thermo,
		Fan:         r.fan,
		Latch:       r.latch,
		Curve:       logic.DefaultFanConfig(),
		Tracker:     r.tracker,
		Publisher:   r.pub,
		Now:         fixedNow,
	}
	return r
}

func TestFanCycleAppliesCurve(t *testing.T) {
	r := newFanRig(47)

	duty, err := r.loop.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 75, duty)
	assert.Equal(t, 75, r.fan.Last())

	snap := r.tracker.Snapshot()
	assert.Equal(t, 75, snap.Fan.Duty)
	assert.Equal(t, 47.0, snap.Fan.Temperature)
	assert.True(t, snap.Fan.Enabled)
}

func TestFanCycleLatchOff(t *testing.T) {
	r := newFanRig(60)
	r.latch.Set(false)

	duty, err := r.loop.Cycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, duty)
	assert.Equal(t, []int{0}, r.fan.Duties())
}

func TestFanCyclePublishesOnlyChanges(t *testing.T) {
	r := newFanRig(41)
	ctx := context.Background()

	r.loop.Cycle(ctx)
	r.loop.Cycle(ctx)
	r.thermo.SetCPU(51)
	r.loop.Cycle(ctx)
	r.latch.Toggle()
	r.loop.Cycle(ctx)

	assert.Equal(t, []int{50, 50, 100, 0}, r.fan.Duties())

	var duties []int
	for _, ev := range r.pub.Fans() {
		duties = append(duties, ev.Duty)
	}
	assert.Equal(t, []int{50, 100, 0}, duties)
}

func TestFanCycleUsesHottestDisk(t *testing.T) {
	r := newFanRig(36)
	r.loop.UseDisks = true
	r.thermo.DiskTemp = map[string]float64{"sda": 44, "sdb": 51}

	duty, err := r.loop.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, duty)
}

func TestFanCycleDiskErrorFallsBackToCPU(t *testing.T) {
	r := newFanRig(36)
	r.loop.UseDisks = true
	r.thermo.DiskErr = errors.New("smartctl missing")

	duty, err := r.loop.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, duty)
}

func TestFanCycleIgnoresDisksWhenOff(t *testing.T) {
	r := newFanRig(36)
	r.thermo.DiskTemp = map[string]float64{"sda": 60}

	duty, _ := r.loop.Cycle(context.Background())
	assert.Equal(t, 25, duty)
}

func TestFanCycleSensorErrorKeepsLastDuty(t *testing.T) {
	r := newFanRig(47)
	ctx := context.Background()

	r.loop.Cycle(ctx)
	r.thermo.SetCPUErr(errors.New("no thermal zone"))

	_, err := r.loop.Cycle(ctx)
	assert.Error(t, err)
	assert.Equal(t, []int{75}, r.fan.Duties(), "nothing applied on a failed read")
}

func TestFanCycleDriverError(t *testing.T) {
	r := newFanRig(47)
	r.fan.SetError = errors.New("pwm gone")

	_, err := r.loop.Cycle(context.Background())
	assert.ErrorContains(t, err, "pwm gone")
	assert.Equal(t, -1, r.tracker.Snapshot().Fan.Duty)
}

func TestFanRunCyclesImmediatelyAndPerTick(t *testing.T) {
	r := newFanRig(47)
	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error)
	go func() { done <- r.loop.Run(ctx, tick) }()

	tick <- epoch
	tick <- epoch
	cancel()
	require.NoError(t, <-done)

	assert.GreaterOrEqual(t, len(r.fan.Duties()), 3)
}

func pageSet(titles ...string) func(context.Context) []logic.Page {
	return func(context.Context) []logic.Page {
		pages := make([]logic.Page, len(titles))
		for i, t := range titles {
			pages[i] = logic.Page{Title: t, Refresh: t == "io"}
		}
		return pages
	}
}

type sliderRig struct {
	loop    *SliderLoop
	sink    *display.FakeSink
	adv     *Advancer
	delays  chan time.Duration
	fire    chan time.Time
	tracker *status.Tracker
	cancel  context.CancelFunc
	done    chan error
}

func startSlider(t *testing.T, tm logic.SliderTiming, titles ...string) *sliderRig {
	t.Helper()
	r := &sliderRig{
		sink:    display.NewFakeSink(),
		adv:     NewAdvancer(),
		delays:  make(chan time.Duration, 16),
		fire:    make(chan time.Time),
		tracker: status.NewTracker(epoch, status.Config{}),
		done:    make(chan error, 1),
	}
	r.sink.Shown = make(chan string, 16)
	r.loop = &SliderLoop{
		Sink:    r.sink,
		Pages:   pageSet(titles...),
		Slider:  logic.NewSlider(),
		Timing:  tm,
		Advance: r.adv.C(),
		Tracker: r.tracker,
		After: func(d time.Duration) <-chan time.Time {
			r.delays <- d
			return r.fire
		},
	}

	var ctx context.Context
	ctx, r.cancel = context.WithCancel(context.Background())
	go func() { r.done <- r.loop.Run(ctx) }()
	t.Cleanup(func() {
		r.cancel()
		<-r.done
	})
	return r
}

func (r *sliderRig) shown(t *testing.T) string {
	t.Helper()
	select {
	case title := <-r.sink.Shown:
		return title
	case <-time.After(time.Second):
		t.Fatal("no page shown")
		return ""
	}
}

func TestSliderAutoRotates(t *testing.T) {
	tm := logic.SliderTiming{Auto: true, Time: 10 * time.Second, Refresh: 2 * time.Second}
	r := startSlider(t, tm, "system", "load", "io")

	assert.Equal(t, "system", r.shown(t))
	assert.Equal(t, 10*time.Second, <-r.delays)

	r.fire <- epoch
	assert.Equal(t, "load", r.shown(t))
	<-r.delays

	r.fire <- epoch
	assert.Equal(t, "io", r.shown(t))
	assert.Equal(t, 2*time.Second, <-r.delays, "refresh pages use the refresh delay")

	r.fire <- epoch
	assert.Equal(t, "system", r.shown(t), "wraps around")
}

func TestSliderManualAdvanceInAutoMode(t *testing.T) {
	r := startSlider(t, logic.SliderTiming{Auto: true, Time: time.Hour}, "a", "b")

	assert.Equal(t, "a", r.shown(t))
	<-r.delays

	r.adv.Advance()
	assert.Equal(t, "b", r.shown(t))
	assert.Equal(t, time.Hour, <-r.delays, "delay restarts after a manual advance")
}

func TestSliderManualOnly(t *testing.T) {
	r := startSlider(t, logic.SliderTiming{Auto: false, Time: time.Second}, "a", "b", "c")

	assert.Equal(t, "a", r.shown(t))
	select {
	case title := <-r.sink.Shown:
		t.Fatalf("page %q shown without an advance", title)
	case <-time.After(50 * time.Millisecond):
	}

	r.adv.Advance()
	assert.Equal(t, "b", r.shown(t))
	r.adv.Advance()
	assert.Equal(t, "c", r.shown(t))

	assert.Empty(t, r.delays, "no timers without auto rotation")
	want := status.PageState{Index: 2, Count: 3, Title: "c"}
	assert.Eventually(t, func() bool { return r.tracker.Snapshot().Page == want }, time.Second, 5*time.Millisecond)
}

func TestSliderStepEmptyPageSet(t *testing.T) {
	sink := display.NewFakeSink()
	l := &SliderLoop{Sink: sink, Pages: pageSet(), Slider: logic.NewSlider()}

	_, ok := l.Step(context.Background())
	assert.False(t, ok)
	assert.Empty(t, sink.Pages())
}

func TestSliderStepSurvivesPageCountChange(t *testing.T) {
	sink := display.NewFakeSink()
	titles := []string{"a", "b", "c"}
	l := &SliderLoop{
		Sink: sink,
		Pages: func(context.Context) []logic.Page {
			return pageSet(titles...)(context.Background())
		},
		Slider: logic.NewSlider(),
	}
	ctx := context.Background()

	l.Step(ctx)
	l.Step(ctx)
	l.Step(ctx) // index 2 of 3
	titles = titles[:2]
	p, ok := l.Step(ctx) // index 3 of 2
	require.True(t, ok)
	assert.Equal(t, "b", p.Title)
}

func TestControlsPerformMatchesGesture(t *testing.T) {
	latch := logic.NewFanLatch(true)
	adv := NewAdvancer()
	tr := status.NewTracker(epoch, status.Config{})
	c := &Controls{
		Dispatcher: &logic.Dispatcher{Keys: logic.DefaultKeyMap(), Latch: latch, Advance: adv.Advance},
		Tracker:    tr,
	}

	assert.Equal(t, logic.ActionSwitch, c.Perform(logic.ActionSwitch))
	assert.False(t, c.FanEnabled())
	assert.False(t, tr.Snapshot().Fan.Enabled)

	assert.Equal(t, logic.ActionSlider, c.Perform(logic.ActionSlider))
	<-adv.C()

	assert.Zero(t, tr.Snapshot().Counts, "direct actions are not gestures")
}

func TestLifecyclePublishesSnapshot(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	tr := status.NewTracker(epoch, status.Config{Broker: "tcp://localhost:1883"})
	l := &Lifecycle{
		Publisher: pub,
		Status:    pub,
		Tracker:   tr,
		Telemetry: &telemetry.FakeProvider{IPAddr: "10.0.0.5", Ifaces: []string{"eth0"}},
	}

	l.Publish(context.Background(), "STARTUP", "", true)

	events := pub.SystemEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "STARTUP", events[0].Event)
	assert.True(t, events[0].Retained)
	assert.Contains(t, string(events[0].RawPayload), `"event":"STARTUP"`)
	assert.Contains(t, string(events[0].RawPayload), `"ip":"10.0.0.5"`)

	snap := tr.Snapshot()
	assert.True(t, snap.MQTTConnected)
	assert.Equal(t, []string{"eth0"}, snap.Network.Interfaces)
}

func TestHeartbeatRun(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	l := &Lifecycle{Publisher: pub, Tracker: status.NewTracker(epoch, status.Config{})}

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error)
	go func() { done <- l.RunHeartbeat(ctx, tick) }()

	tick <- epoch
	tick <- epoch
	cancel()
	require.NoError(t, <-done)

	require.GreaterOrEqual(t, len(pub.SystemEvents()), 1)
	assert.Equal(t, "HEARTBEAT", pub.SystemEvents()[0].Event)
	assert.False(t, pub.SystemEvents()[0].Retained)
}
