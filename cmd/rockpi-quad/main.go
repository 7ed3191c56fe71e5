// Command rockpi-quad drives the ROCK Pi Quad SATA HAT: SATA power, the fan,
// the top button and the OLED status pages.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/jessevdk/go-flags"
	"github.com/oklog/run"

	"github.com/sweeney/rockpi-quad/internal/config"
	"github.com/sweeney/rockpi-quad/internal/daemon"
	"github.com/sweeney/rockpi-quad/internal/display"
	"github.com/sweeney/rockpi-quad/internal/gpio"
	"github.com/sweeney/rockpi-quad/internal/logging"
	"github.com/sweeney/rockpi-quad/internal/logic"
	"github.com/sweeney/rockpi-quad/internal/mqtt"
	"github.com/sweeney/rockpi-quad/internal/status"
	"github.com/sweeney/rockpi-quad/internal/telemetry"
	"github.com/sweeney/rockpi-quad/internal/web"
)

// goodbyeHold is how long the goodbye screen stays up before the display
// is cleared.
const goodbyeHold = 2 * time.Second

type options struct {
	Config      string        `long:"config" env:"ROCKPI_CONFIG" description:"configuration file (default /etc/rockpi-quad.conf)"`
	LogLevel    string        `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"log level"`
	Broker      string        `long:"broker" env:"MQTT_BROKER" default:"tcp://localhost:1883" description:"MQTT broker address"`
	ClientID    string        `long:"client-id" env:"MQTT_CLIENT_ID" default:"rockpi-quad" description:"MQTT client ID"`
	HTTP        string        `long:"http" env:"HTTP_ADDR" default:":8080" description:"HTTP status address (empty to disable)"`
	Heartbeat   time.Duration `long:"heartbeat" default:"15m" description:"heartbeat interval (0 to disable)"`
	FanPoll     time.Duration `long:"fan-poll" default:"5s" description:"fan control interval"`
	PrintConfig bool          `long:"print-config" description:"print the effective configuration as YAML and exit"`
	PrintState  bool          `long:"print-state" description:"print the temperature and fan duty cycle and exit"`

	Wiring wiring `group:"Hardware wiring"`
}

// wiring names the hat's lines. The packaged service sets these from a
// per-board environment file.
type wiring struct {
	ButtonChip     string `long:"button-chip" env:"BUTTON_CHIP" default:"gpiochip4" description:"button GPIO chip"`
	ButtonLine     int    `long:"button-line" env:"BUTTON_LINE" default:"-1" description:"button GPIO line (-1 if not wired)"`
	ButtonPolarity string `long:"button-polarity" env:"BUTTON_POLARITY" default:"low" choice:"low" choice:"high" description:"level read while the button is pressed"`

	SATAChip  string `long:"sata-chip" env:"SATA_CHIP" default:"gpiochip2" description:"SATA power GPIO chip"`
	SATALine1 int    `long:"sata-line-1" env:"SATA_LINE_1" default:"-1" description:"first SATA power line"`
	SATALine2 int    `long:"sata-line-2" env:"SATA_LINE_2" default:"-1" description:"second SATA power line"`

	PWMChip   string `long:"pwm-chip" env:"PWMCHIP" description:"hardware PWM chip for the fan"`
	FanChip   string `long:"fan-chip" env:"FAN_CHIP" default:"gpiochip4" description:"fan GPIO chip for software PWM"`
	FanLine   int    `long:"fan-line" env:"FAN_LINE" default:"-1" description:"fan GPIO line for software PWM"`
	FanInvert bool   `long:"fan-invert" env:"FAN_INVERT" description:"fan output is active low"`

	I2CBus    string `long:"i2c-bus" env:"I2C_BUS" description:"OLED I2C bus (empty for the first bus)"`
	OLEDReset string `long:"oled-reset" env:"OLED_RESET" description:"OLED reset pin name"`
}

// pressedLow reports whether the button line reads 0 while held.
func (w wiring) pressedLow() bool {
	return w.ButtonPolarity != "high"
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := runDaemon(opts); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func runDaemon(opts options) error {
	level, err := logging.ParseLevel(opts.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(level)

	opts.Config = configPath(opts.Config)
	cfg, err := config.Load(opts.Config)
	if err != nil {
		slog.Warn("using default configuration", "error", err)
	}
	if opts.PrintConfig {
		return cfg.WriteYAML(os.Stdout)
	}

	var smart *telemetry.Smart
	if cfg.Fan.TempDisks || cfg.Disk.DisksTemp {
		smart = telemetry.NewSmart(nil)
	}
	sys := telemetry.NewSystem(smart)

	if opts.PrintState {
		return printState(context.Background(), os.Stdout, sys, cfg)
	}

	dev, err := openDevices(opts.Wiring, cfg)
	if err != nil {
		return err
	}

	publisher := mqtt.NewRealPublisher(opts.Broker, opts.ClientID)

	a := &app{
		opts:      opts,
		cfg:       cfg,
		dev:       dev,
		telemetry: sys,
		publisher: publisher,
		status:    publisher,
		now:       time.Now,
	}
	return a.serve(context.Background())
}

// printState reads the temperature once and prints the duty cycle the fan
// would run at.
func printState(ctx context.Context, w io.Writer, t telemetry.Thermometer, cfg config.Config) error {
	probe := &daemon.FanLoop{Thermometer: t, UseDisks: cfg.Fan.TempDisks}
	temp, err := probe.Temperature(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "temp: %.1f°C duty: %d%%\n", temp, logic.DutyCycle(temp, cfg.FanCurve()))
	return err
}

// devices holds the opened hardware. button and sata are nil when not
// wired.
type devices struct {
	button gpio.ButtonReader
	fan    gpio.FanDriver
	sata   gpio.PowerSwitch
	sink   display.Sink
}

func openDevices(w wiring, cfg config.Config) (*devices, error) {
	d := &devices{sink: display.Discard{}}

	sataLines := []gpio.Line{{Chip: w.SATAChip, Offset: w.SATALine1}, {Chip: w.SATAChip, Offset: w.SATALine2}}
	if sataLines[0].Wired() || sataLines[1].Wired() {
		sata, err := gpio.NewRealSATA(sataLines...)
		if err != nil {
			slog.Warn("SATA power lines unavailable", "error", err)
		} else {
			d.sata = sata
			powerOn(sata)
		}
	}

	fan, err := openFan(w)
	if err != nil {
		d.close()
		return nil, err
	}
	d.fan = fan

	if w.ButtonLine >= 0 {
		b, err := gpio.NewRealButton(gpio.Line{Chip: w.ButtonChip, Offset: w.ButtonLine}, w.pressedLow())
		if err != nil {
			d.close()
			return nil, fmt.Errorf("open button: %w", err)
		}
		d.button = b
	} else {
		slog.Warn("button not wired, gestures disabled")
	}

	oled, err := display.NewOLED(display.Options{
		Bus:         w.I2CBus,
		Reset:       w.OLEDReset,
		Rotate:      cfg.OLED.Rotate,
		GoodbyeHold: goodbyeHold,
	})
	if err != nil {
		slog.Warn("display unavailable", "error", err)
	} else {
		d.sink = oled
	}
	return d, nil
}

func powerOn(s gpio.PowerSwitch) {
	if err := s.SetSATA(true); err != nil {
		slog.Warn("SATA power on failed", "error", err)
		return
	}
	slog.Info("SATA power on")
}

func openFan(w wiring) (gpio.FanDriver, error) {
	switch {
	case w.PWMChip != "":
		p, err := gpio.NewSysfsPWM(gpio.SysfsRoot, w.PWMChip, w.FanInvert)
		if err != nil {
			return nil, fmt.Errorf("open fan pwm: %w", err)
		}
		slog.Info("fan on hardware pwm", "chip", w.PWMChip)
		return p, nil
	case w.FanLine >= 0:
		p, err := gpio.NewSoftPWM(gpio.Line{Chip: w.FanChip, Offset: w.FanLine}, w.FanInvert)
		if err != nil {
			return nil, fmt.Errorf("open fan line: %w", err)
		}
		slog.Info("fan on software pwm", "chip", w.FanChip, "line", w.FanLine)
		return p, nil
	}
	return nil, errors.New("no fan output configured: set PWMCHIP or FAN_CHIP/FAN_LINE")
}

func (d *devices) close() {
	if d.button != nil {
		if err := d.button.Close(); err != nil {
			slog.Warn("close button", "error", err)
		}
	}
	if d.fan != nil {
		if err := d.fan.Close(); err != nil {
			slog.Warn("close fan", "error", err)
		}
	}
	if d.sata != nil {
		if err := d.sata.Close(); err != nil {
			slog.Warn("close sata power", "error", err)
		}
	}
	if err := d.sink.Close(); err != nil {
		slog.Warn("close display", "error", err)
	}
}

// app is the wired daemon.
type app struct {
	opts      options
	cfg       config.Config
	dev       *devices
	telemetry telemetry.Provider
	publisher mqtt.Publisher
	status    mqtt.ConnectionStatus
	now       func() time.Time
}

// serve runs the daemon until a signal arrives or ctx is cancelled, then
// announces the shutdown and releases the hardware.
func (a *app) serve(ctx context.Context) error {
	fanPoll := a.cfg.FanPoll(a.opts.FanPoll)
	slide := a.cfg.SliderTiming()
	tracker := status.NewTracker(a.now(), status.Config{
		ConfigPath:  a.opts.Config,
		SampleMs:    config.SampleInterval.Milliseconds(),
		FanPollMs:   fanPoll.Milliseconds(),
		SlideMs:     slide.Time.Milliseconds(),
		AutoSlide:   slide.Auto,
		HeartbeatMs: a.opts.Heartbeat.Milliseconds(),
		Broker:      a.opts.Broker,
		HTTPAddr:    a.opts.HTTP,
		Curve:       a.cfg.FanCurve(),
		Keys:        a.cfg.KeyMap(),
	})

	latch := logic.NewFanLatch(true)
	tracker.SetFanEnabled(true)
	advance := daemon.NewAdvancer()
	controls := &daemon.Controls{
		Dispatcher: &logic.Dispatcher{Keys: a.cfg.KeyMap(), Latch: latch, Advance: advance.Advance},
		Tracker:    tracker,
	}
	life := &daemon.Lifecycle{Publisher: a.publisher, Status: a.status, Tracker: tracker, Telemetry: a.telemetry}

	if err := a.dev.sink.Welcome(); err != nil {
		slog.Warn("welcome screen failed", "error", err)
	}
	life.Publish(ctx, "STARTUP", "", true)

	fans := &daemon.FanLoop{
		Thermometer: a.telemetry,
		Fan:         a.dev.fan,
		Latch:       latch,
		Curve:       a.cfg.FanCurve(),
		UseDisks:    a.cfg.Fan.TempDisks,
		Tracker:     tracker,
		Publisher:   a.publisher,
		Now:         a.now,
	}
	slider := &daemon.SliderLoop{
		Sink:    a.dev.sink,
		Pages:   a.pages(tracker),
		Slider:  logic.NewSlider(),
		Timing:  slide,
		Advance: advance.C(),
		Tracker: tracker,
	}

	var g run.Group
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	addTicker(ctx, &g, fanPoll, fans.Run)
	if a.dev.button != nil {
		buttons := &daemon.ButtonLoop{
			Button:     a.dev.button,
			Classifier: logic.NewClassifier(a.cfg.GestureTiming()),
			Controls:   controls,
			Publisher:  a.publisher,
			Now:        a.now,
		}
		addTicker(ctx, &g, config.SampleInterval, buttons.Run)
	}
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error { return slider.Run(ctx) }, func(error) { cancel() })
	}
	if a.opts.Heartbeat > 0 {
		addTicker(ctx, &g, a.opts.Heartbeat, life.RunHeartbeat)
	}
	if a.opts.HTTP != "" {
		addHTTP(&g, web.New(a.opts.HTTP, tracker, controls), a.opts.HTTP)
	}

	notify(sd.SdNotifyReady)
	slog.Info("started",
		"fan_poll", fanPoll,
		"slide", slide.Time,
		"auto_slide", slide.Auto,
		"broker", a.opts.Broker,
		"heartbeat", a.opts.Heartbeat,
		"http", a.opts.HTTP)

	err := g.Run()
	reason := shutdownReason(err)
	notify(sd.SdNotifyStopping)
	slog.Info("shutting down", "reason", reason)

	life.Publish(context.Background(), "SHUTDOWN", reason, true)
	if err := a.dev.sink.Goodbye(); err != nil {
		slog.Warn("goodbye screen failed", "error", err)
	}
	a.dev.close()
	if n := pending(a.publisher); n > 0 {
		slog.Warn("dropping unsent mqtt messages", "count", n)
	}
	if err := a.publisher.Close(); err != nil {
		slog.Warn("close mqtt publisher", "error", err)
	}

	var sig run.SignalError
	if err == nil || errors.As(err, &sig) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) pages(tracker *status.Tracker) func(context.Context) []logic.Page {
	o := display.PageOptions{
		Fahrenheit:     a.cfg.OLED.FTemp,
		SpaceMounts:    a.cfg.Disk.SpaceUsageMountPoints,
		IOMounts:       a.cfg.Disk.IOUsageMountPoints,
		Interfaces:     a.cfg.Network.Interfaces,
		AutoInterfaces: a.cfg.AutoInterfaces(),
		DiskTemps:      a.cfg.Disk.DisksTemp,
		FanDuty:        tracker.Duty,
	}
	return func(ctx context.Context) []logic.Page {
		return display.BuildPages(ctx, a.telemetry, o)
	}
}

func addTicker(ctx context.Context, g *run.Group, every time.Duration, loop func(context.Context, <-chan time.Time) error) {
	ctx, cancel := context.WithCancel(ctx)
	g.Add(func() error {
		t := time.NewTicker(every)
		defer t.Stop()
		return loop(ctx, t.C)
	}, func(error) {
		cancel()
	})
}

// addHTTP serves until interrupted. A server that fails to start is logged
// and does not stop the daemon.
func addHTTP(g *run.Group, srv *web.Server, addr string) {
	stop := make(chan struct{})
	g.Add(func() error {
		slog.Info("http status server listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			<-stop
		}
		return nil
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown", "error", err)
		}
		close(stop)
	})
}

func configPath(flag string) string {
	if flag == "" {
		return config.DefaultPath
	}
	return flag
}

// pending returns how many messages p still holds for the broker.
func pending(p mqtt.Publisher) int {
	if b, ok := p.(interface{ Buffered() int }); ok {
		return b.Buffered()
	}
	return 0
}

func notify(state string) {
	if _, err := sd.SdNotify(false, state); err != nil {
		slog.Debug("sd_notify failed", "state", state, "error", err)
	}
}

func shutdownReason(err error) string {
	var sig run.SignalError
	if errors.As(err, &sig) {
		return signalName(sig.Signal)
	}
	return "STOPPED"
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
