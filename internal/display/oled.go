package display

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// Options configures the OLED.
type Options struct {
	// Bus is the I²C bus name or number, "" for the first bus.
	Bus string
	// Reset is the periph name of the reset pin, "" if not wired.
	Reset string
	// Rotate turns the picture 180°.
	Rotate bool
	// GoodbyeHold is how long the goodbye screen stays up.
	GoodbyeHold time.Duration
}

// OLED drives an SSD1306 over I²C.
type OLED struct {
	mu   sync.Mutex
	bus  i2c.BusCloser
	dev  *ssd1306.Dev
	img  *image1bit.VerticalLSB
	hold time.Duration

	bye sync.Once
}

// NewOLED opens the display and clears it.
func NewOLED(o Options) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}

	if o.Reset != "" {
		if err := pulseReset(o.Reset); err != nil {
			return nil, err
		}
	}

	bus, err := i2creg.Open(o.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", o.Bus, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: Width, H: Height, Rotated: o.Rotate})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ssd1306: %w", err)
	}

	d := &OLED{
		bus:  bus,
		dev:  dev,
		img:  image1bit.NewVerticalLSB(dev.Bounds()),
		hold: o.GoodbyeHold,
	}
	if err := d.draw(nil); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func pulseReset(name string) error {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return fmt.Errorf("oled reset pin %q not found", name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("oled reset low: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := pin.Out(gpio.High); err != nil {
		return fmt.Errorf("oled reset high: %w", err)
	}
	return nil
}

func (d *OLED) draw(lines []logic.Line) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	Render(d.img, lines)
	if err := d.dev.Draw(d.dev.Bounds(), d.img, image.Point{}); err != nil {
		return fmt.Errorf("draw oled: %w", err)
	}
	return nil
}

// Show draws p.
func (d *OLED) Show(p logic.Page) error {
	return d.draw(p.Lines)
}

func (d *OLED) Welcome() error {
	return d.draw(WelcomePage.Lines)
}

// Goodbye blocks for the hold time.
func (d *OLED) Goodbye() error {
	var err error
	d.bye.Do(func() {
		if err = d.draw(GoodbyePage.Lines); err != nil {
			return
		}
		time.Sleep(d.hold)
		err = d.draw(nil)
	})
	return err
}

// Close turns the panel off and releases the bus.
func (d *OLED) Close() error {
	return errors.Join(d.dev.Halt(), d.bus.Close())
}
