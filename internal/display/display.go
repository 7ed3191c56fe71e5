// Package display draws status pages on the hat's 128x32 SSD1306 OLED.
package display

import (
	"image"
	"image/draw"
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/sweeney/rockpi-quad/internal/logic"
)

// Panel size of the hat's display.
const (
	Width  = 128
	Height = 32
)

// Sink shows pages on a display.
type Sink interface {
	Show(p logic.Page) error
	// Welcome shows the start-up screen.
	Welcome() error
	// Goodbye shows the shutdown screen, then clears the display.
	// Only the first call has any effect.
	Goodbye() error
	Close() error
}

// WelcomePage is shown while the daemon starts.
var WelcomePage = logic.Page{
	Title: "welcome",
	Lines: []logic.Line{
		{X: 0, Y: 0, Text: "ROCKPi SATA HAT", Size: 14},
		{X: 32, Y: 16, Text: "Loading...", Size: 12},
	},
}

// GoodbyePage is shown while the daemon stops.
var GoodbyePage = logic.Page{
	Title: "goodbye",
	Lines: []logic.Line{
		{X: 32, Y: 8, Text: "Good Bye ~", Size: 14},
	},
}

// DefaultSize is used for lines that carry no font size.
const DefaultSize = 12

var (
	fontOnce sync.Once
	fontErr  error
	mono     *opentype.Font

	facesMu sync.Mutex
	faces   = map[int]font.Face{}
)

// faceFor returns the mono bold face at size points, one per size.
func faceFor(size int) (font.Face, error) {
	if size <= 0 {
		size = DefaultSize
	}
	fontOnce.Do(func() {
		mono, fontErr = opentype.Parse(gomonobold.TTF)
	})
	if fontErr != nil {
		return nil, fontErr
	}

	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(mono, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	faces[size] = f
	return f, nil
}

// Render clears dst and draws lines on it. Line coordinates are the top
// left corner of the text, drawn at the line's font size.
func Render(dst draw.Image, lines []logic.Line) {
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: image1bit.Off}, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst: dst,
		Src: &image.Uniform{C: image1bit.On},
	}
	for _, l := range lines {
		face, err := faceFor(l.Size)
		if err != nil {
			slog.Warn("font face", "size", l.Size, "error", err)
			continue
		}
		d.Face = face
		d.Dot = fixed.P(l.X, l.Y+face.Metrics().Ascent.Ceil())
		d.DrawString(l.Text)
	}
}
