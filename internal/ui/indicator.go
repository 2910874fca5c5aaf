// Package ui implements the steering indicator window: a small fixed-size
// readout of the current steering angle of each steering mapping. The window
// is a pull-model observer; it polls the engine at its own cadence and the
// engine never blocks on it.
package ui

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	pollInterval = 33 * time.Millisecond
	dialSize     = 160
	// maxRotation is the wheel rotation drawn at full deflection.
	maxRotation = 0.75 * math.Pi
)

// Indicator is the steering indicator window.
type Indicator struct {
	app    fyne.App
	window fyne.Window
	angles func() map[string]float64

	needle *canvas.Line
	rim    *canvas.Circle
	label  *widget.Label
}

// NewIndicator builds the window. angles returns the current steering angles
// keyed by "joystick.control".
func NewIndicator(angles func() map[string]float64) *Indicator {
	a := app.New()
	w := a.NewWindow("Steering")
	ind := &Indicator{app: a, window: w, angles: angles}

	ind.rim = canvas.NewCircle(color.Transparent)
	ind.rim.StrokeColor = color.NRGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}
	ind.rim.StrokeWidth = 3
	ind.needle = canvas.NewLine(color.NRGBA{R: 0xe0, G: 0x40, B: 0x40, A: 0xff})
	ind.needle.StrokeWidth = 4
	ind.label = widget.NewLabel("centered")

	dial := container.NewWithoutLayout(ind.rim, ind.needle)
	ind.rim.Resize(fyne.NewSize(dialSize, dialSize))
	ind.rim.Move(fyne.NewPos(0, 0))
	ind.setNeedle(0)

	// GridWrap gives the free-layout dial a real minimum size inside the box.
	w.SetContent(container.NewVBox(
		container.NewGridWrap(fyne.NewSize(dialSize, dialSize), dial),
		ind.label,
	))
	w.Resize(fyne.NewSize(dialSize+20, dialSize+60))
	w.SetFixedSize(true)
	return ind
}

// setNeedle positions the needle for a normalized angle in [-1, 1].
func (ind *Indicator) setNeedle(theta float64) {
	rot := theta * maxRotation
	cx, cy := float32(dialSize)/2, float32(dialSize)/2
	r := float32(dialSize)/2 - 4
	// Needle points up when centered.
	tipX := cx + r*float32(math.Sin(rot))
	tipY := cy - r*float32(math.Cos(rot))
	ind.needle.Position1 = fyne.NewPos(cx, cy)
	ind.needle.Position2 = fyne.NewPos(tipX, tipY)
	ind.needle.Refresh()
}

// Run shows the window and blocks until it is closed. It must be called on
// the main goroutine; the engine runs beside it.
func (ind *Indicator) Run() {
	go ind.poll()
	ind.window.ShowAndRun()
}

func (ind *Indicator) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for range ticker.C {
		angles := ind.angles()
		if len(angles) == 0 {
			continue
		}
		// With several steering mappings, show the first by name.
		keys := make([]string, 0, len(angles))
		for k := range angles {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		name := keys[0]
		theta := angles[name]
		fyne.Do(func() {
			ind.setNeedle(theta)
			ind.label.SetText(fmt.Sprintf("%s  %+0.3f", name, theta))
		})
	}
}
