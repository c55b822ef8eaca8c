// Package gpio provides button input and LED output with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/zero-buttons/internal/logic"

// Device reads buttons and drives LEDs.
type Device interface {
	// Read returns whether the button is pressed.
	// Buttons are wired active-low with pull-up: raw low = pressed.
	Read(b logic.Button) (bool, error)

	// Set drives an LED high (true) or low (false).
	Set(l logic.LED, on bool) error

	// Close drives LEDs low and releases GPIO resources.
	Close() error
}

// Pins maps logical inputs and outputs to BCM line offsets.
type Pins struct {
	RedButton  int
	RedLED     int
	BlueButton int
	BlueLED    int
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinRedButton  = 3
	DefaultPinRedLED     = 2
	DefaultPinBlueButton = 4
	DefaultPinBlueLED    = 17
)

// DefaultPins returns the wiring of the original board.
func DefaultPins() Pins {
	return Pins{
		RedButton:  DefaultPinRedButton,
		RedLED:     DefaultPinRedLED,
		BlueButton: DefaultPinBlueButton,
		BlueLED:    DefaultPinBlueLED,
	}
}

// Button returns the offset wired to b.
func (p Pins) Button(b logic.Button) int {
	if b == logic.ButtonBlue {
		return p.BlueButton
	}
	return p.RedButton
}

// LED returns the offset wired to l.
func (p Pins) LED(l logic.LED) int {
	if l == logic.LEDBlue {
		return p.BlueLED
	}
	return p.RedLED
}
