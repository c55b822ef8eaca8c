//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// RealDevice drives actual hardware using Linux GPIO character device.
type RealDevice struct {
	chip    *gpiocdev.Chip
	pins    Pins
	red     *gpiocdev.Line
	blue    *gpiocdev.Line
	redLED  *gpiocdev.Line
	blueLED *gpiocdev.Line
}

// NewRealDevice opens the chip and requests the four lines.
// Buttons are requested as input with pull-up, LEDs as output driven low.
func NewRealDevice(chipName string, pins Pins) (*RealDevice, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("zero-buttons"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	d := &RealDevice{chip: chip, pins: pins}

	if d.red, err = chip.RequestLine(pins.RedButton, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		d.Close()
		return nil, fmt.Errorf("request red button pin %d: %w", pins.RedButton, err)
	}
	if d.blue, err = chip.RequestLine(pins.BlueButton, gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		d.Close()
		return nil, fmt.Errorf("request blue button pin %d: %w", pins.BlueButton, err)
	}
	if d.redLED, err = chip.RequestLine(pins.RedLED, gpiocdev.AsOutput(0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request red led pin %d: %w", pins.RedLED, err)
	}
	if d.blueLED, err = chip.RequestLine(pins.BlueLED, gpiocdev.AsOutput(0)); err != nil {
		d.Close()
		return nil, fmt.Errorf("request blue led pin %d: %w", pins.BlueLED, err)
	}

	return d, nil
}

// Read returns whether the button is pressed.
// Inverts raw GPIO: raw low (0) = pressed, raw high (1) = released.
func (d *RealDevice) Read(b logic.Button) (bool, error) {
	line := d.red
	if b == logic.ButtonBlue {
		line = d.blue
	}
	raw, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s button pin %d: %w", b, d.pins.Button(b), err)
	}
	return raw == 0, nil
}

// Set drives an LED.
func (d *RealDevice) Set(l logic.LED, on bool) error {
	line := d.redLED
	if l == logic.LEDBlue {
		line = d.blueLED
	}
	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set %s led pin %d: %w", l, d.pins.LED(l), err)
	}
	return nil
}

// Close releases GPIO resources.
// LEDs are driven low and every line is reconfigured to input with pull-down
// (matching Pi boot defaults) before closing.
func (d *RealDevice) Close() error {
	var errs []error

	for _, led := range []*gpiocdev.Line{d.redLED, d.blueLED} {
		if led == nil {
			continue
		}
		if err := led.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive led pin %d low: %w", led.Offset(), err))
		}
	}
	for _, line := range []*gpiocdev.Line{d.red, d.blue, d.redLED, d.blueLED} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", line.Offset(), err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	d.red, d.blue, d.redLED, d.blueLED, d.chip = nil, nil, nil, nil, nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
