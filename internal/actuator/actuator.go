// Package actuator drives the indicator LEDs.
package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// Output sets an LED level. gpio.Device satisfies it.
type Output interface {
	Set(l logic.LED, on bool) error
}

// Pattern is a blink sequence: Times repetitions of On high then Off low.
type Pattern struct {
	Times int
	On    time.Duration
	Off   time.Duration
}

// DefaultPattern is the red LED acknowledgement: two 100ms blinks.
var DefaultPattern = Pattern{Times: 2, On: 100 * time.Millisecond, Off: 100 * time.Millisecond}

// Duration returns how long Blink blocks for the pattern.
func (p Pattern) Duration() time.Duration {
	if p.Times <= 0 {
		return 0
	}
	return time.Duration(p.Times) * (p.On + p.Off)
}

// Actuator drives LEDs on an Output.
type Actuator struct {
	out Output
}

// New returns an Actuator writing to out.
func New(out Output) *Actuator {
	return &Actuator{out: out}
}

// Blink runs the pattern on led and returns once it completes.
// If ctx is cancelled mid-pattern the LED is driven low and ctx.Err() returned.
func (a *Actuator) Blink(ctx context.Context, led logic.LED, p Pattern) error {
	for i := 0; i < p.Times; i++ {
		if err := a.out.Set(led, true); err != nil {
			return fmt.Errorf("blink %s: %w", led, err)
		}
		if err := hold(ctx, p.On); err != nil {
			a.out.Set(led, false)
			return err
		}
		if err := a.out.Set(led, false); err != nil {
			return fmt.Errorf("blink %s: %w", led, err)
		}
		if err := hold(ctx, p.Off); err != nil {
			return err
		}
	}
	return nil
}

// Set drives led to an explicit level without blocking.
func (a *Actuator) Set(led logic.LED, on bool) error {
	if err := a.out.Set(led, on); err != nil {
		return fmt.Errorf("set %s: %w", led, err)
	}
	return nil
}

func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
