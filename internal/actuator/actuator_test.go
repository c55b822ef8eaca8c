package actuator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/zero-buttons/internal/gpio"
	"github.com/sweeney/zero-buttons/internal/logic"
)

func TestBlinkWritesPattern(t *testing.T) {
	dev := gpio.NewFakeDevice(nil)
	a := New(dev)

	p := Pattern{Times: 2, On: time.Millisecond, Off: time.Millisecond}
	if err := a.Blink(context.Background(), logic.LEDRed, p); err != nil {
		t.Fatalf("Blink: %v", err)
	}

	writes := dev.Writes(logic.LEDRed)
	want := []bool{true, false, true, false}
	if len(writes) != len(want) {
		t.Fatalf("expected %d writes, got %d: %+v", len(want), len(writes), writes)
	}
	for i, w := range writes {
		if w.On != want[i] {
			t.Errorf("write %d: got %v, want %v", i, w.On, want[i])
		}
	}
	if dev.Level(logic.LEDRed) {
		t.Error("red LED should end low")
	}
	if len(dev.Writes(logic.LEDBlue)) != 0 {
		t.Error("blink on red must not touch blue")
	}
}

func TestBlinkBlocksForPattern(t *testing.T) {
	dev := gpio.NewFakeDevice(nil)
	a := New(dev)

	p := Pattern{Times: 2, On: 10 * time.Millisecond, Off: 10 * time.Millisecond}
	start := time.Now()
	if err := a.Blink(context.Background(), logic.LEDRed, p); err != nil {
		t.Fatalf("Blink: %v", err)
	}
	if elapsed := time.Since(start); elapsed < p.Duration() {
		t.Errorf("Blink returned after %v, expected at least %v", elapsed, p.Duration())
	}
}

func TestBlinkCancelledDrivesLow(t *testing.T) {
	dev := gpio.NewFakeDevice(nil)
	a := New(dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Blink(ctx, logic.LEDRed, Pattern{Times: 2, On: time.Hour, Off: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if dev.Level(logic.LEDRed) {
		t.Error("cancelled blink must leave the LED low")
	}
}

func TestBlinkWriteError(t *testing.T) {
	dev := gpio.NewFakeDevice(nil)
	dev.SetError = errors.New("line gone")
	a := New(dev)

	err := a.Blink(context.Background(), logic.LEDRed, DefaultPattern)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, dev.SetError) {
		t.Errorf("error should wrap the hardware error, got %v", err)
	}
}

func TestBlinkZeroTimes(t *testing.T) {
	dev := gpio.NewFakeDevice(nil)
	a := New(dev)

	if err := a.Blink(context.Background(), logic.LEDRed, Pattern{}); err != nil {
		t.Fatalf("Blink: %v", err)
	}
	if len(dev.Writes(logic.LEDRed)) != 0 {
		t.Error("zero-times pattern should not write")
	}
}

func TestSet(t *testing.T) {
	dev := gpio.NewFakeDevice(nil)
	a := New(dev)

	if err := a.Set(logic.LEDBlue, true); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !dev.Level(logic.LEDBlue) {
		t.Error("blue LED should be high")
	}
}

func TestPatternDuration(t *testing.T) {
	if got := DefaultPattern.Duration(); got != 400*time.Millisecond {
		t.Errorf("DefaultPattern.Duration(): got %v, want 400ms", got)
	}
	if got := (Pattern{Times: -1, On: time.Second}).Duration(); got != 0 {
		t.Errorf("negative times: got %v, want 0", got)
	}
}
