package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/zero-buttons/internal/logic"
)

func TestFakeDeviceRead(t *testing.T) {
	samples := []Sample{
		{Red: true, Blue: false},
		{Red: false, Blue: true},
		{Red: true, Blue: true},
	}

	f := NewFakeDevice(samples)

	for i, want := range samples {
		red, err := f.Read(logic.ButtonRed)
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		blue, err := f.Read(logic.ButtonBlue)
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if red != want.Red || blue != want.Blue {
			t.Errorf("sample %d: expected (%v, %v), got (%v, %v)", i, want.Red, want.Blue, red, blue)
		}
	}

	// Fourth read should repeat last sample
	red, _ := f.Read(logic.ButtonRed)
	blue, _ := f.Read(logic.ButtonBlue)
	if !red || !blue {
		t.Errorf("sample 3 (repeat): expected (true, true), got (%v, %v)", red, blue)
	}
}

func TestFakeDeviceButtonsAdvanceIndependently(t *testing.T) {
	f := NewFakeDevice([]Sample{
		{Red: true, Blue: false},
		{Red: false, Blue: true},
	})

	// Reading red twice must not consume blue samples.
	f.Read(logic.ButtonRed)
	f.Read(logic.ButtonRed)

	blue, _ := f.Read(logic.ButtonBlue)
	if blue {
		t.Error("blue should still be at sample 0 (false)")
	}
}

func TestFakeDeviceNoSamples(t *testing.T) {
	f := NewFakeDevice(nil)

	_, err := f.Read(logic.ButtonRed)
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeDeviceReadError(t *testing.T) {
	f := NewFakeDevice([]Sample{{Red: true}})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read(logic.ButtonRed)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeDeviceSetRecordsWrites(t *testing.T) {
	f := NewFakeDevice(nil)

	f.Set(logic.LEDRed, true)
	f.Set(logic.LEDBlue, true)
	f.Set(logic.LEDRed, false)

	if f.Level(logic.LEDRed) {
		t.Error("red LED should be low")
	}
	if !f.Level(logic.LEDBlue) {
		t.Error("blue LED should be high")
	}

	red := f.Writes(logic.LEDRed)
	if len(red) != 2 {
		t.Fatalf("expected 2 red writes, got %d", len(red))
	}
	if !red[0].On || red[1].On {
		t.Errorf("unexpected red writes: %+v", red)
	}
}

func TestFakeDeviceSetError(t *testing.T) {
	f := NewFakeDevice(nil)
	f.SetError = errors.New("line busy")

	if err := f.Set(logic.LEDBlue, true); err == nil {
		t.Fatal("expected error")
	}
	if f.Level(logic.LEDBlue) {
		t.Error("failed write must not change level")
	}
}

func TestFakeDeviceClose(t *testing.T) {
	f := NewFakeDevice(nil)
	f.Set(logic.LEDBlue, true)

	if f.IsClosed() {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.IsClosed() {
		t.Error("should be closed after Close()")
	}
	if f.Level(logic.LEDBlue) {
		t.Error("Close() should drive LEDs low")
	}
}

func TestFakeDeviceReset(t *testing.T) {
	f := NewFakeDevice([]Sample{{Red: true}, {Red: false}})

	f.Read(logic.ButtonRed)
	f.Set(logic.LEDRed, true)
	f.Reset()

	red, _ := f.Read(logic.ButtonRed)
	if !red {
		t.Error("after reset: expected first sample again")
	}
	if len(f.Writes(logic.LEDRed)) != 0 {
		t.Error("after reset: writes should be cleared")
	}
}

func TestDefaultPins(t *testing.T) {
	p := DefaultPins()
	if p.Button(logic.ButtonRed) != 3 || p.LED(logic.LEDRed) != 2 {
		t.Errorf("red pins: got button=%d led=%d", p.Button(logic.ButtonRed), p.LED(logic.LEDRed))
	}
	if p.Button(logic.ButtonBlue) != 4 || p.LED(logic.LEDBlue) != 17 {
		t.Errorf("blue pins: got button=%d led=%d", p.Button(logic.ButtonBlue), p.LED(logic.LEDBlue))
	}
}
