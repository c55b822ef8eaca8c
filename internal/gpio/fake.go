package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// FakeDevice is a test double that returns scripted button values and
// records LED writes. Safe for concurrent use.
type FakeDevice struct {
	mu sync.Mutex

	// Samples contains scripted (red, blue) levels.
	// Each Read(button) consumes the next sample for that button.
	Samples []Sample

	// index tracks current position in Samples per button
	index [2]int

	levels [2]bool
	writes []Write

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// SetError, if set, will be returned by Set()
	SetError error
}

// Sample represents one poll of both buttons (already in logical form).
type Sample struct {
	Red  bool // true = pressed
	Blue bool // true = pressed
}

// Write records a single LED write.
type Write struct {
	LED logic.LED
	On  bool
}

// NewFakeDevice creates a FakeDevice with the given samples.
func NewFakeDevice(samples []Sample) *FakeDevice {
	return &FakeDevice{Samples: samples}
}

// Read returns the next scripted level for b.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeDevice) Read(b logic.Button) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	i := int(b)
	sample := f.Samples[f.index[i]]
	if f.index[i] < len(f.Samples)-1 {
		f.index[i]++
	}

	if b == logic.ButtonBlue {
		return sample.Blue, nil
	}
	return sample.Red, nil
}

// Set records the write and updates the LED level.
func (f *FakeDevice) Set(l logic.LED, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	f.levels[int(l)] = on
	f.writes = append(f.writes, Write{LED: l, On: on})
	return nil
}

// Close drives both LEDs low and marks the device as closed.
func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.levels = [2]bool{}
	f.Closed = true
	return nil
}

// Level returns the current level of an LED.
func (f *FakeDevice) Level(l logic.LED) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[int(l)]
}

// Writes returns a copy of the recorded writes for one LED.
func (f *FakeDevice) Writes(l logic.LED) []Write {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Write
	for _, w := range f.writes {
		if w.LED == l {
			out = append(out, w)
		}
	}
	return out
}

// IsClosed reports whether Close was called.
func (f *FakeDevice) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Closed
}

// Reset rewinds the samples and clears recorded writes.
func (f *FakeDevice) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.index = [2]int{}
	f.levels = [2]bool{}
	f.writes = nil
	f.Closed = false
}
