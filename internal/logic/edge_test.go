package logic

import "testing"

func TestEdgeDetectorStartsNotPressed(t *testing.T) {
	var d EdgeDetector
	if d.Level() {
		t.Error("new detector should report not pressed")
	}

	// Button already held at startup counts as a press on the first sample.
	if got := d.Process(true); got != EdgeRising {
		t.Errorf("first pressed sample: expected EdgeRising, got %v", got)
	}
}

func TestEdgeDetectorSequence(t *testing.T) {
	var d EdgeDetector

	samples := []bool{false, false, true, true, true, false, true, false, false}
	want := []Edge{EdgeNone, EdgeNone, EdgeRising, EdgeNone, EdgeNone, EdgeNone, EdgeRising, EdgeNone, EdgeNone}

	for i, s := range samples {
		if got := d.Process(s); got != want[i] {
			t.Errorf("sample %d (%v): expected %v, got %v", i, s, want[i], got)
		}
		if d.Level() != s {
			t.Errorf("sample %d: Level() should track last sample", i)
		}
	}
}

func TestEdgeDetectorHeldPressIsOneEdge(t *testing.T) {
	var d EdgeDetector
	d.Process(false)

	edges := 0
	for i := 0; i < 50; i++ {
		if d.Process(true) == EdgeRising {
			edges++
		}
	}
	if edges != 1 {
		t.Errorf("held press: expected 1 edge, got %d", edges)
	}
}

func TestEdgeDetectorFallingEdgeIgnored(t *testing.T) {
	var d EdgeDetector
	d.Process(true)

	if got := d.Process(false); got != EdgeNone {
		t.Errorf("release: expected EdgeNone, got %v", got)
	}
}

func TestButtonAndLEDStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{ButtonRed.String(), "red"},
		{ButtonBlue.String(), "blue"},
		{Button(9).String(), "unknown"},
		{LEDRed.String(), "red"},
		{LEDBlue.String(), "blue"},
		{LED(9).String(), "unknown"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
