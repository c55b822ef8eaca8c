package logic

// Edge is the result of comparing two consecutive samples.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeRising
)

// EdgeDetector reports not-pressed to pressed transitions between
// consecutive samples of one input. The zero value starts as not pressed.
type EdgeDetector struct {
	previous bool
}

// Process compares current against the previous sample and stores it.
func (d *EdgeDetector) Process(current bool) Edge {
	edge := EdgeNone
	if !d.previous && current {
		edge = EdgeRising
	}
	d.previous = current
	return edge
}

// Level returns the last sample seen.
func (d *EdgeDetector) Level() bool {
	return d.previous
}
