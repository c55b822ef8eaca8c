// Package logic contains the pure state of the remote: edge detection,
// the group cursor and the auto-switch state.
// This package has NO external dependencies (no GPIO, HTTP, OS, or time.Sleep).
package logic

import "time"

// Button identifies a logical input.
type Button int

const (
	ButtonRed Button = iota
	ButtonBlue
)

func (b Button) String() string {
	switch b {
	case ButtonRed:
		return "red"
	case ButtonBlue:
		return "blue"
	}
	return "unknown"
}

// LED identifies a logical output.
type LED int

const (
	LEDRed LED = iota
	LEDBlue
)

func (l LED) String() string {
	switch l {
	case LEDRed:
		return "red"
	case LEDBlue:
		return "blue"
	}
	return "unknown"
}

// EventType names the outcome of a handled press.
type EventType string

const (
	EventGroupSwitched     EventType = "GROUP_SWITCHED"
	EventGroupSwitchFailed EventType = "GROUP_SWITCH_FAILED"
	EventAutoSwitchOn      EventType = "AUTO_SWITCH_ON"
	EventAutoSwitchOff     EventType = "AUTO_SWITCH_OFF"
	EventAutoSwitchFailed  EventType = "AUTO_SWITCH_FAILED"
)

// Event describes a handled press and the confirmed state after it.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Button     Button
	Group      int
	AutoSwitch AutoSwitch
	Err        string // empty unless the command failed
}

// Counts tracks presses and command outcomes since startup.
type Counts struct {
	RedPresses     int
	BluePresses    int
	CommandsOK     int
	CommandsFailed int
	BusyDrops      int
}
