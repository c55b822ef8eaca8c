// Package status provides a thread-safe status tracker for the zero-buttons daemon.
// It is read by the HTTP status server, the websocket stream and telemetry.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Server      string // controller base URL
	Groups      int
	Async       bool
	Broker      string
	HTTPAddr    string
}

// LastError describes the most recent failed command.
type LastError struct {
	Time    time.Time
	Command string
	Kind    string
	Message string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	BootID          string
	RedPressed      bool
	BluePressed     bool
	Group           int
	AutoSwitch      logic.AutoSwitch
	Synced          bool // startup read-back succeeded
	Counts          logic.Counts
	RemoteReachable bool // last command got an HTTP answer
	LastError       *LastError
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	changed chan struct{}
}

// NewTracker creates a Tracker with the given start time, boot ID and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
		changed: make(chan struct{}),
	}
}

// notify wakes every Changed() waiter. Caller must hold mu.
func (t *Tracker) notify() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Changed returns a channel that is closed on the next state change.
func (t *Tracker) Changed() <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changed
}

// SetButtons records the latest button levels.
// Called from the control loop on every poll; only notifies on change.
func (t *Tracker) SetButtons(red, blue bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.RedPressed == red && t.snap.BluePressed == blue {
		return
	}
	t.snap.RedPressed = red
	t.snap.BluePressed = blue
	t.notify()
}

// SetState records the confirmed cursor, auto-switch state and counts.
func (t *Tracker) SetState(group int, auto logic.AutoSwitch, counts logic.Counts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.Group == group && t.snap.AutoSwitch == auto && t.snap.Counts == counts {
		return
	}
	t.snap.Group = group
	t.snap.AutoSwitch = auto
	t.snap.Counts = counts
	t.notify()
}

// SetSynced records whether the startup read-back succeeded.
func (t *Tracker) SetSynced(synced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Synced = synced
	t.notify()
}

// RecordCommand records the outcome of a command.
// reachable is true when the server answered, even with an error status.
func (t *Tracker) RecordCommand(at time.Time, command string, reachable bool, kind string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.RemoteReachable = reachable
	if err != nil {
		t.snap.LastError = &LastError{Time: at, Command: command, Kind: kind, Message: err.Error()}
	}
	t.notify()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snap.MQTTConnected == connected {
		return
	}
	t.snap.MQTTConnected = connected
	t.notify()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastError != nil {
		le := *s.LastError
		s.LastError = &le
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
