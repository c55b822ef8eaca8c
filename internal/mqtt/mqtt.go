// Package mqtt publishes remote telemetry with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// DefaultTopic is the topic prefix used when none is configured.
const DefaultTopic = "x32/zero-buttons"

// System event names.
const (
	EventStartup   = "STARTUP"
	EventHeartbeat = "HEARTBEAT"
	EventShutdown  = "SHUTDOWN"
	EventOffline   = "OFFLINE"
)

// EventsTopic returns the topic for press outcomes under prefix.
func EventsTopic(prefix string) string {
	return prefix + "/events"
}

// SystemTopic returns the topic for lifecycle events under prefix.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a press outcome to the broker.
	// Errors are reported but must never stop the control loop.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (startup, heartbeat, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // signal name, shutdown only
	RawPayload []byte // pre-formatted status snapshot; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the message body on the events topic.
type Payload struct {
	Remote RemotePayload `json:"remote"`
}

// RemotePayload contains one press outcome.
type RemotePayload struct {
	Timestamp  string            `json:"timestamp"`
	Event      string            `json:"event"`
	Button     string            `json:"button"`
	Group      int               `json:"group"`
	AutoSwitch AutoSwitchPayload `json:"auto_switch"`
	Error      string            `json:"error,omitempty"`
}

// AutoSwitchPayload is the confirmed auto-switch state after the event.
type AutoSwitchPayload struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

// FormatPayload creates the JSON payload for a press outcome.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Remote: RemotePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Button:    event.Button.String(),
			Group:     event.Group,
			AutoSwitch: AutoSwitchPayload{
				Enabled:  event.AutoSwitch.Enabled,
				Interval: event.AutoSwitch.Interval,
			},
			Error: event.Err,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the body of simple system events such as the LWT.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
