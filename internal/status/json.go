package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	BootID        string         `json:"boot_id"`
	Buttons       ButtonsJSON    `json:"buttons"`
	Group         int            `json:"group"`
	AutoSwitch    AutoSwitchJSON `json:"auto_switch"`
	Synced        bool           `json:"synced"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	Remote        RemoteJSON     `json:"remote"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"counts"`
	Config        ConfigJSON     `json:"config"`
}

// ButtonsJSON reports the latest sampled button levels.
type ButtonsJSON struct {
	Red  bool `json:"red"`
	Blue bool `json:"blue"`
}

// AutoSwitchJSON is the confirmed auto-switch state.
type AutoSwitchJSON struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

// RemoteJSON reports controller server reachability.
type RemoteJSON struct {
	URL       string         `json:"url"`
	Reachable bool           `json:"reachable"`
	LastError *LastErrorJSON `json:"last_error,omitempty"`
}

// LastErrorJSON is the JSON representation of LastError.
type LastErrorJSON struct {
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of counts.
type CountsJSON struct {
	RedPresses     int `json:"red_presses"`
	BluePresses    int `json:"blue_presses"`
	CommandsOK     int `json:"commands_ok"`
	CommandsFailed int `json:"commands_failed"`
	BusyDrops      int `json:"busy_drops"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Groups      int    `json:"groups"`
	Async       bool   `json:"async"`
	Broker      string `json:"broker,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		BootID:        snap.BootID,
		Buttons:       ButtonsJSON{Red: snap.RedPressed, Blue: snap.BluePressed},
		Group:         snap.Group,
		AutoSwitch:    AutoSwitchJSON{Enabled: snap.AutoSwitch.Enabled, Interval: snap.AutoSwitch.Interval},
		Synced:        snap.Synced,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Remote:        RemoteJSON{URL: snap.Config.Server, Reachable: snap.RemoteReachable},
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			RedPresses:     snap.Counts.RedPresses,
			BluePresses:    snap.Counts.BluePresses,
			CommandsOK:     snap.Counts.CommandsOK,
			CommandsFailed: snap.Counts.CommandsFailed,
			BusyDrops:      snap.Counts.BusyDrops,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Groups:      snap.Config.Groups,
			Async:       snap.Config.Async,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if le := snap.LastError; le != nil {
		inner.Remote.LastError = &LastErrorJSON{
			Timestamp: le.Time.UTC().Format(time.RFC3339),
			Command:   le.Command,
			Kind:      le.Kind,
			Message:   le.Message,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
