package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/zero-buttons/internal/logic"
)

func TestTopics(t *testing.T) {
	if got := EventsTopic(DefaultTopic); got != "x32/zero-buttons/events" {
		t.Errorf("EventsTopic: got %s", got)
	}
	if got := SystemTopic("studio/remote"); got != "studio/remote/system" {
		t.Errorf("SystemTopic: got %s", got)
	}
}

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp:  time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:       logic.EventGroupSwitched,
		Button:     logic.ButtonRed,
		Group:      1,
		AutoSwitch: logic.AutoSwitch{Interval: 4},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"remote":{"timestamp":"2026-02-02T22:18:12Z","event":"GROUP_SWITCHED","button":"red","group":1,"auto_switch":{"enabled":false,"interval":4}}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		eventType logic.EventType
		button    logic.Button
		err       string
		wantBtn   string
	}{
		{logic.EventGroupSwitched, logic.ButtonRed, "", "red"},
		{logic.EventGroupSwitchFailed, logic.ButtonRed, "switch: server returned 500", "red"},
		{logic.EventAutoSwitchOn, logic.ButtonBlue, "", "blue"},
		{logic.EventAutoSwitchOff, logic.ButtonBlue, "", "blue"},
		{logic.EventAutoSwitchFailed, logic.ButtonBlue, "auto_switch: timeout", "blue"},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			payload, err := FormatPayload(logic.Event{
				Timestamp: time.Now(),
				Type:      tt.eventType,
				Button:    tt.button,
				Err:       tt.err,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Remote.Event != string(tt.eventType) {
				t.Errorf("event: got %s", parsed.Remote.Event)
			}
			if parsed.Remote.Button != tt.wantBtn {
				t.Errorf("button: got %s, want %s", parsed.Remote.Button, tt.wantBtn)
			}
			if parsed.Remote.Error != tt.err {
				t.Errorf("error: got %q, want %q", parsed.Remote.Error, tt.err)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	payload, err := FormatPayload(logic.Event{
		Timestamp: time.Date(2026, 6, 1, 13, 0, 0, 0, loc),
		Type:      logic.EventAutoSwitchOn,
		Button:    logic.ButtonBlue,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Remote.Timestamp != "2026-06-01T12:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Remote.Timestamp)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     EventShutdown,
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOffline})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventHeartbeat, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	pub := NewFakePublisher()

	event := logic.Event{Timestamp: time.Now(), Type: logic.EventGroupSwitched, Button: logic.ButtonRed, Group: 2}
	if err := pub.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pub.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: EventStartup}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := pub.Events(); len(got) != 1 || got[0].Group != 2 {
		t.Errorf("events: got %+v", got)
	}
	if len(pub.Payloads()) != 1 {
		t.Errorf("expected 1 payload, got %d", len(pub.Payloads()))
	}
	if got := pub.SystemEvents(); len(got) != 1 || got[0].Event != EventStartup {
		t.Errorf("system events: got %+v", got)
	}
	if len(pub.SystemPayloads()) != 1 {
		t.Errorf("expected 1 system payload, got %d", len(pub.SystemPayloads()))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	pub.PublishSystemError = errors.New("broker down")

	if err := pub.Publish(logic.Event{}); err == nil {
		t.Error("expected Publish error")
	}
	if err := pub.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(pub.Events()) != 0 || len(pub.SystemEvents()) != 0 {
		t.Error("failed publishes must not be recorded")
	}
}

func TestFakePublisherCloseAndReset(t *testing.T) {
	pub := NewFakePublisher()
	pub.SetConnected(true)
	_ = pub.Publish(logic.Event{Type: logic.EventAutoSwitchOn})
	_ = pub.Close()

	if !pub.Closed() || !pub.IsConnected() {
		t.Fatal("expected closed and connected")
	}

	pub.Reset()
	if pub.Closed() || pub.IsConnected() || len(pub.Events()) != 0 {
		t.Error("Reset should clear all recorded state")
	}
}

func TestNopPublisher(t *testing.T) {
	var pub Publisher = NopPublisher{}
	if err := pub.Publish(logic.Event{}); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := pub.PublishSystem(SystemEvent{}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if (NopPublisher{}).IsConnected() {
		t.Error("NopPublisher is never connected")
	}
}
