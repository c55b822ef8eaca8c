package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/sweeney/zero-buttons/internal/logic"
	"github.com/sweeney/zero-buttons/internal/metrics"
	"github.com/sweeney/zero-buttons/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	return newTestServerWithPush(t, defaultPushInterval)
}

func newTestServerWithPush(t *testing.T, push time.Duration) (*httptest.Server, *Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      10,
		HeartbeatMs: 900000,
		Server:      "http://localhost:3001",
		Groups:      4,
		Async:       true,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, "boot-1", cfg)
	m := metrics.New()
	srv := New(":0", tr, m.Handler(), zaptest.NewLogger(t))
	srv.push = push
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv, tr, m
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)
	tr.SetState(2, logic.AutoSwitch{Enabled: true, Interval: 4}, logic.Counts{RedPresses: 5, CommandsOK: 5})
	tr.SetMQTTConnected(true)

	resp, body := get(t, ts.URL+"/index.json")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Group != 2 {
		t.Errorf("group: got %d, want 2", sj.Status.Group)
	}
	if !sj.Status.AutoSwitch.Enabled {
		t.Error("auto_switch.enabled: got false")
	}
	if sj.Status.Counts.RedPresses != 5 {
		t.Errorf("red_presses: got %d", sj.Status.Counts.RedPresses)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("mqtt.connected: got false")
	}
	if sj.Status.BootID != "boot-1" {
		t.Errorf("boot_id: got %q", sj.Status.BootID)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)
	tr.SetState(1, logic.AutoSwitch{Enabled: true, Interval: 4}, logic.Counts{})

	resp, body := get(t, ts.URL+"/")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q", ct)
	}
	for _, want := range []string{"Zero Buttons", "2 / 4", `class="on">ON`, "http://localhost:3001", "/ws"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Zero Buttons") {
		t.Error("expected status page")
	}
}

func TestHTMLShowsLastError(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)
	tr.RecordCommand(time.Now(), "switch", true, "status", &testErr{"switch: server returned 500"})

	_, body := get(t, ts.URL+"/")
	if !strings.Contains(body, "switch: switch: server returned 500") {
		t.Errorf("expected last error in page:\n%s", body)
	}
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, _, m := newTestServer(t)
	m.Press(logic.ButtonRed)

	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `zerobuttons_presses_total{button="red"} 1`) {
		t.Errorf("metrics missing press counter:\n%s", body)
	}
}

func TestMetricsNotMountedWithoutHandler(t *testing.T) {
	tr := status.NewTracker(time.Now(), "", status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil, nil).Handler())
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)

	for group := 0; group < 4; group++ {
		tr.SetState(group, logic.AutoSwitch{Interval: 4}, logic.Counts{RedPresses: group})

		_, body := get(t, ts.URL+"/index.json")
		var sj status.StatusJSON
		if err := json.Unmarshal([]byte(body), &sj); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if sj.Status.Group != group {
			t.Errorf("group: got %d, want %d", sj.Status.Group, group)
		}
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) status.StatusInner {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var sj status.StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return sj.Status
}

func TestWebsocketPushesOnChange(t *testing.T) {
	ts, _, tr, _ := newTestServer(t)
	conn := dialWS(t, ts)

	if first := readStatus(t, conn); first.Group != 0 {
		t.Errorf("initial group: got %d, want 0", first.Group)
	}

	tr.SetState(3, logic.AutoSwitch{Interval: 4}, logic.Counts{RedPresses: 3})

	// The change may race the initial write; read until it shows up.
	for i := 0; i < 3; i++ {
		if s := readStatus(t, conn); s.Group == 3 {
			return
		}
	}
	t.Error("did not receive pushed change")
}

func TestWebsocketPeriodicPush(t *testing.T) {
	ts, _, _, _ := newTestServerWithPush(t, 20*time.Millisecond)
	conn := dialWS(t, ts)

	readStatus(t, conn)
	readStatus(t, conn)
}

func TestShutdownClosesStreams(t *testing.T) {
	ts, srv, _, _ := newTestServer(t)
	conn := dialWS(t, ts)
	readStatus(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("expected going-away close, got %v", err)
			}
			return
		}
	}
}

func TestServeOnListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	tr := status.NewTracker(time.Now(), "boot-1", status.Config{Groups: 4})
	srv := New(ln.Addr().String(), tr, nil, zaptest.NewLogger(t))

	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	resp, body := get(t, "http://"+ln.Addr().String()+"/index.json")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"boot_id": "boot-1"`) {
		t.Errorf("index.json: %d %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-served:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve: got %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
