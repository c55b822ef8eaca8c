package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/zero-buttons/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onOff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"inc": func(i int) int { return i + 1 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Zero Buttons</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Zero Buttons<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Group</th><td id="group">{{inc .Group}} / {{.Config.Groups}}</td></tr>
<tr><th>Auto-switch</th><td id="auto" class="{{if .AutoSwitch.Enabled}}on{{else}}off{{end}}">{{onOff .AutoSwitch.Enabled}}</td></tr>
<tr><th>Interval</th><td id="interval">{{.AutoSwitch.Interval}}</td></tr>
<tr><th>Synced with server</th><td>{{if .Synced}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Server</th><td>{{.Config.Server}}</td></tr>
<tr><th>Reachable</th><td id="reachable" class="{{if .RemoteReachable}}connected{{else}}disconnected{{end}}">{{if .RemoteReachable}}yes{{else}}no{{end}}</td></tr>
{{with .LastError}}<tr><th>Last error</th><td>{{.Command}}: {{.Message}} ({{.Time.UTC.Format "2006-01-02T15:04:05Z"}})</td></tr>{{end}}
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Red presses</th><td id="red-presses">{{.Counts.RedPresses}}</td></tr>
<tr><th>Blue presses</th><td id="blue-presses">{{.Counts.BluePresses}}</td></tr>
<tr><th>Commands OK</th><td>{{.Counts.CommandsOK}}</td></tr>
<tr><th>Commands failed</th><td>{{.Counts.CommandsFailed}}</td></tr>
<tr><th>Busy drops</th><td>{{.Counts.BusyDrops}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot ID</th><td>{{.BootID}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Dispatch</th><td>{{if .Config.Async}}async{{else}}inline{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function text(id, v) {
    var el = document.getElementById(id);
    if (el) el.textContent = v;
  }
  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        text("group", (s.group + 1) + " / " + s.config.groups);
        var auto = document.getElementById("auto");
        auto.textContent = s.auto_switch.enabled ? "ON" : "OFF";
        auto.className = s.auto_switch.enabled ? "on" : "off";
        text("interval", s.auto_switch.interval);
        text("reachable", s.remote.reachable ? "yes" : "no");
        text("red-presses", s.counts.red_presses);
        text("blue-presses", s.counts.blue_presses);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
