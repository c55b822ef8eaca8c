// Package metrics exposes prometheus collectors for presses and commands.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/zero-buttons/internal/logic"
)

const namespace = "zerobuttons"

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Presses         *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	BusyDrops       *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	GroupCursor     prometheus.Gauge
	AutoSwitch      prometheus.Gauge
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Presses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presses_total",
			Help:      "Rising edges detected per button.",
		}, []string{"button"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands sent to the controller server by outcome.",
		}, []string{"command", "outcome"}),
		BusyDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "busy_drops_total",
			Help:      "Presses ignored because a command for the same button was in flight.",
		}, []string{"button"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Round-trip time of commands to the controller server.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"command"}),
		GroupCursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "group_cursor",
			Help:      "Last group index confirmed by the server.",
		}),
		AutoSwitch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auto_switch_enabled",
			Help:      "1 if auto-switch was last confirmed enabled.",
		}),
	}

	m.registry.MustRegister(
		m.Presses,
		m.Commands,
		m.BusyDrops,
		m.CommandDuration,
		m.GroupCursor,
		m.AutoSwitch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Press counts a rising edge.
func (m *Metrics) Press(b logic.Button) {
	m.Presses.WithLabelValues(b.String()).Inc()
}

// Busy counts a dropped press.
func (m *Metrics) Busy(b logic.Button) {
	m.BusyDrops.WithLabelValues(b.String()).Inc()
}

// Command records one command outcome and its duration.
func (m *Metrics) Command(command, outcome string, elapsed time.Duration) {
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// State publishes the confirmed cursor and auto-switch state.
func (m *Metrics) State(cursor int, auto logic.AutoSwitch) {
	m.GroupCursor.Set(float64(cursor))
	if auto.Enabled {
		m.AutoSwitch.Set(1)
	} else {
		m.AutoSwitch.Set(0)
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
