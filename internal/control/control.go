// Package control runs the poll loop: it samples the buttons, detects
// presses, drives the LEDs and sends commands to the controller server.
//
// All confirmed state (group cursor, auto-switch, counts) is owned by the
// goroutine calling Poll or Run. In async mode commands run on worker
// goroutines that report back over a channel; they never touch state.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/zero-buttons/internal/actuator"
	"github.com/sweeney/zero-buttons/internal/gpio"
	"github.com/sweeney/zero-buttons/internal/logic"
	"github.com/sweeney/zero-buttons/internal/metrics"
	"github.com/sweeney/zero-buttons/internal/mqtt"
	"github.com/sweeney/zero-buttons/internal/remote"
	"github.com/sweeney/zero-buttons/internal/status"
)

// Config wires a Controller. Publisher, Tracker and Metrics are optional.
type Config struct {
	Device    gpio.Device
	Commander remote.Commander
	Publisher mqtt.Publisher
	Tracker   *status.Tracker
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// Async runs each command on its own goroutine. When false, a red press
	// blocks polling for Pattern.Duration() plus one request timeout.
	Async     bool
	Pattern   actuator.Pattern
	NumGroups int
	Interval  int           // initial auto-switch interval
	Heartbeat time.Duration // 0 disables

	Now func() time.Time
}

// result is what a command job reports back to the poll goroutine.
type result struct {
	button  logic.Button
	command string
	group   int              // red: index confirmed by the server
	auto    logic.AutoSwitch // blue: state confirmed by the server
	err     error            // command failure, recoverable
	hwErr   error            // LED write failure, fatal
	at      time.Time
	elapsed time.Duration
}

// Controller owns the remote's state. It is not safe for concurrent use:
// Poll, Run and the accessors must be called from one goroutine.
type Controller struct {
	dev  gpio.Device
	cmd  remote.Commander
	act  *actuator.Actuator
	pub  mqtt.Publisher
	tr   *status.Tracker
	m    *metrics.Metrics
	log  *zap.Logger
	now  func() time.Time
	opts Config

	red    logic.EdgeDetector
	blue   logic.EdgeDetector
	cursor logic.GroupCursor
	auto   logic.AutoSwitch
	counts logic.Counts

	inflight [2]bool
	results  chan result
	jobs     sync.WaitGroup

	lastBeat time.Time
}

// New creates a Controller at group 0 with auto-switch disabled.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = mqtt.NopPublisher{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Controller{
		dev:     cfg.Device,
		cmd:     cfg.Commander,
		act:     actuator.New(cfg.Device),
		pub:     cfg.Publisher,
		tr:      cfg.Tracker,
		m:       cfg.Metrics,
		log:     cfg.Logger.Named("control"),
		now:     cfg.Now,
		opts:    cfg,
		cursor:  logic.NewGroupCursor(cfg.NumGroups),
		auto:    logic.AutoSwitch{Interval: cfg.Interval},
		results: make(chan result, 2), // one per button
	}
	c.lastBeat = c.now()
	return c
}

// Cursor returns the last confirmed group index.
func (c *Controller) Cursor() int { return c.cursor.Index() }

// AutoSwitch returns the last confirmed auto-switch state.
func (c *Controller) AutoSwitch() logic.AutoSwitch { return c.auto }

// Counts returns press and command counters.
func (c *Controller) Counts() logic.Counts { return c.counts }

// Sync reads the server's state once and adopts it, reporting whether it
// did. On failure the defaults are kept and a warning is logged. Either way
// the blue LED is set to match; only an LED write error is returned.
func (c *Controller) Sync(ctx context.Context) (bool, error) {
	start := c.now()
	st, err := c.cmd.Status(ctx)
	c.observe(remote.CommandStatus, c.now().Sub(start), err)

	if err == nil && !c.cursor.Confirm(st.ActiveGroup) {
		err = fmt.Errorf("sync: active group %d out of range [0,%d)", st.ActiveGroup, c.cursor.NumGroups())
	}
	synced := err == nil
	if synced {
		c.auto.Enabled = st.IsAutoSwitching
		if st.SwitchInterval > 0 {
			c.auto.Interval = st.SwitchInterval
		}
		c.log.Info("synced with server",
			zap.Int("group", c.cursor.Index()),
			zap.Bool("auto_switch", c.auto.Enabled),
			zap.Int("interval", c.auto.Interval))
	} else {
		c.log.Warn("sync failed, using defaults", zap.Error(err))
	}

	if c.tr != nil {
		c.tr.SetSynced(synced)
	}
	c.publishState()
	if err := c.act.Set(logic.LEDBlue, c.auto.Enabled); err != nil {
		return synced, fmt.Errorf("sync: %w", err)
	}
	return synced, nil
}

// Run polls on every tick until ctx is cancelled, then cancels in-flight
// commands and waits for them. It returns nil on cancellation and an error
// if the hardware fails.
func (c *Controller) Run(ctx context.Context, tick <-chan time.Time) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer c.shutdown(cancel)

	c.publishState()
	for {
		select {
		case <-ctx.Done():
			return nil
		case r := <-c.results:
			if err := c.apply(r); err != nil {
				return err
			}
		case <-tick:
			if err := c.Poll(jobCtx); err != nil {
				return err
			}
			c.checkHeartbeat(c.now())
		}
	}
}

func (c *Controller) shutdown(cancel context.CancelFunc) {
	cancel()
	c.jobs.Wait()
	for {
		select {
		case r := <-c.results:
			c.log.Debug("discarding result after shutdown",
				zap.String("command", r.command), zap.Error(r.err))
		default:
			return
		}
	}
}

// Poll runs one cycle: apply finished commands, sample both buttons and
// act on rising edges. A read or LED write error is returned and fatal.
func (c *Controller) Poll(ctx context.Context) error {
	if err := c.drain(); err != nil {
		return err
	}

	red, err := c.dev.Read(logic.ButtonRed)
	if err != nil {
		return fmt.Errorf("read %s: %w", logic.ButtonRed, err)
	}
	blue, err := c.dev.Read(logic.ButtonBlue)
	if err != nil {
		return fmt.Errorf("read %s: %w", logic.ButtonBlue, err)
	}
	if c.tr != nil {
		c.tr.SetButtons(red, blue)
	}

	if c.red.Process(red) == logic.EdgeRising {
		if err := c.press(ctx, logic.ButtonRed); err != nil {
			return err
		}
	}
	if c.blue.Process(blue) == logic.EdgeRising {
		if err := c.press(ctx, logic.ButtonBlue); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) drain() error {
	for {
		select {
		case r := <-c.results:
			if err := c.apply(r); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Controller) press(ctx context.Context, b logic.Button) error {
	if b == logic.ButtonRed {
		c.counts.RedPresses++
	} else {
		c.counts.BluePresses++
	}
	if c.m != nil {
		c.m.Press(b)
	}

	if !c.opts.Async {
		c.log.Debug("press", zap.Stringer("button", b))
		return c.apply(c.exec(ctx, b, c.cursor.Index(), c.auto))
	}

	if c.inflight[b] {
		c.counts.BusyDrops++
		if c.m != nil {
			c.m.Busy(b)
		}
		c.log.Debug("press dropped, command in flight", zap.Stringer("button", b))
		c.publishState()
		return nil
	}

	c.inflight[b] = true
	c.log.Debug("press", zap.Stringer("button", b))
	group, auto := c.cursor.Index(), c.auto
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		c.results <- c.exec(ctx, b, group, auto)
	}()
	c.publishState()
	return nil
}

// exec performs the actuation and command for one press. It reads only its
// arguments, so it is safe to run off the poll goroutine.
func (c *Controller) exec(ctx context.Context, b logic.Button, group int, auto logic.AutoSwitch) result {
	r := result{button: b, group: group, auto: auto}

	switch b {
	case logic.ButtonRed:
		r.command = remote.CommandSwitch
		if err := c.act.Blink(ctx, logic.LEDRed, c.opts.Pattern); err != nil {
			if ctx.Err() != nil {
				r.err = &remote.Error{Op: r.command, Kind: remote.KindCanceled, Err: err}
			} else {
				r.hwErr = err
			}
			r.at = c.now()
			return r
		}
		start := c.now()
		r.group, r.err = c.cmd.AdvanceGroup(ctx, group)
		r.at = c.now()
		r.elapsed = r.at.Sub(start)

	case logic.ButtonBlue:
		r.command = remote.CommandAutoSwitch
		start := c.now()
		r.auto, r.err = c.cmd.SetAutoSwitch(ctx, auto, auto.Toggled().Enabled)
		r.at = c.now()
		r.elapsed = r.at.Sub(start)
	}
	return r
}

// apply commits a finished command to state, LEDs and telemetry.
func (c *Controller) apply(r result) error {
	c.inflight[r.button] = false
	if r.hwErr != nil {
		return r.hwErr
	}
	if k, ok := remote.KindOf(r.err); ok && k == remote.KindCanceled {
		c.log.Debug("command abandoned",
			zap.String("command", r.command), zap.Stringer("button", r.button))
		c.publishState()
		return nil
	}

	c.observe(r.command, r.elapsed, r.err)
	if c.tr != nil {
		kind := ""
		if r.err != nil {
			kind = remote.Outcome(r.err)
		}
		c.tr.RecordCommand(r.at, r.command, reachable(r.err), kind, r.err)
	}

	event := logic.Event{Timestamp: r.at, Button: r.button}
	if r.err != nil {
		c.counts.CommandsFailed++
		c.log.Warn("command failed", failureFields(r)...)
		event.Err = r.err.Error()
		if r.button == logic.ButtonRed {
			event.Type = logic.EventGroupSwitchFailed
		} else {
			event.Type = logic.EventAutoSwitchFailed
		}
	} else {
		c.counts.CommandsOK++
		switch r.button {
		case logic.ButtonRed:
			if !c.cursor.Confirm(r.group) {
				return fmt.Errorf("switch: server confirmed group %d out of range", r.group)
			}
			event.Type = logic.EventGroupSwitched
			c.log.Info("group switched", zap.Int("group", r.group))
		case logic.ButtonBlue:
			c.auto = r.auto
			if err := c.act.Set(logic.LEDBlue, c.auto.Enabled); err != nil {
				return err
			}
			event.Type = logic.EventAutoSwitchOff
			if c.auto.Enabled {
				event.Type = logic.EventAutoSwitchOn
			}
			c.log.Info("auto-switch set",
				zap.Bool("enabled", c.auto.Enabled), zap.Int("interval", c.auto.Interval))
		}
	}

	event.Group = c.cursor.Index()
	event.AutoSwitch = c.auto
	if err := c.pub.Publish(event); err != nil {
		c.log.Warn("publish event", zap.String("event", string(event.Type)), zap.Error(err))
	}
	c.publishState()
	return nil
}

func (c *Controller) observe(command string, elapsed time.Duration, err error) {
	if c.m != nil {
		c.m.Command(command, remote.Outcome(err), elapsed)
	}
}

func (c *Controller) publishState() {
	if c.tr != nil {
		c.tr.SetState(c.cursor.Index(), c.auto, c.counts)
	}
	if c.m != nil {
		c.m.State(c.cursor.Index(), c.auto)
	}
}

func (c *Controller) checkHeartbeat(t time.Time) {
	if c.opts.Heartbeat <= 0 || t.Sub(c.lastBeat) < c.opts.Heartbeat {
		return
	}
	c.lastBeat = t
	c.log.Info("heartbeat",
		zap.Int("group", c.cursor.Index()),
		zap.Bool("auto_switch", c.auto.Enabled),
		zap.Int("red_presses", c.counts.RedPresses),
		zap.Int("blue_presses", c.counts.BluePresses),
		zap.Int("commands_failed", c.counts.CommandsFailed))

	event := mqtt.SystemEvent{Timestamp: t, Event: mqtt.EventHeartbeat}
	if c.tr != nil {
		if cs, ok := c.pub.(mqtt.ConnectionStatus); ok {
			c.tr.SetMQTTConnected(cs.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(c.tr.Snapshot(), mqtt.EventHeartbeat, "")
	}

	// A QoS 1 publish can wait for the broker; keep it off the poll goroutine.
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		if err := c.pub.PublishSystem(event); err != nil {
			c.log.Warn("heartbeat publish", zap.Error(err))
		}
	}()
}

// reachable reports whether the server answered at all.
func reachable(err error) bool {
	if err == nil {
		return true
	}
	k, ok := remote.KindOf(err)
	return ok && (k == remote.KindStatus || k == remote.KindDecode)
}

func failureFields(r result) []zap.Field {
	fields := []zap.Field{
		zap.String("command", r.command),
		zap.Stringer("button", r.button),
		zap.String("kind", remote.Outcome(r.err)),
		zap.Error(r.err),
	}
	var re *remote.Error
	if errors.As(r.err, &re) && re.Kind == remote.KindStatus {
		fields = append(fields, zap.Int("status", re.StatusCode))
	}
	return fields
}
