// Command zero-buttons reads two push-buttons on a Raspberry Pi and turns
// presses into commands for the X32 controller server: red advances the
// active group, blue toggles auto-switching.
//
// Usage:
//
//	zero-buttons [flags]
//	zero-buttons state
//	zero-buttons config
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/zero-buttons/internal/config"
	"github.com/sweeney/zero-buttons/internal/control"
	"github.com/sweeney/zero-buttons/internal/gpio"
	"github.com/sweeney/zero-buttons/internal/logging"
	"github.com/sweeney/zero-buttons/internal/logic"
	"github.com/sweeney/zero-buttons/internal/metrics"
	"github.com/sweeney/zero-buttons/internal/mqtt"
	"github.com/sweeney/zero-buttons/internal/remote"
	"github.com/sweeney/zero-buttons/internal/status"
	"github.com/sweeney/zero-buttons/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"server-host": "server.host",
	"server-port": "server.port",
	"timeout":     "server.timeout",
	"groups":      "groups",
	"interval":    "auto_switch.interval",
	"poll":        "poll",
	"async":       "dispatch.async",
	"sync":        "sync_on_start",
	"heartbeat":   "heartbeat",
	"broker":      "mqtt.broker",
	"topic":       "mqtt.topic",
	"http":        "http.addr",
	"chip":        "gpio.chip",
	"log-level":   "log.level",
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		cfg     config.Config
	)

	root := &cobra.Command{
		Use:           "zero-buttons",
		Short:         "Two-button remote for the X32 controller server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := config.New(cfgFile)
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			var err error
			cfg, err = config.Load(v)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer log.Sync()
			return run(cfg, log)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default /etc/zero-buttons/config.yaml or ./config.yaml)")
	pf.String("server-host", "localhost", "Controller server host")
	pf.Int("server-port", 3001, "Controller server port")
	pf.Duration("timeout", remote.DefaultTimeout, "Per-request timeout")
	pf.Int("groups", 4, "Number of groups on the server")
	pf.Int("interval", 4, "Auto-switch interval sent with every toggle")
	pf.Duration("poll", 10*time.Millisecond, "Button polling interval")
	pf.Bool("async", true, "Run commands off the poll loop")
	pf.Bool("sync", true, "Read the server state at startup")
	pf.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pf.String("broker", "", "MQTT broker address (empty to disable telemetry)")
	pf.String("topic", mqtt.DefaultTopic, "MQTT topic prefix")
	pf.String("http", ":8080", "HTTP status address (empty to disable)")
	pf.String("chip", "gpiochip0", "GPIO character device")
	pf.String("log-level", logging.InfoLevel, "Log level (debug, info, warn, error)")

	root.AddCommand(newStateCmd(&cfg), newConfigCmd(&cfg))
	return root
}

// bindFlags binds only flags the user set, so file and env values are not
// shadowed by flag defaults.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func newStateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current button levels and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := gpio.NewRealDevice(cfg.GPIO.Chip, cfg.GPIOPins())
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer dev.Close()
			return printState(cmd.OutOrStdout(), dev)
		},
	}
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func printState(w io.Writer, dev gpio.Device) error {
	red, err := dev.Read(logic.ButtonRed)
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	blue, err := dev.Read(logic.ButtonBlue)
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Fprintf(w, "red: %s, blue: %s\n", pressedString(red), pressedString(blue))
	return nil
}

func run(cfg config.Config, log *zap.Logger) error {
	dev, err := gpio.NewRealDevice(cfg.GPIO.Chip, cfg.GPIOPins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("release gpio", zap.Error(err))
		}
	}()

	ctx, sigCh, stopSignals := watchSignals()
	defer stopSignals()

	client := remote.NewHTTPClient(remote.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		Timeout:   cfg.Server.Timeout,
		NumGroups: cfg.Groups,
		UserAgent: "zero-buttons/" + version,
	})

	tracker := status.NewTracker(time.Now(), uuid.NewString(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Server:      client.BaseURL(),
		Groups:      cfg.Groups,
		Async:       cfg.Dispatch.Async,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	m := metrics.New()

	publisher, err := newPublisher(cfg, tracker, log)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	ctrl := control.New(control.Config{
		Device:    dev,
		Commander: client,
		Publisher: publisher,
		Tracker:   tracker,
		Metrics:   m,
		Logger:    log,
		Async:     cfg.Dispatch.Async,
		Pattern:   cfg.BlinkPattern(),
		NumGroups: cfg.Groups,
		Interval:  cfg.AutoSwitch.Interval,
		Heartbeat: cfg.Heartbeat,
	})

	if cfg.SyncOnStart {
		syncCtx, cancel := context.WithTimeout(ctx, cfg.Server.Timeout)
		_, err := ctrl.Sync(syncCtx)
		cancel()
		if err != nil {
			return err
		}
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warn("publish startup event", zap.Error(err))
	}

	if cfg.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("listen http: %w", err)
		}
		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler(), log)
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	log.Info("started",
		zap.String("version", version),
		zap.String("server", client.BaseURL()),
		zap.Int("groups", cfg.Groups),
		zap.Duration("poll", cfg.Poll),
		zap.Bool("async", cfg.Dispatch.Async),
		zap.String("broker", cfg.MQTT.Broker))

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	return runLoop(ctrl, publisher, tracker, log, ticker.C, sigCh)
}

// watchSignals registers for SIGINT and SIGTERM. The context is cancelled
// by the first signal; the channel also receives it so runLoop can name it.
func watchSignals() (context.Context, <-chan os.Signal, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx, sigCh, func() {
		stop()
		signal.Stop(sigCh)
	}
}

func newPublisher(cfg config.Config, tracker *status.Tracker, log *zap.Logger) (mqtt.Publisher, error) {
	if cfg.MQTT.Broker == "" {
		log.Info("mqtt disabled")
		return mqtt.NopPublisher{}, nil
	}
	return mqtt.NewRealPublisher(mqtt.Options{
		Broker:             cfg.MQTT.Broker,
		Topic:              cfg.MQTT.Topic,
		ClientID:           "zero-buttons",
		Logger:             log,
		OnConnectionChange: tracker.SetMQTTConnected,
	})
}

// runLoop runs the controller until a signal arrives or the hardware fails,
// then publishes the shutdown event.
func runLoop(ctrl *control.Controller, publisher mqtt.Publisher, tracker *status.Tracker, log *zap.Logger, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx, tick) }()

	var (
		reason string
		err    error
	)
	select {
	case s := <-sig:
		reason = signalName(s)
		log.Info("shutting down", zap.String("signal", reason))
		cancel()
		err = <-done
	case err = <-done:
		reason = "ERROR"
		log.Error("control loop stopped", zap.Error(err))
	}

	event := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     mqtt.EventShutdown,
		Reason:    reason,
		Retained:  true,
	}
	if tracker != nil {
		if cs, ok := publisher.(mqtt.ConnectionStatus); ok {
			tracker.SetMQTTConnected(cs.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventShutdown, reason)
	}
	if perr := publisher.PublishSystem(event); perr != nil {
		log.Warn("publish shutdown event", zap.Error(perr))
	}
	return err
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func pressedString(pressed bool) string {
	if pressed {
		return "pressed"
	}
	return "released"
}
