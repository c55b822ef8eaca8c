// Package config loads daemon configuration from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/zero-buttons/internal/actuator"
	"github.com/sweeney/zero-buttons/internal/gpio"
)

// EnvPrefix is prepended to environment overrides, e.g. ZEROBUTTONS_SERVER_HOST.
const EnvPrefix = "ZEROBUTTONS"

// Config is the full daemon configuration.
type Config struct {
	Server      Server        `mapstructure:"server" yaml:"server"`
	Groups      int           `mapstructure:"groups" yaml:"groups"`
	AutoSwitch  AutoSwitch    `mapstructure:"auto_switch" yaml:"auto_switch"`
	Poll        time.Duration `mapstructure:"poll" yaml:"poll"`
	Blink       Blink         `mapstructure:"blink" yaml:"blink"`
	Pins        Pins          `mapstructure:"pins" yaml:"pins"`
	GPIO        GPIO          `mapstructure:"gpio" yaml:"gpio"`
	Dispatch    Dispatch      `mapstructure:"dispatch" yaml:"dispatch"`
	SyncOnStart bool          `mapstructure:"sync_on_start" yaml:"sync_on_start"`
	Heartbeat   time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
	MQTT        MQTT          `mapstructure:"mqtt" yaml:"mqtt"`
	HTTP        HTTP          `mapstructure:"http" yaml:"http"`
	Log         Log           `mapstructure:"log" yaml:"log"`
}

// Server is the controller server address.
type Server struct {
	Host    string        `mapstructure:"host" yaml:"host"`
	Port    int           `mapstructure:"port" yaml:"port"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AutoSwitch holds the interval sent with every auto-switch command.
type AutoSwitch struct {
	Interval int `mapstructure:"interval" yaml:"interval"`
}

// Blink is the red LED acknowledgement pattern.
type Blink struct {
	Times int           `mapstructure:"times" yaml:"times"`
	On    time.Duration `mapstructure:"on" yaml:"on"`
	Off   time.Duration `mapstructure:"off" yaml:"off"`
}

// Pins are BCM line offsets.
type Pins struct {
	RedButton  int `mapstructure:"red_button" yaml:"red_button"`
	RedLED     int `mapstructure:"red_led" yaml:"red_led"`
	BlueButton int `mapstructure:"blue_button" yaml:"blue_button"`
	BlueLED    int `mapstructure:"blue_led" yaml:"blue_led"`
}

// GPIO selects the character device.
type GPIO struct {
	Chip string `mapstructure:"chip" yaml:"chip"`
}

// Dispatch controls whether commands run off the poll goroutine.
type Dispatch struct {
	Async bool `mapstructure:"async" yaml:"async"`
}

// MQTT configures telemetry. An empty broker disables it.
type MQTT struct {
	Broker string `mapstructure:"broker" yaml:"broker"`
	Topic  string `mapstructure:"topic" yaml:"topic"`
}

// HTTP configures the status server. An empty addr disables it.
type HTTP struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Log configures zap.
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.timeout", 2*time.Second)
	v.SetDefault("groups", 4)
	v.SetDefault("auto_switch.interval", 4)
	v.SetDefault("poll", 10*time.Millisecond)
	v.SetDefault("blink.times", actuator.DefaultPattern.Times)
	v.SetDefault("blink.on", actuator.DefaultPattern.On)
	v.SetDefault("blink.off", actuator.DefaultPattern.Off)
	pins := gpio.DefaultPins()
	v.SetDefault("pins.red_button", pins.RedButton)
	v.SetDefault("pins.red_led", pins.RedLED)
	v.SetDefault("pins.blue_button", pins.BlueButton)
	v.SetDefault("pins.blue_led", pins.BlueLED)
	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("dispatch.async", true)
	v.SetDefault("sync_on_start", true)
	v.SetDefault("heartbeat", 15*time.Minute)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "x32/zero-buttons")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
}

// New returns a viper instance with defaults, env overrides and the config
// file search path set. If file is non-empty only that file is read.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/zero-buttons")
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the config file (a missing file in the search path is fine),
// unmarshals and validates.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the control loop cannot run with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Host) == "" {
		errs = append(errs, errors.New("server.host must not be empty"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	if c.Groups < 1 {
		errs = append(errs, fmt.Errorf("groups must be at least 1, got %d", c.Groups))
	}
	if c.AutoSwitch.Interval < 1 {
		errs = append(errs, fmt.Errorf("auto_switch.interval must be at least 1, got %d", c.AutoSwitch.Interval))
	}
	if c.Poll <= 0 {
		errs = append(errs, errors.New("poll must be positive"))
	}
	if c.Blink.Times < 0 || c.Blink.On < 0 || c.Blink.Off < 0 {
		errs = append(errs, errors.New("blink values must not be negative"))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}

	pins := []struct {
		name string
		pin  int
	}{
		{"red_button", c.Pins.RedButton},
		{"red_led", c.Pins.RedLED},
		{"blue_button", c.Pins.BlueButton},
		{"blue_led", c.Pins.BlueLED},
	}
	seen := map[int]string{}
	for _, p := range pins {
		if p.pin < 0 {
			errs = append(errs, fmt.Errorf("pins.%s must not be negative", p.name))
			continue
		}
		if other, ok := seen[p.pin]; ok {
			errs = append(errs, fmt.Errorf("pins.%s and pins.%s share pin %d", p.name, other, p.pin))
		}
		seen[p.pin] = p.name
	}

	return errors.Join(errs...)
}

// GPIOPins converts the pin section for the gpio package.
func (c Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		RedButton:  c.Pins.RedButton,
		RedLED:     c.Pins.RedLED,
		BlueButton: c.Pins.BlueButton,
		BlueLED:    c.Pins.BlueLED,
	}
}

// BlinkPattern converts the blink section for the actuator package.
func (c Config) BlinkPattern() actuator.Pattern {
	return actuator.Pattern{Times: c.Blink.Times, On: c.Blink.On, Off: c.Blink.Off}
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
