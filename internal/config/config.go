// SPDX-License-Identifier: GPL-3.0-only

// Package config loads the daemon configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shini4i/unblind-daemon/internal/schedule"
)

// Config represents the application configuration.
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Database        DatabaseConfig `yaml:"database"`
	Schedule        ScheduleConfig `yaml:"schedule"`
	Location        LocationConfig `yaml:"location"`
	Backends        BackendsConfig `yaml:"backends"`
	DBus            DBusConfig     `yaml:"dbus"`
	Udev            UdevConfig     `yaml:"udev"`
	Metrics         MetricsConfig  `yaml:"metrics"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DatabaseConfig points at the settings database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScheduleConfig holds first-run schedule values. Settings already stored
// in the database take precedence.
type ScheduleConfig struct {
	DaytimeStart      ClockTime `yaml:"daytime_start"`
	NighttimeStart    ClockTime `yaml:"nighttime_start"`
	DayBrightness     uint32    `yaml:"day_brightness"`
	NightBrightness   uint32    `yaml:"night_brightness"`
	DayToNight        Duration  `yaml:"day_to_night"`
	NightToDay        Duration  `yaml:"night_to_day"`
	InitialBrightness uint32    `yaml:"initial_brightness"`
}

// LocationConfig enables sunrise/sunset driven start times.
type LocationConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Latitude       string   `yaml:"latitude"`
	Longitude      string   `yaml:"longitude"`
	UpdateInterval Duration `yaml:"update_interval"`
}

// BackendsConfig selects display drivers.
type BackendsConfig struct {
	HID       HIDConfig       `yaml:"hid"`
	DDCUtil   DDCUtilConfig   `yaml:"ddcutil"`
	Backlight BacklightConfig `yaml:"backlight"`
}

// HIDConfig configures the Apple Studio Display driver.
type HIDConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DDCUtilConfig configures the DDC/CI driver.
type DDCUtilConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Path      string   `yaml:"path"`
	Timeout   Duration `yaml:"timeout"`
	ExtraArgs []string `yaml:"extra_args"`
}

// BacklightConfig configures the integrated panel.
type BacklightConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Device    string `yaml:"device"` // empty picks the first device
	SysfsRoot string `yaml:"sysfs_root"`
}

// DBusConfig configures the D-Bus service.
type DBusConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Bus          string  `yaml:"bus"` // "session" or "system"
	PreviewRate  float64 `yaml:"preview_rate"`
	PreviewBurst int     `yaml:"preview_burst"`
}

// UdevConfig configures hot-plug handling.
type UdevConfig struct {
	Enabled        bool     `yaml:"enabled"`
	SettleDelay    Duration `yaml:"settle_delay"`
	RefreshRetries int      `yaml:"refresh_retries"`
	RetryBackoff   Duration `yaml:"retry_backoff"`
}

// MetricsConfig contains metrics sinks.
type MetricsConfig struct {
	Statsd   StatsdConfig   `yaml:"statsd"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// StatsdConfig configures the DogStatsD sink.
type StatsdConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Prefix  string `yaml:"prefix"`
}

// InfluxDBConfig configures the InfluxDB v2 sink.
type InfluxDBConfig struct {
	Enabled       bool     `yaml:"enabled"`
	URL           string   `yaml:"url"`
	Token         string   `yaml:"token"`
	Org           string   `yaml:"org"`
	Bucket        string   `yaml:"bucket"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// MQTTConfig configures retained state publishing.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Duration is a time.Duration decoded from strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ClockTime is a time of day written as "HH:MM" or "HH:MM:SS".
type ClockTime time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for ClockTime.
func (c *ClockTime) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*c = ClockTime(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for ClockTime.
func (c ClockTime) MarshalYAML() (interface{}, error) {
	return schedule.FormatTimeOfDay(time.Duration(c)), nil
}

// Offset returns the time of day as an offset from midnight.
func (c ClockTime) Offset() time.Duration {
	return time.Duration(c)
}

// ScheduleDefaults converts the schedule section for the scheduler.
func (s ScheduleConfig) ScheduleDefaults() schedule.Config {
	return schedule.Config{
		DaytimeStart:    s.DaytimeStart.Offset(),
		NighttimeStart:  s.NighttimeStart.Offset(),
		DayBrightness:   s.DayBrightness,
		NightBrightness: s.NightBrightness,
		DayToNight:      s.DayToNight.Duration(),
		NightToDay:      s.NightToDay.Duration(),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/unblind/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "unblind", "config.yaml")
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "unblind.sqlite"
	}
	return filepath.Join(dir, "unblind", "settings.sqlite")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	sched := schedule.DefaultConfig()
	return &Config{
		Log:      LogConfig{Level: "info"},
		Database: DatabaseConfig{Path: defaultDatabasePath()},
		Schedule: ScheduleConfig{
			DaytimeStart:      ClockTime(sched.DaytimeStart),
			NighttimeStart:    ClockTime(sched.NighttimeStart),
			DayBrightness:     sched.DayBrightness,
			NightBrightness:   sched.NightBrightness,
			DayToNight:        Duration(sched.DayToNight),
			NightToDay:        Duration(sched.NightToDay),
			InitialBrightness: sched.DayBrightness,
		},
		Location: LocationConfig{UpdateInterval: Duration(time.Hour)},
		Backends: BackendsConfig{
			HID:       HIDConfig{Enabled: true},
			DDCUtil:   DDCUtilConfig{Enabled: true, Path: "ddcutil", Timeout: Duration(5 * time.Second)},
			Backlight: BacklightConfig{Enabled: true},
		},
		DBus: DBusConfig{Enabled: true, Bus: "session", PreviewRate: 20, PreviewBurst: 5},
		Udev: UdevConfig{
			Enabled:        true,
			SettleDelay:    Duration(500 * time.Millisecond),
			RefreshRetries: 3,
			RetryBackoff:   Duration(500 * time.Millisecond),
		},
		Metrics: MetricsConfig{
			Statsd:   StatsdConfig{Address: "127.0.0.1:8125", Prefix: "unblind."},
			InfluxDB: InfluxDBConfig{Bucket: "unblind", FlushInterval: Duration(10 * time.Second)},
		},
		MQTT:            MQTTConfig{Broker: "tcp://127.0.0.1:1883", TopicPrefix: "unblind"},
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Load reads and parses the configuration file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, returning Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// applyDefaults fills values an explicit empty entry in the file cleared.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Location.UpdateInterval <= 0 {
		c.Location.UpdateInterval = def.Location.UpdateInterval
	}
	if c.Backends.DDCUtil.Path == "" {
		c.Backends.DDCUtil.Path = def.Backends.DDCUtil.Path
	}
	if c.Backends.DDCUtil.Timeout <= 0 {
		c.Backends.DDCUtil.Timeout = def.Backends.DDCUtil.Timeout
	}
	if c.DBus.Bus == "" {
		c.DBus.Bus = def.DBus.Bus
	}
	if c.DBus.PreviewRate <= 0 {
		c.DBus.PreviewRate = def.DBus.PreviewRate
	}
	if c.DBus.PreviewBurst <= 0 {
		c.DBus.PreviewBurst = def.DBus.PreviewBurst
	}
	if c.Udev.RefreshRetries <= 0 {
		c.Udev.RefreshRetries = def.Udev.RefreshRetries
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
}

// Validate checks values that would otherwise fail deep inside startup.
func (c *Config) Validate() error {
	if err := c.Schedule.ScheduleDefaults().Validate(); err != nil {
		return fmt.Errorf("invalid schedule section: %w", err)
	}
	if c.Schedule.InitialBrightness > schedule.MaxBrightness {
		return fmt.Errorf("invalid schedule section: %w", schedule.ErrInvalidBrightness)
	}
	if c.DBus.Bus != "session" && c.DBus.Bus != "system" {
		return fmt.Errorf("invalid dbus.bus %q: must be session or system", c.DBus.Bus)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt.qos %d", c.MQTT.QoS)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands ${VAR} and ${VAR:default}.
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
}
