// SPDX-License-Identifier: GPL-3.0-only

// Package backlight controls the integrated panel of laptops through the
// kernel backlight class and systemd-logind.
package backlight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/brightness"
	"github.com/shini4i/unblind-daemon/internal/display"
)

const (
	// DefaultSysfsRoot is where the kernel exposes backlight devices.
	DefaultSysfsRoot = "/sys/class/backlight"

	logindService      = "org.freedesktop.login1"
	logindSessionPath  = "/org/freedesktop/login1/session/auto"
	setBrightnessCall  = "org.freedesktop.login1.Session.SetBrightness"
	backlightSubsystem = "backlight"
)

// ErrNoBacklight is returned when no backlight device exists.
var ErrNoBacklight = errors.New("no backlight device found")

// busObject is the part of dbus.BusObject used to reach logind.
type busObject interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Panel is the integrated display. Writes go through logind so the daemon
// does not need write access to sysfs.
type Panel struct {
	root   string
	device string
	maxRaw uint32
	obj    busObject
	conn   *dbus.Conn
}

var _ display.Integrated = (*Panel)(nil)

// Option configures a Panel.
type Option func(*Panel)

// WithSysfsRoot overrides DefaultSysfsRoot.
func WithSysfsRoot(root string) Option {
	return func(p *Panel) {
		p.root = root
	}
}

// WithBusObject replaces the logind session object.
func WithBusObject(obj busObject) Option {
	return func(p *Panel) {
		p.obj = obj
	}
}

// New opens the backlight device. An empty device picks the first one found.
func New(device string, opts ...Option) (*Panel, error) {
	p := &Panel{root: DefaultSysfsRoot, device: device}
	for _, opt := range opts {
		opt(p)
	}

	if p.device == "" {
		found, err := firstDevice(p.root)
		if err != nil {
			return nil, err
		}
		p.device = found
	}

	maxRaw, err := p.readValue("max_brightness")
	if err != nil {
		return nil, err
	}
	if maxRaw == 0 {
		return nil, fmt.Errorf("%w: %s reports zero max_brightness", ErrNoBacklight, p.device)
	}
	p.maxRaw = maxRaw

	if p.obj == nil {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to system bus: %w", err)
		}
		p.conn = conn
		p.obj = conn.Object(logindService, logindSessionPath)
	}

	log.Info().Str("device", p.device).Uint32("max_brightness", p.maxRaw).Msg("Integrated backlight found")
	return p, nil
}

func firstDevice(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoBacklight
		}
		return "", fmt.Errorf("failed to list %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", ErrNoBacklight
	}
	sort.Strings(names)
	return names[0], nil
}

func (p *Panel) readValue(name string) (uint32, error) {
	path := filepath.Join(p.root, p.device, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNoBacklight, path)
		}
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return uint32(v), nil
}

// Device returns the backlight device name, e.g. "intel_backlight".
func (p *Panel) Device() string {
	return p.device
}

// Supported implements display.Integrated.
func (p *Panel) Supported() bool {
	return p.maxRaw > 0 && p.obj != nil
}

// Brightness reads the current level as a percentage.
func (p *Panel) Brightness() (uint32, error) {
	raw, err := p.readValue("brightness")
	if err != nil {
		return 0, err
	}
	return brightness.RawToPercent(raw, p.maxRaw), nil
}

// SetBrightness implements display.Integrated. value is a percentage.
func (p *Panel) SetBrightness(value uint32) error {
	raw := brightness.PercentToRaw(value, p.maxRaw)
	call := p.obj.Call(setBrightnessCall, 0, backlightSubsystem, p.device, raw)
	if call.Err != nil {
		return fmt.Errorf("failed to set backlight brightness: %w", call.Err)
	}
	return nil
}

// Close releases the system bus connection.
func (p *Panel) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
