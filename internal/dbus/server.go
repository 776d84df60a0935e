// SPDX-License-Identifier: GPL-3.0-only

// Package dbus exposes the brightness scheduler on D-Bus.
package dbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
	"github.com/shini4i/unblind-daemon/internal/settings"
)

// ErrRateLimitExceeded is returned when preview requests exceed the rate limit.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

const (
	defaultRateLimit = 20
	defaultBurst     = 5
)

const (
	// ServiceName is the D-Bus service name.
	ServiceName = "io.github.shini4i.Unblind"

	// ObjectPath is the D-Bus object path.
	ObjectPath = "/io/github/shini4i/Unblind"

	// InterfaceName is the D-Bus interface name.
	InterfaceName = "io.github.shini4i.Unblind"
)

// IntrospectXML is the D-Bus introspection XML for the service.
const IntrospectXML = `
<node name="` + ObjectPath + `">
  <interface name="` + InterfaceName + `">
    <method name="ListDisplays">
      <arg name="displays" type="a(ussb)" direction="out"/>
    </method>
    <method name="GetBrightness">
      <arg name="brightness" type="u" direction="out"/>
    </method>
    <method name="PreviewBrightness">
      <arg name="brightness" type="u" direction="in"/>
    </method>
    <method name="GetStatus">
      <arg name="status" type="s" direction="out"/>
    </method>
    <method name="GetPeriod">
      <arg name="period" type="s" direction="out"/>
    </method>
    <method name="TimeToNextPeriod">
      <arg name="milliseconds" type="t" direction="out"/>
    </method>
    <method name="GetSchedule">
      <arg name="schedule" type="(ssuudd)" direction="out"/>
    </method>
    <method name="SetDaytimeStart">
      <arg name="time" type="s" direction="in"/>
    </method>
    <method name="SetNighttimeStart">
      <arg name="time" type="s" direction="in"/>
    </method>
    <method name="SetDayBrightness">
      <arg name="brightness" type="u" direction="in"/>
    </method>
    <method name="SetNightBrightness">
      <arg name="brightness" type="u" direction="in"/>
    </method>
    <method name="SetDayToNightTransition">
      <arg name="minutes" type="d" direction="in"/>
    </method>
    <method name="SetNightToDayTransition">
      <arg name="minutes" type="d" direction="in"/>
    </method>
    <method name="GetLocation">
      <arg name="enabled" type="b" direction="out"/>
      <arg name="latitude" type="s" direction="out"/>
      <arg name="longitude" type="s" direction="out"/>
    </method>
    <method name="SetLocation">
      <arg name="latitude" type="s" direction="in"/>
      <arg name="longitude" type="s" direction="in"/>
    </method>
    <method name="SetLocationEnabled">
      <arg name="enabled" type="b" direction="in"/>
    </method>
    <method name="RefreshDisplays"/>
    <signal name="BrightnessChanged">
      <arg name="brightness" type="u"/>
      <arg name="delta" type="i"/>
    </signal>
    <signal name="ScheduledChange">
      <arg name="target" type="u"/>
      <arg name="remainingMs" type="t"/>
    </signal>
    <signal name="PeriodChanged">
      <arg name="period" type="s"/>
    </signal>
    <signal name="DisplaysRefreshed">
      <arg name="count" type="u"/>
      <arg name="added" type="as"/>
      <arg name="removed" type="as"/>
    </signal>
  </interface>
  ` + introspect.IntrospectDataString + `
</node>
`

// Daemon is the engine surface the service exposes.
type Daemon interface {
	Displays() []*display.Display
	Brightness() uint32
	PreviewBrightness(value uint32) error
	DimmerStatus() dimmer.Status
	Period() schedule.Period
	TimeToNextPeriod() time.Duration
	Schedule() schedule.Config
	SetDaytimeStart(d time.Duration) error
	SetNighttimeStart(d time.Duration) error
	SetDayBrightness(v uint32) error
	SetNightBrightness(v uint32) error
	SetDayToNightTransition(d time.Duration) error
	SetNightToDayTransition(d time.Duration) error
	Location() settings.Location
	SetLocation(latitude, longitude string) error
	SetLocationEnabled(enabled bool) error
	RefreshDisplays() error
}

// DisplayInfo serializes to (ussb): id, key, name, brightness support.
type DisplayInfo struct {
	ID                 uint32
	Key                string
	Name               string
	SupportsBrightness bool
}

// ScheduleInfo serializes to (ssuudd).
type ScheduleInfo struct {
	DaytimeStart      string
	NighttimeStart    string
	DayBrightness     uint32
	NightBrightness   uint32
	DayToNightMinutes float64
	NightToDayMinutes float64
}

// Server implements the D-Bus service.
//
// connMu only guards the connection used for signal emission; the daemon
// is responsible for its own synchronization.
type Server struct {
	conn        *dbus.Conn
	connMu      sync.RWMutex
	daemon      Daemon
	rateLimiter *rate.Limiter
	systemBus   bool
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit sets the PreviewBrightness limiter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSystemBus exports the service on the system bus instead of the session bus.
func WithSystemBus() Option {
	return func(s *Server) {
		s.systemBus = true
	}
}

// NewServer creates a new D-Bus server for daemon.
func NewServer(daemon Daemon, opts ...Option) *Server {
	s := &Server{
		daemon:      daemon,
		rateLimiter: rate.NewLimiter(defaultRateLimit, defaultBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects to the bus and exports the service.
func (s *Server) Start() error {
	connect := dbus.ConnectSessionBus
	if s.systemBus {
		connect = dbus.ConnectSystemBus
	}

	conn, err := connect()
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}

	success := false
	defer func() {
		if !success {
			if closeErr := conn.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Failed to close D-Bus connection during cleanup")
			}
		}
	}()

	if err := conn.Export(s, ObjectPath, InterfaceName); err != nil {
		return fmt.Errorf("failed to export server: %w", err)
	}

	if err := conn.Export(introspect.Introspectable(IntrospectXML), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", ServiceName)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	success = true
	log.Info().Str("service", ServiceName).Bool("system_bus", s.systemBus).Msg("D-Bus service started")
	return nil
}

// Stop disconnects from the bus.
func (s *Server) Stop() error {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Subscribe forwards engine events on bus as D-Bus signals.
func (s *Server) Subscribe(bus *events.Bus) {
	for _, t := range []events.Type{
		events.TypeBrightnessChanged,
		events.TypeScheduledChange,
		events.TypePeriodChanged,
		events.TypeDisplaysRefreshed,
	} {
		bus.Subscribe(t, s.Handle)
	}
}

// Handle converts an engine event into a signal.
func (s *Server) Handle(e events.Event) {
	switch ev := e.(type) {
	case dimmer.BrightnessChanged:
		s.emit("BrightnessChanged", ev.Brightness, int32(ev.Delta))
	case schedule.BrightnessChange:
		s.emit("ScheduledChange", ev.Target, uint64(ev.Remaining.Milliseconds()))
	case schedule.PeriodChanged:
		s.emit("PeriodChanged", ev.Period.String())
	case controller.DisplaysRefreshed:
		s.emit("DisplaysRefreshed", uint32(ev.Count), nonNil(ev.Added), nonNil(ev.Removed))
	}
}

// nonNil keeps "as" arguments encodable.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Server) emit(signal string, args ...interface{}) {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil {
		return
	}

	if err := conn.Emit(ObjectPath, InterfaceName+"."+signal, args...); err != nil {
		log.Error().Err(err).Str("signal", signal).Msg("Failed to emit signal")
	}
}

func invalidArgs(method string, err error) *dbus.Error {
	log.Warn().Err(err).Str("method", method).Msg("D-Bus call rejected")
	return dbus.NewError("org.freedesktop.DBus.Error.InvalidArgs", []interface{}{err.Error()})
}

func failed(method string, err error) *dbus.Error {
	log.Warn().Err(err).Str("method", method).Msg("D-Bus call failed")
	return dbus.MakeFailedError(err)
}

// ListDisplays returns the connected displays.
func (s *Server) ListDisplays() ([]DisplayInfo, *dbus.Error) {
	displays := s.daemon.Displays()
	result := make([]DisplayInfo, 0, len(displays))
	for _, d := range displays {
		result = append(result, DisplayInfo{
			ID:                 d.ID,
			Key:                d.Handle.ID(),
			Name:               d.Name(),
			SupportsBrightness: d.SupportsBrightness(),
		})
	}

	log.Debug().Int("count", len(result)).Msg("Listed displays")
	return result, nil
}

// GetBrightness returns the brightness last applied by the dimmer.
func (s *Server) GetBrightness() (uint32, *dbus.Error) {
	return s.daemon.Brightness(), nil
}

// PreviewBrightness applies brightness briefly before the schedule takes over again.
func (s *Server) PreviewBrightness(brightness uint32) *dbus.Error {
	if !s.rateLimiter.Allow() {
		log.Warn().Msg("Rate limit exceeded for PreviewBrightness")
		return dbus.MakeFailedError(ErrRateLimitExceeded)
	}

	brightness = min(brightness, schedule.MaxBrightness)
	if err := s.daemon.PreviewBrightness(brightness); err != nil {
		return failed("PreviewBrightness", err)
	}
	return nil
}

// GetStatus returns "idle", "dimming" or "brightening".
func (s *Server) GetStatus() (string, *dbus.Error) {
	return s.daemon.DimmerStatus().String(), nil
}

// GetPeriod returns "day", "night" or "unknown".
func (s *Server) GetPeriod() (string, *dbus.Error) {
	return s.daemon.Period().String(), nil
}

// TimeToNextPeriod returns milliseconds until the next period boundary.
func (s *Server) TimeToNextPeriod() (uint64, *dbus.Error) {
	d := s.daemon.TimeToNextPeriod()
	if d < 0 {
		d = 0
	}
	return uint64(d.Milliseconds()), nil
}

// GetSchedule returns the schedule configuration.
func (s *Server) GetSchedule() (ScheduleInfo, *dbus.Error) {
	cfg := s.daemon.Schedule()
	return ScheduleInfo{
		DaytimeStart:      schedule.FormatTimeOfDay(cfg.DaytimeStart),
		NighttimeStart:    schedule.FormatTimeOfDay(cfg.NighttimeStart),
		DayBrightness:     cfg.DayBrightness,
		NightBrightness:   cfg.NightBrightness,
		DayToNightMinutes: cfg.DayToNight.Minutes(),
		NightToDayMinutes: cfg.NightToDay.Minutes(),
	}, nil
}

// SetDaytimeStart accepts "HH:MM" or "HH:MM:SS".
func (s *Server) SetDaytimeStart(value string) *dbus.Error {
	d, err := schedule.ParseTimeOfDay(value)
	if err == nil {
		err = s.daemon.SetDaytimeStart(d)
	}
	if err != nil {
		return failed("SetDaytimeStart", err)
	}
	return nil
}

// SetNighttimeStart accepts "HH:MM" or "HH:MM:SS".
func (s *Server) SetNighttimeStart(value string) *dbus.Error {
	d, err := schedule.ParseTimeOfDay(value)
	if err == nil {
		err = s.daemon.SetNighttimeStart(d)
	}
	if err != nil {
		return failed("SetNighttimeStart", err)
	}
	return nil
}

// SetDayBrightness sets the daytime brightness (0-100).
func (s *Server) SetDayBrightness(brightness uint32) *dbus.Error {
	if err := s.daemon.SetDayBrightness(brightness); err != nil {
		return failed("SetDayBrightness", err)
	}
	return nil
}

// SetNightBrightness sets the nighttime brightness (0-100).
func (s *Server) SetNightBrightness(brightness uint32) *dbus.Error {
	if err := s.daemon.SetNightBrightness(brightness); err != nil {
		return failed("SetNightBrightness", err)
	}
	return nil
}

// SetDayToNightTransition sets the evening transition length in minutes.
func (s *Server) SetDayToNightTransition(minutes float64) *dbus.Error {
	d, err := schedule.MinutesToDuration(minutes)
	if err != nil {
		return invalidArgs("SetDayToNightTransition", err)
	}
	if err := s.daemon.SetDayToNightTransition(d); err != nil {
		return failed("SetDayToNightTransition", err)
	}
	return nil
}

// SetNightToDayTransition sets the morning transition length in minutes.
func (s *Server) SetNightToDayTransition(minutes float64) *dbus.Error {
	d, err := schedule.MinutesToDuration(minutes)
	if err != nil {
		return invalidArgs("SetNightToDayTransition", err)
	}
	if err := s.daemon.SetNightToDayTransition(d); err != nil {
		return failed("SetNightToDayTransition", err)
	}
	return nil
}

// GetLocation returns the location mode state.
func (s *Server) GetLocation() (bool, string, string, *dbus.Error) {
	loc := s.daemon.Location()
	return loc.Enabled, loc.Latitude, loc.Longitude, nil
}

// SetLocation stores new coordinates.
func (s *Server) SetLocation(latitude, longitude string) *dbus.Error {
	if err := s.daemon.SetLocation(latitude, longitude); err != nil {
		return failed("SetLocation", err)
	}
	return nil
}

// SetLocationEnabled toggles sunrise/sunset driven start times.
func (s *Server) SetLocationEnabled(enabled bool) *dbus.Error {
	if err := s.daemon.SetLocationEnabled(enabled); err != nil {
		return failed("SetLocationEnabled", err)
	}
	return nil
}

// RefreshDisplays re-enumerates displays.
func (s *Server) RefreshDisplays() *dbus.Error {
	if err := s.daemon.RefreshDisplays(); err != nil {
		return failed("RefreshDisplays", err)
	}
	return nil
}
