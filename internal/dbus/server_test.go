// SPDX-License-Identifier: GPL-3.0-only

package dbus

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
	"github.com/shini4i/unblind-daemon/internal/settings"
)

// fakeDaemon implements Daemon for testing.
type fakeDaemon struct {
	displays   []*display.Display
	brightness uint32
	previewed  []uint32
	status     dimmer.Status
	period     schedule.Period
	untilNext  time.Duration
	cfg        schedule.Config
	location   settings.Location
	refreshed  int
	err        error
}

func (f *fakeDaemon) Displays() []*display.Display   { return f.displays }
func (f *fakeDaemon) Brightness() uint32              { return f.brightness }
func (f *fakeDaemon) DimmerStatus() dimmer.Status     { return f.status }
func (f *fakeDaemon) Period() schedule.Period         { return f.period }
func (f *fakeDaemon) TimeToNextPeriod() time.Duration { return f.untilNext }
func (f *fakeDaemon) Schedule() schedule.Config       { return f.cfg }
func (f *fakeDaemon) Location() settings.Location     { return f.location }

func (f *fakeDaemon) PreviewBrightness(v uint32) error {
	f.previewed = append(f.previewed, v)
	return f.err
}

func (f *fakeDaemon) set(apply func()) error {
	if f.err != nil {
		return f.err
	}
	apply()
	return nil
}

func (f *fakeDaemon) SetDaytimeStart(d time.Duration) error {
	return f.set(func() { f.cfg.DaytimeStart = d })
}

func (f *fakeDaemon) SetNighttimeStart(d time.Duration) error {
	return f.set(func() { f.cfg.NighttimeStart = d })
}

func (f *fakeDaemon) SetDayBrightness(v uint32) error {
	return f.set(func() { f.cfg.DayBrightness = v })
}

func (f *fakeDaemon) SetNightBrightness(v uint32) error {
	return f.set(func() { f.cfg.NightBrightness = v })
}

func (f *fakeDaemon) SetDayToNightTransition(d time.Duration) error {
	return f.set(func() { f.cfg.DayToNight = d })
}

func (f *fakeDaemon) SetNightToDayTransition(d time.Duration) error {
	return f.set(func() { f.cfg.NightToDay = d })
}

func (f *fakeDaemon) SetLocation(lat, lon string) error {
	return f.set(func() { f.location.Latitude, f.location.Longitude = lat, lon })
}

func (f *fakeDaemon) SetLocationEnabled(enabled bool) error {
	return f.set(func() { f.location.Enabled = enabled })
}

func (f *fakeDaemon) RefreshDisplays() error {
	return f.set(func() { f.refreshed++ })
}

func TestNewServer(t *testing.T) {
	daemon := &fakeDaemon{}
	server := NewServer(daemon)
	require.NotNil(t, server)
	assert.Equal(t, daemon, server.daemon)
	assert.False(t, server.systemBus)

	server = NewServer(daemon, WithSystemBus())
	assert.True(t, server.systemBus)
}

func TestServer_Constants(t *testing.T) {
	assert.Equal(t, "io.github.shini4i.Unblind", ServiceName)
	assert.Equal(t, "/io/github/shini4i/Unblind", ObjectPath)
	assert.Equal(t, "io.github.shini4i.Unblind", InterfaceName)
	assert.Contains(t, IntrospectXML, `<method name="PreviewBrightness">`)
	assert.Contains(t, IntrospectXML, `<signal name="DisplaysRefreshed">`)
}

func TestServer_ListDisplays(t *testing.T) {
	studio := display.New(1,
		display.Handle{Driver: "hid", Key: "ABC123", Name: "Apple Studio Display"},
		display.Capabilities{Flags: display.CapBrightness},
		display.BrightnessRange{Max: 100})
	legacy := display.New(2,
		display.Handle{Driver: "ddc", Key: "4", Name: "DELL U2720Q"},
		display.Capabilities{},
		display.BrightnessRange{})

	server := NewServer(&fakeDaemon{displays: []*display.Display{studio, legacy}})

	result, err := server.ListDisplays()
	require.Nil(t, err)
	assert.Equal(t, []DisplayInfo{
		{ID: 1, Key: "hid:ABC123", Name: "Apple Studio Display", SupportsBrightness: true},
		{ID: 2, Key: "ddc:4", Name: "DELL U2720Q", SupportsBrightness: false},
	}, result)
}

func TestServer_ListDisplays_Empty(t *testing.T) {
	server := NewServer(&fakeDaemon{})

	result, err := server.ListDisplays()
	require.Nil(t, err)
	assert.Empty(t, result)
}

func TestServer_Queries(t *testing.T) {
	daemon := &fakeDaemon{
		brightness: 42,
		status:     dimmer.StatusDimming,
		period:     schedule.PeriodNight,
		untilNext:  90 * time.Second,
		cfg:        schedule.DefaultConfig(),
		location:   settings.Location{Enabled: true, Latitude: "52.5", Longitude: "13.4"},
	}
	server := NewServer(daemon)

	brightness, err := server.GetBrightness()
	require.Nil(t, err)
	assert.Equal(t, uint32(42), brightness)

	status, err := server.GetStatus()
	require.Nil(t, err)
	assert.Equal(t, "dimming", status)

	period, err := server.GetPeriod()
	require.Nil(t, err)
	assert.Equal(t, "night", period)

	ms, err := server.TimeToNextPeriod()
	require.Nil(t, err)
	assert.Equal(t, uint64(90000), ms)

	info, err := server.GetSchedule()
	require.Nil(t, err)
	assert.Equal(t, ScheduleInfo{
		DaytimeStart:      "07:00:00",
		NighttimeStart:    "18:00:00",
		DayBrightness:     90,
		NightBrightness:   50,
		DayToNightMinutes: 1,
		NightToDayMinutes: 1,
	}, info)

	enabled, lat, lon, err := server.GetLocation()
	require.Nil(t, err)
	assert.True(t, enabled)
	assert.Equal(t, "52.5", lat)
	assert.Equal(t, "13.4", lon)
}

func TestServer_TimeToNextPeriod_NeverNegative(t *testing.T) {
	server := NewServer(&fakeDaemon{untilNext: -time.Millisecond})

	ms, err := server.TimeToNextPeriod()
	require.Nil(t, err)
	assert.Equal(t, uint64(0), ms)
}

func TestServer_Setters(t *testing.T) {
	daemon := &fakeDaemon{cfg: schedule.DefaultConfig()}
	server := NewServer(daemon)

	require.Nil(t, server.SetDaytimeStart("06:15"))
	require.Nil(t, server.SetNighttimeStart("20:30:15"))
	require.Nil(t, server.SetDayBrightness(80))
	require.Nil(t, server.SetNightBrightness(10))
	require.Nil(t, server.SetDayToNightTransition(1.5))
	require.Nil(t, server.SetNightToDayTransition(30))
	require.Nil(t, server.SetLocation("-33.86", "151.2"))
	require.Nil(t, server.SetLocationEnabled(true))
	require.Nil(t, server.RefreshDisplays())

	assert.Equal(t, schedule.Config{
		DaytimeStart:    6*time.Hour + 15*time.Minute,
		NighttimeStart:  20*time.Hour + 30*time.Minute + 15*time.Second,
		DayBrightness:   80,
		NightBrightness: 10,
		DayToNight:      90 * time.Second,
		NightToDay:      30 * time.Minute,
	}, daemon.cfg)
	assert.Equal(t, settings.Location{Enabled: true, Latitude: "-33.86", Longitude: "151.2"}, daemon.location)
	assert.Equal(t, 1, daemon.refreshed)
}

func TestServer_SetStartTime_InvalidFormat(t *testing.T) {
	daemon := &fakeDaemon{cfg: schedule.DefaultConfig()}
	server := NewServer(daemon)

	assert.NotNil(t, server.SetDaytimeStart("7am"))
	assert.NotNil(t, server.SetNighttimeStart("24:00"))
	assert.Equal(t, schedule.DefaultConfig(), daemon.cfg)
}

func TestServer_SetTransition_InvalidMinutes(t *testing.T) {
	daemon := &fakeDaemon{cfg: schedule.DefaultConfig()}
	server := NewServer(daemon)

	for _, minutes := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300} {
		err := server.SetDayToNightTransition(minutes)
		require.NotNil(t, err, "minutes=%v", minutes)
		assert.Equal(t, "org.freedesktop.DBus.Error.InvalidArgs", err.Name)

		err = server.SetNightToDayTransition(minutes)
		require.NotNil(t, err, "minutes=%v", minutes)
		assert.Equal(t, "org.freedesktop.DBus.Error.InvalidArgs", err.Name)
	}
	assert.Equal(t, schedule.DefaultConfig(), daemon.cfg)
}

func TestServer_DaemonErrors(t *testing.T) {
	daemon := &fakeDaemon{err: errors.New("rejected")}
	server := NewServer(daemon)

	calls := map[string]func() error{
		"SetDaytimeStart":   func() error { return server.SetDaytimeStart("07:00") },
		"SetDayBrightness":  func() error { return server.SetDayBrightness(101) },
		"SetLocation":       func() error { return server.SetLocation("x", "y") },
		"SetLocationEnable": func() error { return server.SetLocationEnabled(true) },
		"RefreshDisplays":   func() error { return server.RefreshDisplays() },
		"PreviewBrightness": func() error { return server.PreviewBrightness(10) },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.NotNil(t, err)
			assert.Contains(t, err.Error(), "rejected")
		})
	}
}

func TestServer_PreviewBrightness_Clamps(t *testing.T) {
	daemon := &fakeDaemon{}
	server := NewServer(daemon)

	require.Nil(t, server.PreviewBrightness(150))
	assert.Equal(t, []uint32{100}, daemon.previewed)
}

func TestServer_RateLimiting(t *testing.T) {
	daemon := &fakeDaemon{}
	server := NewServer(daemon, WithRateLimit(1, 3))

	var rateLimitHit bool
	for i := 0; i < 20; i++ {
		if err := server.PreviewBrightness(50); err != nil {
			rateLimitHit = true
			assert.Contains(t, err.Error(), "rate limit exceeded")
			break
		}
	}

	assert.True(t, rateLimitHit, "Rate limiter should have been triggered")
	assert.Len(t, daemon.previewed, 3)
}

func TestServer_HandleWithoutConnection(t *testing.T) {
	server := NewServer(&fakeDaemon{})
	bus := events.NewBus()
	server.Subscribe(bus)

	assert.NotPanics(t, func() {
		bus.Publish(dimmer.BrightnessChanged{Brightness: 10, Delta: -1})
		bus.Publish(schedule.BrightnessChange{Target: 10, Remaining: time.Minute})
		bus.Publish(schedule.PeriodChanged{Period: schedule.PeriodDay})
		bus.Publish(controller.DisplaysRefreshed{Count: 1})
	})
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}

// Stop and signal emission must not race.
func TestServer_ConcurrentStopAndEmit(t *testing.T) {
	server := NewServer(&fakeDaemon{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.Handle(dimmer.BrightnessChanged{Brightness: 1})
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = server.Stop()
		}()
	}
	wg.Wait()
}
