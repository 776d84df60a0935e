// SPDX-License-Identifier: GPL-3.0-only

// Package app wires the scheduler, dimmer and display controller together
// and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/changequeue"
	"github.com/shini4i/unblind-daemon/internal/config"
	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dbus"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
	"github.com/shini4i/unblind-daemon/internal/settings"
	"github.com/shini4i/unblind-daemon/internal/telemetry"
	"github.com/shini4i/unblind-daemon/internal/udev"
)

// previewResetDelay is how long a previewed brightness stays before the
// scheduled brightness is restored.
const previewResetDelay = 500 * time.Millisecond

var (
	// ErrNoDisplays is returned by PreviewBrightness when nothing can be dimmed.
	ErrNoDisplays = errors.New("no controllable displays")

	// ErrLocationManaged is returned when start times are set manually while
	// location mode owns them.
	ErrLocationManaged = errors.New("start times are managed by location mode")
)

// App is the main application container.
type App struct {
	cfg *config.Config

	bus        *events.Bus
	store      settings.Store
	closeStore func() error
	closeExtra func() error

	controller *controller.Controller
	scheduler  *schedule.Scheduler
	dimmer     *dimmer.Dimmer
	server     *dbus.Server
	monitor    *udev.Monitor
	sinks      []telemetry.Sink

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer

	locMu    sync.Mutex
	location settings.Location

	previewMu    sync.Mutex
	previewTimer *time.Timer

	refreshMu  sync.Mutex
	recovering atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures an App.
type Option func(*App)

// WithBackend replaces the backend built from the backends section.
func WithBackend(b display.Backend) Option {
	return func(a *App) {
		a.controller = controller.New(b, controller.WithPublisher(a.bus))
	}
}

// WithStore replaces the SQLite settings database.
func WithStore(s settings.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithClock overrides time.Now for schedule and sun computations.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New creates the application with every component built but not started.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:        cfg,
		bus:        events.NewBus(),
		closeStore: func() error { return nil },
		closeExtra: func() error { return nil },
		now:        time.Now,
		afterFunc:  time.AfterFunc,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		db, err := settings.OpenSQLite(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		a.store = db
		a.closeStore = db.Close
	}

	if a.controller == nil {
		b, closer := buildBackend(cfg.Backends)
		a.controller = controller.New(b, controller.WithPublisher(a.bus))
		a.closeExtra = closer
	}

	schedCfg, err := settings.LoadSchedule(a.store, cfg.Schedule.ScheduleDefaults())
	if err != nil {
		_ = a.closeStore()
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	if a.location, err = a.loadLocation(); err != nil {
		_ = a.closeStore()
		return nil, fmt.Errorf("failed to load location: %w", err)
	}

	a.dimmer = dimmer.New(dimmer.ApplierFunc(a.controller.ApplyBrightness),
		cfg.Schedule.InitialBrightness, dimmer.WithPublisher(a.bus))

	a.scheduler, err = schedule.New(schedCfg,
		schedule.WithPublisher(a.bus),
		schedule.WithClock(func() time.Time { return a.now() }))
	if err != nil {
		_ = a.closeStore()
		return nil, err
	}

	a.bus.Subscribe(events.TypeScheduledChange, a.onScheduledChange)
	a.bus.Subscribe(events.TypeScheduleConfigChanged, a.onConfigChanged)
	a.bus.Subscribe(events.TypeDisplaysRefreshed, a.onDisplaysRefreshed)
	a.bus.Subscribe(events.TypeApplyFailed, a.onApplyFailed)

	return a, nil
}

// loadLocation prefers stored settings and falls back to the config file.
func (a *App) loadLocation() (settings.Location, error) {
	stored, err := settings.LoadLocation(a.store)
	if err != nil {
		return settings.Location{}, err
	}
	if stored.Latitude != "" || stored.Longitude != "" || stored.Enabled {
		return stored, nil
	}
	return settings.Location{
		Enabled:   a.cfg.Location.Enabled,
		Latitude:  a.cfg.Location.Latitude,
		Longitude: a.cfg.Location.Longitude,
	}, nil
}

// Start enumerates displays, starts the schedule and the optional services.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.controller.Start()
	if err := a.controller.Refresh(); err != nil {
		log.Error().Err(err).Msg("Initial display enumeration failed")
	}

	if a.locationEnabled() {
		if err := a.applyLocation(); err != nil {
			log.Warn().Err(err).Msg("Failed to apply location, keeping configured start times")
		}
	}
	a.scheduler.Start()

	a.wg.Add(1)
	go a.trackLocation()

	a.startSinks()

	if a.cfg.DBus.Enabled {
		var opts []dbus.Option
		opts = append(opts, dbus.WithRateLimit(a.cfg.DBus.PreviewRate, a.cfg.DBus.PreviewBurst))
		if a.cfg.DBus.Bus == "system" {
			opts = append(opts, dbus.WithSystemBus())
		}
		a.server = dbus.NewServer(a, opts...)
		a.server.Subscribe(a.bus)
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("failed to start D-Bus server: %w", err)
		}
	}

	if a.cfg.Udev.Enabled {
		a.monitor = udev.NewMonitor(a.onHotplug)
		a.monitor.SetRecoveryHandler(a.onRecovery)
		if err := a.monitor.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start udev monitor (hot-plug detection disabled)")
			a.monitor = nil
		}
	}

	log.Info().
		Int("displays", a.controller.Count()).
		Bool("integrated", a.controller.IntegratedSupported()).
		Str("period", a.scheduler.Period().String()).
		Msg("Unblind started")
	return nil
}

func (a *App) startSinks() {
	m := a.cfg.Metrics
	if m.Statsd.Enabled {
		if sink, err := telemetry.NewStatsdSink(m.Statsd.Address, m.Statsd.Prefix); err != nil {
			log.Warn().Err(err).Msg("Statsd sink disabled")
		} else {
			a.sinks = append(a.sinks, sink)
		}
	}
	if m.InfluxDB.Enabled {
		sink, err := telemetry.NewInfluxSink(a.ctx, telemetry.InfluxConfig{
			URL:           m.InfluxDB.URL,
			Token:         m.InfluxDB.Token,
			Org:           m.InfluxDB.Org,
			Bucket:        m.InfluxDB.Bucket,
			FlushInterval: m.InfluxDB.FlushInterval.Duration(),
		})
		if err != nil {
			log.Warn().Err(err).Msg("InfluxDB sink disabled")
		} else {
			a.sinks = append(a.sinks, sink)
		}
	}
	if q := a.cfg.MQTT; q.Enabled {
		sink, err := telemetry.NewMQTTPublisher(telemetry.MQTTConfig{
			Broker:      q.Broker,
			ClientID:    q.ClientID,
			Username:    q.Username,
			Password:    q.Password,
			TopicPrefix: q.TopicPrefix,
			QoS:         q.QoS,
		})
		if err != nil {
			log.Warn().Err(err).Msg("MQTT publisher disabled")
		} else {
			a.sinks = append(a.sinks, sink)
		}
	}

	for _, s := range a.sinks {
		telemetry.Attach(a.bus, s)
	}
}

// Stop shuts everything down in reverse dependency order.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	if a.monitor != nil {
		if err := a.monitor.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.server != nil {
		if err := a.server.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	a.wg.Wait()

	a.previewMu.Lock()
	if a.previewTimer != nil {
		a.previewTimer.Stop()
	}
	a.previewMu.Unlock()

	a.scheduler.Close()
	a.dimmer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout.Duration())
	defer cancel()
	if err := a.controller.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeExtra(); err != nil {
		errs = append(errs, err)
	}
	if err := telemetry.CloseAll(a.sinks); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// Bus exposes the event bus for additional subscribers.
func (a *App) Bus() *events.Bus {
	return a.bus
}

// onScheduledChange restarts the dimmer from the brightness it last applied.
func (a *App) onScheduledChange(e events.Event) {
	ev, ok := e.(schedule.BrightnessChange)
	if !ok {
		return
	}
	a.dimmer.Stop()
	a.dimmer.AdjustTo(ev.Target, ev.Remaining)
}

func (a *App) onConfigChanged(e events.Event) {
	ev, ok := e.(schedule.ConfigChanged)
	if !ok {
		return
	}
	if err := settings.SaveSchedule(a.store, ev.Config); err != nil {
		log.Error().Err(err).Msg("Failed to persist schedule")
	}
}

// onDisplaysRefreshed pushes the current brightness to newly found displays.
func (a *App) onDisplaysRefreshed(e events.Event) {
	ev, ok := e.(controller.DisplaysRefreshed)
	if !ok {
		return
	}

	if a.controller.NoSupportDetected() {
		log.Warn().Msg("At least one display does not support brightness control")
	}
	log.Info().
		Int("count", ev.Count).
		Bool("multiple", a.controller.MultipleDisplays()).
		Strs("added", ev.Added).
		Strs("removed", ev.Removed).
		Msg("Displays refreshed")

	if a.dimmer.Status() == dimmer.StatusIdle {
		current := a.dimmer.Current()
		a.dimmer.AdjustBrightness(current, current, 0)
	}
}

// onApplyFailed starts a recovery refresh when a display disappeared.
func (a *App) onApplyFailed(e events.Event) {
	ev, ok := e.(changequeue.ApplyFailed)
	if !ok || !errors.Is(ev.Err, display.ErrDeviceGone) || a.stopping() {
		return
	}
	if !a.recovering.CompareAndSwap(false, true) {
		return
	}

	log.Warn().Err(ev.Err).Str("target", ev.Target).Msg("Display gone, triggering recovery refresh")
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.recovering.Store(false)
		if err := a.refreshWithRetry(a.cfg.Udev.SettleDelay.Duration()); err != nil {
			log.Error().Err(err).Msg("Recovery refresh failed (all retries exhausted)")
		}
	}()
}

func (a *App) stopping() bool {
	return a.ctx == nil || a.ctx.Err() != nil
}

// SignalContext creates a context that is cancelled on SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
