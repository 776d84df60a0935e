// SPDX-License-Identifier: GPL-3.0-only

package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/dbus"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/schedule"
)

var _ dbus.Daemon = (*App)(nil)

// Displays returns the current display list.
func (a *App) Displays() []*display.Display {
	return a.controller.Displays()
}

// Brightness returns the brightness last applied by the dimmer.
func (a *App) Brightness() uint32 {
	return a.dimmer.Current()
}

// DimmerStatus reports whether a transition is running.
func (a *App) DimmerStatus() dimmer.Status {
	return a.dimmer.Status()
}

// Period returns the active period.
func (a *App) Period() schedule.Period {
	return a.scheduler.Period()
}

// TimeToNextPeriod returns the time until the next period boundary.
func (a *App) TimeToNextPeriod() time.Duration {
	return a.scheduler.TimeToNextPeriod(a.now())
}

// Schedule returns the schedule configuration.
func (a *App) Schedule() schedule.Config {
	return a.scheduler.Config()
}

// SetDaytimeStart is rejected while location mode owns the start times.
func (a *App) SetDaytimeStart(d time.Duration) error {
	return a.setManualStart(a.scheduler.SetDaytimeStart, d)
}

// SetNighttimeStart is rejected while location mode owns the start times.
func (a *App) SetNighttimeStart(d time.Duration) error {
	return a.setManualStart(a.scheduler.SetNighttimeStart, d)
}

// setManualStart holds locMu across the check and the change so location
// mode cannot be enabled in between.
func (a *App) setManualStart(set func(time.Duration) error, d time.Duration) error {
	a.locMu.Lock()
	defer a.locMu.Unlock()
	if a.location.Enabled {
		return ErrLocationManaged
	}
	return set(d)
}

// SetDayBrightness sets the day period brightness.
func (a *App) SetDayBrightness(v uint32) error {
	return a.scheduler.SetDayBrightness(v)
}

// SetNightBrightness sets the night period brightness.
func (a *App) SetNightBrightness(v uint32) error {
	return a.scheduler.SetNightBrightness(v)
}

// SetDayToNightTransition sets the length of the evening fade.
func (a *App) SetDayToNightTransition(d time.Duration) error {
	return a.scheduler.SetDayToNightTransition(d)
}

// SetNightToDayTransition sets the length of the morning fade.
func (a *App) SetNightToDayTransition(d time.Duration) error {
	return a.scheduler.SetNightToDayTransition(d)
}

// PreviewBrightness applies value to every display without touching the
// dimmer and restores the dimmer's brightness after previewResetDelay.
func (a *App) PreviewBrightness(value uint32) error {
	if a.controller.Count() == 0 && !a.controller.IntegratedSupported() {
		return ErrNoDisplays
	}

	a.controller.ApplyBrightness(value)

	a.previewMu.Lock()
	defer a.previewMu.Unlock()
	if a.previewTimer != nil {
		a.previewTimer.Stop()
	}
	a.previewTimer = a.afterFunc(previewResetDelay, a.restoreAfterPreview)

	log.Debug().Uint32("brightness", value).Msg("Previewing brightness")
	return nil
}

func (a *App) restoreAfterPreview() {
	a.controller.ApplyBrightness(a.dimmer.Current())
}
