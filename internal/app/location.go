// SPDX-License-Identifier: GPL-3.0-only

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/schedule"
	"github.com/shini4i/unblind-daemon/internal/settings"
	"github.com/shini4i/unblind-daemon/internal/sun"
)

// Location returns the location mode state.
func (a *App) Location() settings.Location {
	a.locMu.Lock()
	defer a.locMu.Unlock()
	return a.location
}

func (a *App) locationEnabled() bool {
	return a.Location().Enabled
}

// SetLocation validates and stores coordinates. When location mode is on the
// start times are recomputed right away.
func (a *App) SetLocation(latitude, longitude string) error {
	if _, _, err := sun.ParseCoordinates(latitude, longitude); err != nil {
		return err
	}

	loc, err := a.updateLocation(func(l *settings.Location) {
		l.Latitude = latitude
		l.Longitude = longitude
	})
	if err != nil {
		return err
	}
	if loc.Enabled {
		return a.applyLocation()
	}
	return nil
}

// SetLocationEnabled toggles location mode. Enabling requires valid
// coordinates and applies them immediately.
func (a *App) SetLocationEnabled(enabled bool) error {
	if enabled {
		current := a.Location()
		if _, _, err := sun.ParseCoordinates(current.Latitude, current.Longitude); err != nil {
			return fmt.Errorf("cannot enable location mode: %w", err)
		}
	}

	if _, err := a.updateLocation(func(l *settings.Location) { l.Enabled = enabled }); err != nil {
		return err
	}
	if enabled {
		return a.applyLocation()
	}
	return nil
}

func (a *App) updateLocation(mutate func(*settings.Location)) (settings.Location, error) {
	a.locMu.Lock()
	mutate(&a.location)
	loc := a.location
	a.locMu.Unlock()

	if err := settings.SaveLocation(a.store, loc); err != nil {
		return loc, fmt.Errorf("failed to persist location: %w", err)
	}
	return loc, nil
}

// applyLocation sets today's sunrise and sunset as the start times. On days
// without a sunrise or sunset the previous start times stay in effect.
func (a *App) applyLocation() error {
	loc := a.Location()
	lat, lon, err := sun.ParseCoordinates(loc.Latitude, loc.Longitude)
	if err != nil {
		return err
	}

	times, err := sun.SunriseSunset(lat, lon, a.now())
	if errors.Is(err, sun.ErrNoTransition) {
		log.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("No sunrise or sunset today, keeping start times")
		return nil
	}
	if err != nil {
		return err
	}

	daytime := schedule.TimeOfDay(times.Sunrise).Truncate(time.Second)
	nighttime := schedule.TimeOfDay(times.Sunset).Truncate(time.Second)
	log.Info().
		Str("sunrise", schedule.FormatTimeOfDay(daytime)).
		Str("sunset", schedule.FormatTimeOfDay(nighttime)).
		Msg("Start times updated from location")

	return a.scheduler.SetStartTimes(daytime, nighttime)
}

// trackLocation recomputes sunrise and sunset periodically while location
// mode is on.
func (a *App) trackLocation() {
	defer a.wg.Done()

	interval := a.cfg.Location.UpdateInterval.Duration()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			if !a.locationEnabled() {
				continue
			}
			if err := a.applyLocation(); err != nil {
				log.Warn().Err(err).Msg("Failed to update start times from location")
			}
		}
	}
}
