// SPDX-License-Identifier: GPL-3.0-only

package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/udev"
)

// onHotplug refreshes displays after a connect or disconnect. Devices that
// just appeared need time to enumerate before they answer.
func (a *App) onHotplug(event udev.Event) {
	settle := time.Duration(0)
	if event.Type != udev.EventRemove {
		settle = a.cfg.Udev.SettleDelay.Duration()
	}

	if err := a.refreshWithRetry(settle); err != nil {
		log.Error().Err(err).
			Str("source", string(event.Source)).
			Msg("Failed to refresh displays after hot-plug event (all retries exhausted)")
	}
}

// onRecovery runs after the udev monitor may have dropped events.
func (a *App) onRecovery() {
	log.Info().Msg("Performing recovery refresh after netlink buffer overflow")
	if err := a.refreshWithRetry(a.cfg.Udev.SettleDelay.Duration()); err != nil {
		log.Error().Err(err).Msg("Recovery refresh failed (all retries exhausted)")
	}
}

// refreshWithRetry waits settle, then refreshes with linear backoff.
// Refreshes are serialized so hot-plug and recovery do not interleave.
func (a *App) refreshWithRetry(settle time.Duration) error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	if err := a.wait(settle); err != nil {
		return err
	}

	retries := a.cfg.Udev.RefreshRetries
	backoff := a.cfg.Udev.RetryBackoff.Duration()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * backoff
			log.Debug().Int("attempt", attempt).Dur("backoff", delay).Msg("Retrying display refresh")
			if err := a.wait(delay); err != nil {
				return err
			}
		}

		if err := a.controller.Refresh(); err != nil {
			lastErr = err
			log.Warn().Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", retries+1).
				Msg("Display refresh failed")
			continue
		}

		if attempt > 0 {
			log.Info().Int("attempts", attempt+1).Msg("Display refresh succeeded after retry")
		}
		return nil
	}
	return lastErr
}

// wait sleeps for d unless the app is shutting down.
func (a *App) wait(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	ctx := a.ctx
	if ctx == nil {
		time.Sleep(d)
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshDisplays re-enumerates displays immediately.
func (a *App) RefreshDisplays() error {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	return a.controller.Refresh()
}
