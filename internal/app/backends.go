// SPDX-License-Identifier: GPL-3.0-only

package app

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/backend"
	"github.com/shini4i/unblind-daemon/internal/backlight"
	"github.com/shini4i/unblind-daemon/internal/config"
	"github.com/shini4i/unblind-daemon/internal/ddcutil"
	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/hid"
)

// buildBackend assembles the enabled drivers. A driver that cannot be
// initialised is logged and left out. The returned closer releases
// resources the backend itself does not own.
func buildBackend(cfg config.BackendsConfig) (display.Backend, func() error) {
	var drivers []display.Driver

	if cfg.HID.Enabled {
		drivers = append(drivers, hid.NewDriver(hid.NewManager()))
	}

	if cfg.DDCUtil.Enabled {
		d, err := ddcutil.New(cfg.DDCUtil.Path,
			ddcutil.WithTimeout(cfg.DDCUtil.Timeout.Duration()),
			ddcutil.WithExtraArgs(cfg.DDCUtil.ExtraArgs...))
		switch {
		case errors.Is(err, ddcutil.ErrToolNotFound):
			log.Info().Str("path", cfg.DDCUtil.Path).Msg("ddcutil not installed, DDC/CI monitors disabled")
		case err != nil:
			log.Warn().Err(err).Msg("Failed to initialise ddcutil driver")
		default:
			drivers = append(drivers, d)
		}
	}

	var (
		integrated display.Integrated
		closer     = func() error { return nil }
	)
	if cfg.Backlight.Enabled {
		var opts []backlight.Option
		if cfg.Backlight.SysfsRoot != "" {
			opts = append(opts, backlight.WithSysfsRoot(cfg.Backlight.SysfsRoot))
		}
		panel, err := backlight.New(cfg.Backlight.Device, opts...)
		switch {
		case errors.Is(err, backlight.ErrNoBacklight):
			log.Info().Msg("No integrated backlight found")
		case err != nil:
			log.Warn().Err(err).Msg("Failed to initialise integrated backlight")
		default:
			integrated = panel
			closer = panel.Close
		}
	}

	return backend.NewMulti(integrated, drivers...), closer
}
