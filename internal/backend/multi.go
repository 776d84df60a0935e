// SPDX-License-Identifier: GPL-3.0-only

// Package backend combines display drivers into a single display.Backend.
package backend

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/display"
)

// Multi routes calls to the driver named in each handle.
type Multi struct {
	drivers    []display.Driver
	byName     map[string]display.Driver
	integrated display.Integrated
}

var _ display.Backend = (*Multi)(nil)

// NewMulti creates a backend over drivers. integrated may be nil.
func NewMulti(integrated display.Integrated, drivers ...display.Driver) *Multi {
	m := &Multi{
		byName:     make(map[string]display.Driver, len(drivers)),
		integrated: integrated,
	}
	for _, d := range drivers {
		if _, dup := m.byName[d.Name()]; dup {
			log.Warn().Str("driver", d.Name()).Msg("Duplicate display driver ignored")
			continue
		}
		m.drivers = append(m.drivers, d)
		m.byName[d.Name()] = d
	}
	return m
}

// ListDisplays enumerates every driver. A failing driver is logged and
// skipped; an error is returned only when every driver failed.
func (m *Multi) ListDisplays() ([]display.Handle, error) {
	var (
		handles []display.Handle
		errs    []error
	)
	for _, d := range m.drivers {
		hs, err := d.ListDisplays()
		if err != nil {
			log.Warn().Err(err).Str("driver", d.Name()).Msg("Failed to enumerate displays")
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		handles = append(handles, hs...)
	}
	if len(m.drivers) > 0 && len(errs) == len(m.drivers) {
		return nil, errors.Join(errs...)
	}
	return handles, nil
}

func (m *Multi) driver(h display.Handle) (display.Driver, error) {
	d, ok := m.byName[h.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", display.ErrUnknownDriver, h.Driver)
	}
	return d, nil
}

// QueryCapabilities implements display.Backend.
func (m *Multi) QueryCapabilities(h display.Handle) (display.Capabilities, error) {
	d, err := m.driver(h)
	if err != nil {
		return display.Capabilities{}, err
	}
	return d.QueryCapabilities(h)
}

// QueryBrightnessRange implements display.Backend.
func (m *Multi) QueryBrightnessRange(h display.Handle) (display.BrightnessRange, error) {
	d, err := m.driver(h)
	if err != nil {
		return display.BrightnessRange{}, err
	}
	return d.QueryBrightnessRange(h)
}

// SetBrightness implements display.Backend.
func (m *Multi) SetBrightness(h display.Handle, value uint32) error {
	d, err := m.driver(h)
	if err != nil {
		return err
	}
	return d.SetBrightness(h, value)
}

// IntegratedDisplaySupported implements display.Backend.
func (m *Multi) IntegratedDisplaySupported() bool {
	return m.integrated != nil && m.integrated.Supported()
}

// SetIntegratedBrightness implements display.Backend.
func (m *Multi) SetIntegratedBrightness(value uint32) error {
	if m.integrated == nil {
		return display.ErrIntegratedUnsupported
	}
	return m.integrated.SetBrightness(value)
}

// Close closes every driver.
func (m *Multi) Close() error {
	var errs []error
	for _, d := range m.drivers {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}
