// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"github.com/shini4i/unblind-daemon/internal/brightness"
	"github.com/shini4i/unblind-daemon/internal/display"
)

// DriverName is the Handle.Driver value of Studio Displays.
const DriverName = "hid"

// Driver exposes Studio Displays as a display.Driver. Brightness is handled
// on the 0-100 percentage scale.
type Driver struct {
	manager *Manager
}

var _ display.Driver = (*Driver)(nil)

// NewDriver creates a driver backed by manager.
func NewDriver(manager *Manager) *Driver {
	return &Driver{manager: manager}
}

// Name implements display.Driver.
func (d *Driver) Name() string {
	return DriverName
}

// ListDisplays refreshes the manager and returns a handle per open display.
func (d *Driver) ListDisplays() ([]display.Handle, error) {
	if err := d.manager.Refresh(); err != nil {
		return nil, err
	}

	serials := d.manager.Serials()
	handles := make([]display.Handle, 0, len(serials))
	for _, serial := range serials {
		studio, err := d.manager.Studio(serial)
		if err != nil {
			continue
		}
		handles = append(handles, display.Handle{
			Driver: DriverName,
			Key:    serial,
			Name:   studio.Product(),
		})
	}
	return handles, nil
}

// QueryCapabilities implements display.Driver. Every Studio Display supports
// brightness.
func (d *Driver) QueryCapabilities(h display.Handle) (display.Capabilities, error) {
	if _, err := d.manager.Studio(h.Key); err != nil {
		return display.Capabilities{}, err
	}
	return display.Capabilities{Flags: display.CapBrightness}, nil
}

// QueryBrightnessRange implements display.Driver.
func (d *Driver) QueryBrightnessRange(h display.Handle) (display.BrightnessRange, error) {
	studio, err := d.manager.Studio(h.Key)
	if err != nil {
		return display.BrightnessRange{}, err
	}
	current, err := studio.Brightness()
	if err != nil {
		return display.BrightnessRange{}, err
	}
	return display.BrightnessRange{Min: 0, Max: brightness.MaxPercent, Current: current}, nil
}

// SetBrightness implements display.Driver.
func (d *Driver) SetBrightness(h display.Handle, value uint32) error {
	studio, err := d.manager.Studio(h.Key)
	if err != nil {
		return err
	}
	return studio.SetBrightness(value)
}

// Close implements display.Driver.
func (d *Driver) Close() error {
	return d.manager.Close()
}
