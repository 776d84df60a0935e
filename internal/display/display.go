// SPDX-License-Identifier: GPL-3.0-only

// Package display models the physical and integrated displays whose brightness
// the daemon controls.
package display

import (
	"errors"
	"sync"
)

const (
	// CapBrightness is the capability bit reported by displays that accept
	// brightness changes.
	CapBrightness uint32 = 0x2

	// IntegratedMin and IntegratedMax bound brightness values sent to the
	// integrated panel.
	IntegratedMin uint32 = 0
	IntegratedMax uint32 = 100
)

var (
	// ErrDisplayInvalid is returned when a mutation targets a display that has
	// been invalidated by a refresh or teardown.
	ErrDisplayInvalid = errors.New("display is no longer valid")

	// ErrDeviceGone is wrapped by drivers when the underlying device has been
	// disconnected.
	ErrDeviceGone = errors.New("device is gone")

	// ErrIntegratedUnsupported is returned when no integrated panel is present.
	ErrIntegratedUnsupported = errors.New("integrated display brightness is not supported")

	// ErrUnknownDriver is returned when a handle names a driver that is not registered.
	ErrUnknownDriver = errors.New("unknown display driver")
)

// Handle identifies a physical display within the driver that owns it.
type Handle struct {
	Driver string
	Key    string
	Name   string
}

// ID returns a stable identity for the physical target. Two handles with the
// same ID address the same monitor.
func (h Handle) ID() string {
	return h.Driver + ":" + h.Key
}

// Capabilities is what a display reports about itself.
type Capabilities struct {
	Flags             uint32
	ColorTemperatures uint32
}

// BrightnessRange is the device-native brightness range and the value the
// device currently reports.
type BrightnessRange struct {
	Min     uint32
	Max     uint32
	Current uint32
}

// Display is a snapshot of a physical monitor taken during a refresh.
// The mutable parts (current brightness, validity) are safe for concurrent use.
type Display struct {
	ID                    uint32
	Handle                Handle
	MinBrightness         uint32
	MaxBrightness         uint32
	CapabilityFlags       uint32
	ColorTemperatureFlags uint32

	mu      sync.Mutex
	current uint32
	valid   bool
}

// New creates a valid display.
func New(id uint32, handle Handle, caps Capabilities, r BrightnessRange) *Display {
	return &Display{
		ID:                    id,
		Handle:                handle,
		MinBrightness:         r.Min,
		MaxBrightness:         r.Max,
		CapabilityFlags:       caps.Flags,
		ColorTemperatureFlags: caps.ColorTemperatures,
		current:               r.Current,
		valid:                 true,
	}
}

// Name returns the human-readable name of the display.
func (d *Display) Name() string {
	return d.Handle.Name
}

// SupportsBrightness reports whether the display advertised brightness control.
func (d *Display) SupportsBrightness() bool {
	return d.CapabilityFlags&CapBrightness != 0
}

// Clamp restricts value to the display's [MinBrightness, MaxBrightness] range.
func (d *Display) Clamp(value uint32) uint32 {
	return Clamp(value, d.MinBrightness, d.MaxBrightness)
}

// CurrentBrightness returns the last brightness successfully applied or read.
func (d *Display) CurrentBrightness() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// SetCurrentBrightness records a successfully applied brightness.
func (d *Display) SetCurrentBrightness(value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.valid {
		return ErrDisplayInvalid
	}
	d.current = value
	return nil
}

// Invalidate marks the display as stale. It cannot be made valid again.
func (d *Display) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.valid = false
}

// Valid reports whether the display still belongs to the active display list.
func (d *Display) Valid() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.valid
}

// Clamp restricts value to [lo, hi]. If lo > hi the bounds are swapped.
func Clamp(value, lo, hi uint32) uint32 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
