// SPDX-License-Identifier: GPL-3.0-only

package display

//go:generate mockgen -source=backend.go -destination=mocks/backend_mock.go -package=mocks

// Driver talks to one family of physical displays (HID, DDC/CI, ...).
type Driver interface {
	// Name is the value drivers put in Handle.Driver.
	Name() string

	// ListDisplays enumerates the displays currently attached.
	ListDisplays() ([]Handle, error)

	// QueryCapabilities reads capability flags from the display.
	QueryCapabilities(h Handle) (Capabilities, error)

	// QueryBrightnessRange reads the native brightness range and current value.
	QueryBrightnessRange(h Handle) (BrightnessRange, error)

	// SetBrightness applies a value in the display's native range.
	SetBrightness(h Handle, value uint32) error

	// Close releases driver resources.
	Close() error
}

// Integrated controls the built-in panel of a laptop or all-in-one.
type Integrated interface {
	Supported() bool
	SetBrightness(value uint32) error
}

// Backend is the full hardware boundary used by the controller and the
// change queue: all physical displays plus the integrated panel.
type Backend interface {
	ListDisplays() ([]Handle, error)
	QueryCapabilities(h Handle) (Capabilities, error)
	QueryBrightnessRange(h Handle) (BrightnessRange, error)
	SetBrightness(h Handle, value uint32) error
	IntegratedDisplaySupported() bool
	SetIntegratedBrightness(value uint32) error
	Close() error
}
