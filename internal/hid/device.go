// SPDX-License-Identifier: GPL-3.0-only

// Package hid drives Apple Studio Displays over USB HID feature reports.
package hid

//go:generate mockgen -source=device.go -destination=mocks/device_mock.go -package=mocks

// DeviceInfo describes an enumerated HID interface.
type DeviceInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
	Interface    int
}

// Device is an open HID interface.
type Device interface {
	// GetFeatureReport reads a feature report. data[0] carries the report ID.
	GetFeatureReport(data []byte) (int, error)

	// SendFeatureReport writes a feature report. data[0] carries the report ID.
	SendFeatureReport(data []byte) (int, error)

	Close() error

	Info() DeviceInfo
}
