// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"fmt"

	karalabehid "github.com/karalabe/hid"
)

// hidapiDevice adapts a karalabe/hid handle to Device.
type hidapiDevice struct {
	karalabehid.Device
	info DeviceInfo
}

var _ Device = (*hidapiDevice)(nil)

func (d *hidapiDevice) Info() DeviceInfo {
	return d.info
}

// brightnessInterfaces lists the Studio Display interfaces carrying the
// brightness report.
func brightnessInterfaces() ([]karalabehid.DeviceInfo, error) {
	if !karalabehid.Supported() {
		return nil, fmt.Errorf("hidapi is not supported on this platform")
	}

	devices, err := karalabehid.Enumerate(AppleVendorID, StudioDisplayProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate HID devices: %w", err)
	}

	out := devices[:0]
	for _, d := range devices {
		if d.Interface == BrightnessInterface {
			out = append(out, d)
		}
	}
	return out, nil
}

func infoFrom(d karalabehid.DeviceInfo) DeviceInfo {
	return DeviceInfo{
		Path:         d.Path,
		VendorID:     d.VendorID,
		ProductID:    d.ProductID,
		Serial:       d.Serial,
		Manufacturer: d.Manufacturer,
		Product:      d.Product,
		Interface:    d.Interface,
	}
}

// EnumerateDisplays lists attached Apple Studio Displays.
func EnumerateDisplays() ([]DeviceInfo, error) {
	devices, err := brightnessInterfaces()
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, infoFrom(d))
	}
	return infos, nil
}

// OpenDisplay opens the brightness interface of the display with serial.
func OpenDisplay(serial string) (Device, error) {
	devices, err := brightnessInterfaces()
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		if d.Serial != serial {
			continue
		}
		handle, err := d.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open display %s: %w", serial, err)
		}
		return &hidapiDevice{Device: handle, info: infoFrom(d)}, nil
	}
	return nil, fmt.Errorf("display with serial %s not found", serial)
}
