// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/shini4i/unblind-daemon/internal/brightness"
	"github.com/shini4i/unblind-daemon/internal/display"
)

const (
	// ReportID is the brightness feature report.
	ReportID byte = 0x01

	// ReportSize is the length of the brightness feature report.
	ReportSize = 7

	AppleVendorID          uint16 = 0x05ac
	StudioDisplayProductID uint16 = 0x1114

	// BrightnessInterface is the USB interface exposing the brightness report.
	BrightnessInterface = 0x07
)

// ErrDisplayClosed is returned by a Studio after Close.
var ErrDisplayClosed = fmt.Errorf("studio display is closed: %w", display.ErrDeviceGone)

// Studio is one Apple Studio Display. Reports are exchanged one at a time.
type Studio struct {
	device Device
	mu     sync.Mutex
	closed bool
}

// NewStudio wraps an open device.
func NewStudio(device Device) *Studio {
	return &Studio{device: device}
}

// Brightness reads the luminance report and returns it as a percentage.
func (s *Studio) Brightness() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrDisplayClosed
	}

	report := make([]byte, ReportSize)
	report[0] = ReportID
	if _, err := s.device.GetFeatureReport(report); err != nil {
		return 0, wrapDeviceError("failed to get feature report", err)
	}

	return brightness.NitsToPercent(binary.LittleEndian.Uint32(report[1:5])), nil
}

// SetBrightness writes percent (0-100) as a luminance report.
func (s *Studio) SetBrightness(percent uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrDisplayClosed
	}

	report := make([]byte, ReportSize)
	report[0] = ReportID
	binary.LittleEndian.PutUint32(report[1:5], brightness.PercentToNits(percent))

	if _, err := s.device.SendFeatureReport(report); err != nil {
		return wrapDeviceError("failed to send feature report", err)
	}
	return nil
}

// Serial returns the USB serial number. Device info never changes after open.
func (s *Studio) Serial() string {
	return s.device.Info().Serial
}

// Product returns the USB product string.
func (s *Studio) Product() string {
	return s.device.Info().Product
}

// Close releases the device. Calling it twice is safe.
func (s *Studio) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.device.Close()
}
