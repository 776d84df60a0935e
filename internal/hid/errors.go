// SPDX-License-Identifier: GPL-3.0-only

package hid

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/shini4i/unblind-daemon/internal/display"
)

// IsDeviceGoneError reports whether err means the display was unplugged.
func IsDeviceGoneError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, display.ErrDeviceGone) || errors.Is(err, syscall.ENODEV) {
		return true
	}
	// hidapi reports errno only as text.
	return strings.Contains(err.Error(), "No such device")
}

func wrapDeviceError(msg string, err error) error {
	if IsDeviceGoneError(err) && !errors.Is(err, display.ErrDeviceGone) {
		return fmt.Errorf("%s: %w: %w", msg, display.ErrDeviceGone, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
