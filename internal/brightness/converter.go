// SPDX-License-Identifier: GPL-3.0-only

// Package brightness converts between the percentage scale used by the
// scheduler and the native units of display hardware.
package brightness

import "math"

const (
	// MaxPercent is the top of the percentage scale.
	MaxPercent uint32 = 100

	// MinNits is the lowest luminance the Apple Studio Display accepts.
	MinNits uint32 = 400

	// MaxNits is the highest luminance the Apple Studio Display accepts.
	MaxNits uint32 = 60000

	// NitsRange is the span between MinNits and MaxNits.
	NitsRange uint32 = MaxNits - MinNits
)

// NitsToPercent converts a Studio Display luminance to a percentage,
// rounding so that PercentToNits(NitsToPercent(x)) stays stable.
func NitsToPercent(nits uint32) uint32 {
	nits = ClampNits(nits)
	return uint32(math.Round(float64(nits-MinNits) / float64(NitsRange) * 100))
}

// PercentToNits converts a percentage to Studio Display luminance.
func PercentToNits(percent uint32) uint32 {
	percent = ClampPercent(percent)
	return ClampNits(uint32(float64(percent)*float64(NitsRange)/100) + MinNits)
}

// ClampNits restricts nits to [MinNits, MaxNits].
func ClampNits(nits uint32) uint32 {
	return min(max(nits, MinNits), MaxNits)
}

// ClampPercent restricts percent to [0, MaxPercent].
func ClampPercent(percent uint32) uint32 {
	return min(percent, MaxPercent)
}

// PercentToRaw scales a percentage onto [0, rawMax], rounding to nearest.
func PercentToRaw(percent, rawMax uint32) uint32 {
	percent = ClampPercent(percent)
	return uint32(math.Round(float64(percent) * float64(rawMax) / 100))
}

// RawToPercent scales a raw value in [0, rawMax] to a percentage.
func RawToPercent(raw, rawMax uint32) uint32 {
	if rawMax == 0 {
		return 0
	}
	raw = min(raw, rawMax)
	return uint32(math.Round(float64(raw) / float64(rawMax) * 100))
}
