// SPDX-License-Identifier: GPL-3.0-only

package hid_test

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shini4i/unblind-daemon/internal/display"
	"github.com/shini4i/unblind-daemon/internal/hid"
	"github.com/shini4i/unblind-daemon/internal/hid/mocks"
)

// nitsReport fills a feature report with a little-endian luminance.
func nitsReport(lo, midLo byte) func([]byte) (int, error) {
	return func(data []byte) (int, error) {
		data[0] = hid.ReportID
		data[1] = lo
		data[2] = midLo
		data[3] = 0x00
		data[4] = 0x00
		return hid.ReportSize, nil
	}
}

func TestStudio_Brightness(t *testing.T) {
	tests := []struct {
		name    string
		report  func([]byte) (int, error)
		want    uint32
		wantErr bool
	}{
		{name: "400 nits is 0%", report: nitsReport(0x90, 0x01), want: 0},
		{name: "60000 nits is 100%", report: nitsReport(0x60, 0xEA), want: 100},
		{name: "30200 nits is 50%", report: nitsReport(0xF8, 0x75), want: 50},
		{
			name:    "device error",
			report:  func([]byte) (int, error) { return 0, errors.New("device error") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			device := mocks.NewMockDevice(ctrl)
			device.EXPECT().GetFeatureReport(gomock.Len(hid.ReportSize)).DoAndReturn(tt.report)

			got, err := hid.NewStudio(device).Brightness()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStudio_SetBrightness(t *testing.T) {
	tests := []struct {
		name    string
		percent uint32
		lo      byte
		midLo   byte
	}{
		{name: "0% is 400 nits", percent: 0, lo: 0x90, midLo: 0x01},
		{name: "100% is 60000 nits", percent: 100, lo: 0x60, midLo: 0xEA},
		{name: "50% is 30200 nits", percent: 50, lo: 0xF8, midLo: 0x75},
		{name: "above 100% clamps", percent: 180, lo: 0x60, midLo: 0xEA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			device := mocks.NewMockDevice(ctrl)
			device.EXPECT().SendFeatureReport(gomock.Any()).DoAndReturn(func(data []byte) (int, error) {
				require.Len(t, data, hid.ReportSize)
				assert.Equal(t, hid.ReportID, data[0])
				assert.Equal(t, tt.lo, data[1])
				assert.Equal(t, tt.midLo, data[2])
				return hid.ReportSize, nil
			})

			require.NoError(t, hid.NewStudio(device).SetBrightness(tt.percent))
		})
	}
}

func TestStudio_DeviceGoneIsClassified(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)
	device.EXPECT().SendFeatureReport(gomock.Any()).Return(0, syscall.ENODEV)

	err := hid.NewStudio(device).SetBrightness(10)
	require.Error(t, err)
	assert.ErrorIs(t, err, display.ErrDeviceGone)
	assert.ErrorIs(t, err, syscall.ENODEV)
}

func TestStudio_Close(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)
	device.EXPECT().Close().Return(nil).Times(1)

	studio := hid.NewStudio(device)
	require.NoError(t, studio.Close())
	require.NoError(t, studio.Close(), "second close is a no-op")

	_, err := studio.Brightness()
	assert.ErrorIs(t, err, hid.ErrDisplayClosed)
	assert.ErrorIs(t, err, display.ErrDeviceGone)

	assert.ErrorIs(t, studio.SetBrightness(50), hid.ErrDisplayClosed)
}

func TestStudio_Info(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := mocks.NewMockDevice(ctrl)
	device.EXPECT().Info().Return(hid.DeviceInfo{Serial: "C02ABC123", Product: "Studio Display"}).AnyTimes()

	studio := hid.NewStudio(device)
	assert.Equal(t, "C02ABC123", studio.Serial())
	assert.Equal(t, "Studio Display", studio.Product())
}

func TestIsDeviceGoneError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "ENODEV", err: syscall.ENODEV, want: true},
		{name: "wrapped ENODEV", err: errors.Join(errors.New("write"), syscall.ENODEV), want: true},
		{name: "hidapi text", err: errors.New("hidapi: No such device"), want: true},
		{name: "sentinel", err: display.ErrDeviceGone, want: true},
		{name: "timeout", err: errors.New("timeout"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hid.IsDeviceGoneError(tt.err))
		})
	}
}
