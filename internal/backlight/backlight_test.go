// SPDX-License-Identifier: GPL-3.0-only

package backlight

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	method string
	args   []interface{}
	err    error
}

func (f *fakeSession) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err}
}

func writeDevice(t *testing.T, root, name, maxRaw, current string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(maxRaw+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte(current+"\n"), 0o644))
}

func TestNew_PicksFirstDevice(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "intel_backlight", "96000", "48000")
	writeDevice(t, root, "acpi_video0", "15", "15")

	p, err := New("", WithSysfsRoot(root), WithBusObject(&fakeSession{}))
	require.NoError(t, err)
	assert.Equal(t, "acpi_video0", p.Device())
	assert.True(t, p.Supported())
}

func TestNew_NoDevices(t *testing.T) {
	_, err := New("", WithSysfsRoot(t.TempDir()), WithBusObject(&fakeSession{}))
	assert.ErrorIs(t, err, ErrNoBacklight)

	_, err = New("", WithSysfsRoot(filepath.Join(t.TempDir(), "missing")), WithBusObject(&fakeSession{}))
	assert.ErrorIs(t, err, ErrNoBacklight)
}

func TestNew_NamedDeviceMissing(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "intel_backlight", "96000", "48000")

	_, err := New("amdgpu_bl0", WithSysfsRoot(root), WithBusObject(&fakeSession{}))
	assert.ErrorIs(t, err, ErrNoBacklight)
}

func TestNew_ZeroMax(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "broken", "0", "0")

	_, err := New("broken", WithSysfsRoot(root), WithBusObject(&fakeSession{}))
	assert.ErrorIs(t, err, ErrNoBacklight)
}

func TestPanel_Brightness(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "intel_backlight", "96000", "48000")

	p, err := New("intel_backlight", WithSysfsRoot(root), WithBusObject(&fakeSession{}))
	require.NoError(t, err)

	got, err := p.Brightness()
	require.NoError(t, err)
	assert.Equal(t, uint32(50), got)
}

func TestPanel_SetBrightness(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "intel_backlight", "96000", "48000")
	session := &fakeSession{}

	p, err := New("intel_backlight", WithSysfsRoot(root), WithBusObject(session))
	require.NoError(t, err)

	require.NoError(t, p.SetBrightness(25))
	assert.Equal(t, "org.freedesktop.login1.Session.SetBrightness", session.method)
	assert.Equal(t, []interface{}{"backlight", "intel_backlight", uint32(24000)}, session.args)

	require.NoError(t, p.SetBrightness(250))
	assert.Equal(t, uint32(96000), session.args[2], "percent above 100 clamps")
}

func TestPanel_SetBrightnessError(t *testing.T) {
	root := t.TempDir()
	writeDevice(t, root, "intel_backlight", "100", "10")
	session := &fakeSession{err: errors.New("access denied")}

	p, err := New("intel_backlight", WithSysfsRoot(root), WithBusObject(session))
	require.NoError(t, err)

	err = p.SetBrightness(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.NoError(t, p.Close())
}
