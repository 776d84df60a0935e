// SPDX-License-Identifier: GPL-3.0-only

// Package ddcutil controls DDC/CI monitors through the ddcutil command line tool.
package ddcutil

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shini4i/unblind-daemon/internal/display"
)

// DriverName is the Handle.Driver value of DDC/CI monitors.
const DriverName = "ddc"

// vcpBrightness is the MCCS luminance feature code.
const vcpBrightness = "10"

var (
	ErrToolNotFound     = errors.New("ddcutil not found")
	ErrCommandFailed    = errors.New("ddcutil command failed")
	ErrUnexpectedOutput = errors.New("unexpected ddcutil output")
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return out, err
		}
		return out, fmt.Errorf("%w: %s", err, msg)
	}
	return out, nil
}

// Driver is a display.Driver backed by ddcutil. Monitors are keyed by I2C bus
// number.
type Driver struct {
	path    string
	timeout time.Duration
	extra   []string
	run     Runner

	// customRunner skips the PATH lookup.
	customRunner bool
}

var _ display.Driver = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithRunner replaces command execution.
func WithRunner(r Runner) Option {
	return func(d *Driver) {
		d.run = r
		d.customRunner = true
	}
}

// WithTimeout bounds each ddcutil invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithExtraArgs appends arguments such as "--sleep-multiplier" to every call.
func WithExtraArgs(args ...string) Option {
	return func(d *Driver) {
		d.extra = append(d.extra, args...)
	}
}

// New locates the ddcutil binary. An empty path searches PATH.
func New(path string, opts ...Option) (*Driver, error) {
	d := &Driver{
		path:    path,
		timeout: 5 * time.Second,
		run:     execRunner,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.path == "" {
		d.path = "ddcutil"
	}
	if resolved, err := exec.LookPath(d.path); err == nil {
		d.path = resolved
	} else if !d.customRunner {
		return nil, fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	return d, nil
}

// Name implements display.Driver.
func (d *Driver) Name() string {
	return DriverName
}

func (d *Driver) exec(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	full := append(append([]string{}, d.extra...), args...)
	out, err := d.run(ctx, d.path, full...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrCommandFailed, d.path, strings.Join(full, " "), err)
	}
	return out, nil
}

// ListDisplays runs "ddcutil detect --brief".
func (d *Driver) ListDisplays() ([]display.Handle, error) {
	out, err := d.exec("detect", "--brief")
	if err != nil {
		return nil, err
	}
	return parseDetect(out), nil
}

// parseDetect turns the detect report into handles. Entries headed
// "Invalid display" are skipped.
func parseDetect(out []byte) []display.Handle {
	var (
		handles []display.Handle
		current *display.Handle
	)
	flush := func() {
		if current != nil && current.Key != "" {
			handles = append(handles, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "Display "):
			flush()
			current = &display.Handle{Driver: DriverName}
		case strings.HasPrefix(line, "Invalid display"):
			flush()
		case current == nil:
		case strings.HasPrefix(trimmed, "I2C bus:"):
			bus := strings.TrimSpace(strings.TrimPrefix(trimmed, "I2C bus:"))
			current.Key = strings.TrimPrefix(bus, "/dev/i2c-")
		case strings.HasPrefix(trimmed, "Monitor:"):
			// MFG:MODEL:SERIAL
			parts := strings.SplitN(strings.TrimSpace(strings.TrimPrefix(trimmed, "Monitor:")), ":", 3)
			if len(parts) >= 2 && parts[1] != "" {
				current.Name = parts[1]
			} else {
				current.Name = parts[0]
			}
		}
	}
	flush()
	return handles
}

// QueryCapabilities reports CapBrightness when the luminance feature is readable.
func (d *Driver) QueryCapabilities(h display.Handle) (display.Capabilities, error) {
	if _, err := d.QueryBrightnessRange(h); err != nil {
		if errors.Is(err, ErrUnexpectedOutput) {
			return display.Capabilities{}, nil
		}
		return display.Capabilities{}, err
	}
	return display.Capabilities{Flags: display.CapBrightness}, nil
}

// QueryBrightnessRange runs "getvcp 10 --brief" on the monitor's bus.
func (d *Driver) QueryBrightnessRange(h display.Handle) (display.BrightnessRange, error) {
	out, err := d.exec("--bus", h.Key, "--brief", "getvcp", vcpBrightness)
	if err != nil {
		return display.BrightnessRange{}, err
	}
	return parseGetVCP(out)
}

// parseGetVCP parses "VCP 10 C <current> <max>".
func parseGetVCP(out []byte) (display.BrightnessRange, error) {
	fields := strings.Fields(string(out))
	if len(fields) < 5 || fields[0] != "VCP" || fields[2] != "C" {
		return display.BrightnessRange{}, fmt.Errorf("%w: %q", ErrUnexpectedOutput, strings.TrimSpace(string(out)))
	}

	current, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return display.BrightnessRange{}, fmt.Errorf("%w: current value %q", ErrUnexpectedOutput, fields[3])
	}
	maximum, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return display.BrightnessRange{}, fmt.Errorf("%w: max value %q", ErrUnexpectedOutput, fields[4])
	}
	return display.BrightnessRange{Min: 0, Max: uint32(maximum), Current: uint32(current)}, nil
}

// SetBrightness runs "setvcp 10 <value>" on the monitor's bus.
func (d *Driver) SetBrightness(h display.Handle, value uint32) error {
	_, err := d.exec("--bus", h.Key, "setvcp", vcpBrightness, strconv.FormatUint(uint64(value), 10))
	return err
}

// Close implements display.Driver. ddcutil holds no state between calls.
func (d *Driver) Close() error {
	return nil
}
