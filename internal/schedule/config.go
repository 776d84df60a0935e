// SPDX-License-Identifier: GPL-3.0-only

package schedule

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// MaxBrightness is the upper bound of period brightness levels.
const MaxBrightness uint32 = 100

var (
	ErrEqualStartTimes   = errors.New("daytime and nighttime start must differ")
	ErrInvalidTimeOfDay  = errors.New("invalid time of day")
	ErrInvalidBrightness = errors.New("brightness must be between 0 and 100")
	ErrNegativeDuration  = errors.New("transition duration must not be negative")
	ErrInvalidDuration   = errors.New("duration is not a finite representable value")
)

// Config describes the day/night brightness schedule. Start times are offsets
// from local midnight.
type Config struct {
	DaytimeStart    time.Duration
	NighttimeStart  time.Duration
	DayBrightness   uint32
	NightBrightness uint32
	DayToNight      time.Duration
	NightToDay      time.Duration
}

// DefaultConfig returns the schedule used on first run.
func DefaultConfig() Config {
	return Config{
		DaytimeStart:    7 * time.Hour,
		NighttimeStart:  18 * time.Hour,
		DayBrightness:   90,
		NightBrightness: 50,
		DayToNight:      time.Minute,
		NightToDay:      time.Minute,
	}
}

// Validate reports the first problem found in c.
func (c Config) Validate() error {
	if c.DaytimeStart < 0 || c.DaytimeStart >= day {
		return fmt.Errorf("%w: daytime start %s", ErrInvalidTimeOfDay, c.DaytimeStart)
	}
	if c.NighttimeStart < 0 || c.NighttimeStart >= day {
		return fmt.Errorf("%w: nighttime start %s", ErrInvalidTimeOfDay, c.NighttimeStart)
	}
	if c.DaytimeStart == c.NighttimeStart {
		return ErrEqualStartTimes
	}
	if c.DayBrightness > MaxBrightness || c.NightBrightness > MaxBrightness {
		return ErrInvalidBrightness
	}
	if c.DayToNight < 0 || c.NightToDay < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// TimeOfDay returns the wall-clock offset of t from its local midnight.
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}

	var out time.Duration
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		out += time.Duration(v) * units[i]
	}
	return out, nil
}

// FormatTimeOfDay renders an offset from midnight as "HH:MM:SS".
func FormatTimeOfDay(d time.Duration) string {
	d = wrapDay(d).Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}

func wrapDay(d time.Duration) time.Duration {
	d %= day
	if d < 0 {
		d += day
	}
	return d
}

// MinutesToDuration converts fractional minutes, rejecting NaN, infinities
// and values outside the time.Duration range.
func MinutesToDuration(minutes float64) (time.Duration, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, fmt.Errorf("%w: %v minutes", ErrInvalidDuration, minutes)
	}
	ns := minutes * float64(time.Minute)
	if ns >= math.MaxInt64 || ns < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v minutes", ErrInvalidDuration, minutes)
	}
	return time.Duration(ns), nil
}
