// SPDX-License-Identifier: GPL-3.0-only

package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/schedule"
)

// Location is the persisted location mode state. Coordinates are kept as
// the strings the user entered.
type Location struct {
	Enabled   bool
	Latitude  string
	Longitude string
}

// LoadSchedule reads the schedule, falling back to fallback for every key
// that is missing or unparsable. Only store failures are returned.
func LoadSchedule(s Store, fallback schedule.Config) (schedule.Config, error) {
	cfg := fallback

	loaders := []struct {
		key   string
		apply func(string) error
	}{
		{KeyDaytimeStart, func(v string) (err error) { cfg.DaytimeStart, err = schedule.ParseTimeOfDay(v); return }},
		{KeyNighttimeStart, func(v string) (err error) { cfg.NighttimeStart, err = schedule.ParseTimeOfDay(v); return }},
		{KeyDayBrightness, func(v string) (err error) { cfg.DayBrightness, err = parseBrightness(v); return }},
		{KeyNightBrightness, func(v string) (err error) { cfg.NightBrightness, err = parseBrightness(v); return }},
		{KeyDayToNight, func(v string) (err error) { cfg.DayToNight, err = parseMinutes(v); return }},
		{KeyNightToDay, func(v string) (err error) { cfg.NightToDay, err = parseMinutes(v); return }},
	}

	for _, l := range loaders {
		raw, err := s.ReadSetting(l.key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fallback, err
		}
		if err := l.apply(raw); err != nil {
			log.Warn().Err(err).Str("key", l.key).Str("value", raw).Msg("Ignoring invalid setting")
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("Stored schedule is invalid, using defaults")
		return fallback, nil
	}
	return cfg, nil
}

// SaveSchedule writes every schedule key.
func SaveSchedule(s Store, cfg schedule.Config) error {
	values := [][2]string{
		{KeyDaytimeStart, schedule.FormatTimeOfDay(cfg.DaytimeStart)},
		{KeyNighttimeStart, schedule.FormatTimeOfDay(cfg.NighttimeStart)},
		{KeyDayBrightness, strconv.FormatUint(uint64(cfg.DayBrightness), 10)},
		{KeyNightBrightness, strconv.FormatUint(uint64(cfg.NightBrightness), 10)},
		{KeyDayToNight, formatMinutes(cfg.DayToNight)},
		{KeyNightToDay, formatMinutes(cfg.NightToDay)},
	}
	for _, kv := range values {
		if err := s.WriteSetting(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// LoadLocation reads the location settings. Missing keys leave zero values.
func LoadLocation(s Store) (Location, error) {
	var loc Location

	enabled, err := readOptional(s, KeyLocationEnabled)
	if err != nil {
		return loc, err
	}
	loc.Enabled = strings.EqualFold(enabled, "true")

	if loc.Latitude, err = readOptional(s, KeyLocationLatitude); err != nil {
		return loc, err
	}
	if loc.Longitude, err = readOptional(s, KeyLocationLongitude); err != nil {
		return loc, err
	}
	return loc, nil
}

// SaveLocation writes the location settings.
func SaveLocation(s Store, loc Location) error {
	if err := s.WriteSetting(KeyLocationEnabled, formatBool(loc.Enabled)); err != nil {
		return err
	}
	if err := s.WriteSetting(KeyLocationLatitude, loc.Latitude); err != nil {
		return err
	}
	return s.WriteSetting(KeyLocationLongitude, loc.Longitude)
}

func readOptional(s Store, key string) (string, error) {
	v, err := s.ReadSetting(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

func parseBrightness(v string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid brightness %q: %w", v, err)
	}
	return uint32(n), nil
}

// parseMinutes accepts fractional minutes, e.g. "1.5".
func parseMinutes(v string) (time.Duration, error) {
	m, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes %q: %w", v, err)
	}
	return schedule.MinutesToDuration(m)
}

func formatMinutes(d time.Duration) string {
	return strconv.FormatFloat(d.Minutes(), 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
