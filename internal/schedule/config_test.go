// SPDX-License-Identifier: GPL-3.0-only

package schedule

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "07:00", want: 7 * time.Hour},
		{input: "18:30:15", want: 18*time.Hour + 30*time.Minute + 15*time.Second},
		{input: " 00:00 ", want: 0},
		{input: "23:59:59", want: 24*time.Hour - time.Second},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "7", wantErr: true},
		{input: "a:b", wantErr: true},
		{input: "1:2:3:4", wantErr: true},
		{input: "-1:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTimeOfDay(t *testing.T) {
	assert.Equal(t, "07:00:00", FormatTimeOfDay(7*time.Hour))
	assert.Equal(t, "18:05:09", FormatTimeOfDay(18*time.Hour+5*time.Minute+9*time.Second))
	assert.Equal(t, "00:00:00", FormatTimeOfDay(24*time.Hour))
	assert.Equal(t, "23:00:00", FormatTimeOfDay(-time.Hour))
}

func TestTimeOfDay(t *testing.T) {
	ts := time.Date(2024, time.June, 1, 13, 45, 30, 500, time.UTC)
	assert.Equal(t, 13*time.Hour+45*time.Minute+30*time.Second+500, TimeOfDay(ts))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.DaytimeStart = -time.Minute
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTimeOfDay)

	cfg = DefaultConfig()
	cfg.NightBrightness = 200
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidBrightness)

	cfg = DefaultConfig()
	cfg.DayToNight = -1
	assert.ErrorIs(t, cfg.Validate(), ErrNegativeDuration)
}

func TestMinutesToDuration(t *testing.T) {
	tests := []struct {
		name    string
		minutes float64
		want    time.Duration
		wantErr bool
	}{
		{name: "whole minutes", minutes: 30, want: 30 * time.Minute},
		{name: "fractional", minutes: 1.5, want: 90 * time.Second},
		{name: "zero", minutes: 0, want: 0},
		{name: "negative passes through", minutes: -1, want: -time.Minute},
		{name: "NaN", minutes: math.NaN(), wantErr: true},
		{name: "positive infinity", minutes: math.Inf(1), wantErr: true},
		{name: "negative infinity", minutes: math.Inf(-1), wantErr: true},
		{name: "too large", minutes: 1e300, wantErr: true},
		{name: "too small", minutes: -1e300, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MinutesToDuration(tt.minutes)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDuration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriod_String(t *testing.T) {
	assert.Equal(t, "day", PeriodDay.String())
	assert.Equal(t, "night", PeriodNight.String())
	assert.Equal(t, "unknown", PeriodUnknown.String())
}
