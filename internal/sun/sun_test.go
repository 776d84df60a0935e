// SPDX-License-Identifier: GPL-3.0-only

package sun

import (
	"testing"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func within(t *testing.T, want, got time.Time, tolerance time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqualf(t, diff, tolerance, "want %s, got %s", want.Format(time.RFC3339), got.Format(time.RFC3339))
}

func TestSunriseSunset_EquatorOnEquinox(t *testing.T) {
	now := time.Date(2024, time.March, 20, 3, 0, 0, 0, time.UTC)

	times, err := SunriseSunset(0, 0, now)
	require.NoError(t, err)

	within(t, time.Date(2024, time.March, 20, 6, 0, 0, 0, time.UTC), times.Sunrise, 15*time.Minute)
	within(t, time.Date(2024, time.March, 20, 18, 0, 0, 0, time.UTC), times.Sunset, 15*time.Minute)
}

func TestSunriseSunset_SameDayRegardlessOfTimeOfDay(t *testing.T) {
	morning, err := SunriseSunset(48.85, 2.35, time.Date(2024, time.May, 1, 0, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	evening, err := SunriseSunset(48.85, 2.35, time.Date(2024, time.May, 1, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, morning, evening)
}

func TestSunriseSunset_MatchesReferenceImplementation(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		date     time.Time
	}{
		{name: "Berlin winter", lat: 52.52, lon: 13.405, date: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)},
		{name: "Berlin summer", lat: 52.52, lon: 13.405, date: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{name: "New York autumn", lat: 40.7128, lon: -74.006, date: time.Date(2023, time.October, 10, 0, 0, 0, 0, time.UTC)},
		{name: "Sydney", lat: -33.8688, lon: 151.2093, date: time.Date(2024, time.December, 5, 0, 0, 0, 0, time.UTC)},
		{name: "Reykjavik spring", lat: 64.1466, lon: -21.9426, date: time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantRise, wantSet := sunrise.SunriseSunset(tt.lat, tt.lon, tt.date.Year(), tt.date.Month(), tt.date.Day())

			got, err := SunriseSunset(tt.lat, tt.lon, tt.date)
			require.NoError(t, err)

			within(t, wantRise, got.Sunrise, 5*time.Minute)
			within(t, wantSet, got.Sunset, 5*time.Minute)
			assert.True(t, got.Sunrise.Before(got.Sunset))
		})
	}
}

func TestSunriseSunset_ResultInCallerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, loc)

	times, err := SunriseSunset(0, 0, now)
	require.NoError(t, err)

	assert.Equal(t, loc, times.Sunrise.Location())
	assert.Equal(t, loc, times.Sunset.Location())
	within(t, time.Date(2024, time.March, 20, 8, 0, 0, 0, loc), times.Sunrise, 15*time.Minute)
}

func TestSunriseSunset_PolarCases(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		date time.Time
		want error
	}{
		{name: "arctic summer", lat: 80, date: time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC), want: ErrMidnightSun},
		{name: "arctic winter", lat: 80, date: time.Date(2024, time.December, 21, 0, 0, 0, 0, time.UTC), want: ErrPolarNight},
		{name: "antarctic winter", lat: -80, date: time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC), want: ErrPolarNight},
		{name: "north pole summer", lat: 90, date: time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC), want: ErrMidnightSun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times, err := SunriseSunset(tt.lat, 15, tt.date)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrNoTransition)
			assert.True(t, times.Sunrise.IsZero())
			assert.True(t, times.Sunset.IsZero())
		})
	}
}

func TestSunriseSunset_InvalidCoordinates(t *testing.T) {
	_, err := SunriseSunset(91, 0, time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = SunriseSunset(0, -181, time.Now())
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon string
		wantLat  float64
		wantLon  float64
		wantErr  bool
	}{
		{name: "valid", lat: "52.52", lon: "13.405", wantLat: 52.52, wantLon: 13.405},
		{name: "negative with spaces", lat: " -33.86 ", lon: "151.2", wantLat: -33.86, wantLon: 151.2},
		{name: "integers", lat: "0", lon: "0"},
		{name: "empty latitude", lat: "", lon: "10", wantErr: true},
		{name: "garbage longitude", lat: "10", lon: "east", wantErr: true},
		{name: "latitude out of range", lat: "95", lon: "10", wantErr: true},
		{name: "longitude out of range", lat: "10", lon: "200", wantErr: true},
		{name: "NaN", lat: "NaN", lon: "10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, err := ParseCoordinates(tt.lat, tt.lon)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLat, lat, 1e-9)
			assert.InDelta(t, tt.wantLon, lon, 1e-9)
		})
	}
}

func TestJulianDayNumber(t *testing.T) {
	assert.Equal(t, 2451545, julianDayNumber(time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2460390, julianDayNumber(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)))
}
