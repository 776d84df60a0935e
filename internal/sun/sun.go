// SPDX-License-Identifier: GPL-3.0-only

// Package sun computes sunrise and sunset times with the Julian-day sunrise
// equation.
package sun

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// J2000 is the Julian date of 2000-01-01 12:00 UTC.
	j2000 = 2451545.0

	// unixEpochJD is the Julian date of 1970-01-01 00:00 UTC.
	unixEpochJD = 2440587.5

	// horizonElevation is the solar elevation at apparent sunrise and sunset,
	// corrected for atmospheric refraction and the solar disc radius.
	horizonElevation = -0.83

	// obliquity is the axial tilt of the Earth in degrees.
	obliquity = 23.4397
)

var (
	// ErrNoTransition means the sun does not cross the horizon on the given day.
	ErrNoTransition = errors.New("no sunrise or sunset on this day")

	// ErrPolarNight means the sun stays below the horizon all day.
	ErrPolarNight = fmt.Errorf("%w: polar night", ErrNoTransition)

	// ErrMidnightSun means the sun stays above the horizon all day.
	ErrMidnightSun = fmt.Errorf("%w: midnight sun", ErrNoTransition)

	// ErrInvalidCoordinate is returned for latitudes or longitudes outside
	// their valid range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Times holds the sunrise and sunset of one day.
type Times struct {
	Sunrise time.Time
	Sunset  time.Time
}

// SunriseSunset returns sunrise and sunset for the UTC calendar day of now at
// the given position. The results are expressed in now's location.
func SunriseSunset(lat, lon float64, now time.Time) (Times, error) {
	if err := validate(lat, lon); err != nil {
		return Times{}, err
	}

	n := float64(julianDayNumber(now.UTC())) - j2000 + 0.0008

	// Mean solar noon.
	jStar := n - lon/360

	// Solar mean anomaly.
	m := mod(357.5291+0.98560028*jStar, 360)

	// Equation of the center.
	c := 1.9148*sinDeg(m) + 0.02*sinDeg(2*m) + 0.0003*sinDeg(3*m)

	// Ecliptic longitude.
	lambda := mod(m+c+180+102.9372, 360)

	// Solar transit.
	transit := j2000 + jStar + 0.0053*sinDeg(m) - 0.0069*sinDeg(2*lambda)

	sinDec := sinDeg(lambda) * sinDeg(obliquity)
	cosDec := math.Cos(math.Asin(sinDec))

	cosOmega := (sinDeg(horizonElevation) - sinDeg(lat)*sinDec) / (cosDeg(lat) * cosDec)
	switch {
	case math.IsNaN(cosOmega):
		return Times{}, ErrInvalidCoordinate
	case cosOmega > 1:
		return Times{}, ErrPolarNight
	case cosOmega < -1:
		return Times{}, ErrMidnightSun
	}

	omega := math.Acos(cosOmega) * 180 / math.Pi

	loc := now.Location()
	return Times{
		Sunrise: julianToTime(transit - omega/360).In(loc),
		Sunset:  julianToTime(transit + omega/360).In(loc),
	}, nil
}

// ParseCoordinates parses and validates latitude and longitude given as
// decimal strings.
func ParseCoordinates(latitude, longitude string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latitude), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, latitude)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(longitude), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, longitude)
	}
	if err := validate(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func validate(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, lon)
	}
	return nil
}

// julianDayNumber returns the Julian day number of t's Gregorian calendar date.
func julianDayNumber(t time.Time) int {
	year, month, day := t.Date()
	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

func julianToTime(jd float64) time.Time {
	seconds := (jd - unixEpochJD) * 86400
	whole := math.Floor(seconds)
	return time.Unix(int64(whole), int64((seconds-whole)*1e9)).UTC().Round(time.Second)
}

func mod(x, y float64) float64 {
	r := math.Mod(x, y)
	if r < 0 {
		r += y
	}
	return r
}

func sinDeg(deg float64) float64 {
	return math.Sin(deg * math.Pi / 180)
}

func cosDeg(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}
