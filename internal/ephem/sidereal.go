// Package ephem is the ephemeris adapter for the dashboard: observing sites,
// Julian dates, sidereal time, a low-precision solar position, the
// equatorial → horizontal transform, sun event search and coordinate parsing.
//
// Accuracy targets the needs of night planning (a few arcminutes for the sun,
// sub-second for sidereal time). Refraction, nutation and polar motion are
// ignored.
package ephem

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/unit"
)

// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a time.Time (UTC) to Julian Date.
// Uses the standard astronomical algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Adjust year/month for Jan/Feb (treat as months 13/14 of previous year).
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// GMST returns Greenwich Mean Sidereal Time in radians, in [0, 2π).
//
// go-satellite evaluates the IAU-82 model (Vallado Eq 3-47) at whole-second
// resolution; the sub-second remainder is added at Earth's sidereal rate.
func GMST(t time.Time) float64 {
	t = t.UTC()
	gmst := satellite.GSTimeFromDate(
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)
	gmst += float64(t.Nanosecond()) / 1e9 * OmegaEarth
	return unit.PMod(gmst, 2*math.Pi)
}

// LocalSiderealTime returns the local mean sidereal time at the site in
// hours, in [0, 24).
func (s Site) LocalSiderealTime(t time.Time) float64 {
	lst := GMST(t) + s.Longitude*math.Pi/180
	return unit.PMod(lst*12/math.Pi, 24)
}

// WrapHours folds an hour angle into the principal range [-12, 12).
func WrapHours(h float64) float64 {
	return unit.PMod(h+12, 24) - 12
}
