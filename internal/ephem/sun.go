package ephem

import (
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// SunPosition returns the apparent right ascension (hours) and declination
// (degrees) of the sun using the low-precision formulae of the Astronomical
// Almanac (accurate to ~0.01° between 1950 and 2050).
func SunPosition(t time.Time) (raHours, decDeg float64) {
	n := JulianDate(t) - j2000

	L := unit.PMod(280.460+0.9856474*n, 360)
	g := unit.PMod(357.528+0.9856003*n, 360) * math.Pi / 180

	lambda := (L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * math.Pi / 180
	eps := (23.439 - 0.0000004*n) * math.Pi / 180

	alpha := math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda))
	delta := math.Asin(math.Sin(eps) * math.Sin(lambda))

	return unit.PMod(alpha*12/math.Pi, 24), delta * 180 / math.Pi
}

// SunAltitude returns the geometric altitude of the sun's centre in degrees.
func (s Site) SunAltitude(t time.Time) float64 {
	ra, dec := SunPosition(t)
	alt, _, _ := s.horizontal(t, ra, dec)
	return alt
}
