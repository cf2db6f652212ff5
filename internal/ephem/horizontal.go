package ephem

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
)

// Horizontal holds the position of a target relative to the local horizon.
type Horizontal struct {
	Altitude  float64 // degrees, 0 = horizon, 90 = zenith
	Azimuth   float64 // degrees, 0 = North, measured through East
	HourAngle float64 // hours, RA − LST wrapped to [-12, 12); positive before transit
}

// Horizontal converts equatorial coordinates (RA in hours, Dec in degrees) to
// horizontal coordinates for the site at time t.
func (s Site) Horizontal(t time.Time, raHours, decDeg float64) (Horizontal, error) {
	if math.IsNaN(raHours) || math.IsInf(raHours, 0) || math.IsNaN(decDeg) || math.Abs(decDeg) > 90 {
		return Horizontal{}, &Error{
			Op:   "horizontal",
			Site: s.Name,
			Time: t,
			Err:  fmt.Errorf("invalid coordinates ra=%v dec=%v", raHours, decDeg),
		}
	}
	alt, az, lha := s.horizontal(t, raHours, decDeg)
	return Horizontal{Altitude: alt, Azimuth: az, HourAngle: WrapHours(-lha)}, nil
}

// horizontal is the unchecked transform shared with the sun computations.
// The returned ha is the local hour angle LST − RA.
//
//	sin h = sin φ sin δ + cos φ cos δ cos H
//	A     = atan2(−cos δ sin H, sin δ cos φ − cos δ sin φ cos H)
func (s Site) horizontal(t time.Time, raHours, decDeg float64) (alt, az, ha float64) {
	ha = WrapHours(s.LocalSiderealTime(t) - raHours)

	H := ha * math.Pi / 12
	dec := decDeg * math.Pi / 180
	lat := s.Latitude * math.Pi / 180

	sinAlt := math.Sin(lat)*math.Sin(dec) + math.Cos(lat)*math.Cos(dec)*math.Cos(H)
	sinAlt = math.Max(-1, math.Min(1, sinAlt))

	y := -math.Cos(dec) * math.Sin(H)
	x := math.Sin(dec)*math.Cos(lat) - math.Cos(dec)*math.Sin(lat)*math.Cos(H)

	alt = math.Asin(sinAlt) * 180 / math.Pi
	az = unit.PMod(math.Atan2(y, x)*180/math.Pi, 360)
	return alt, az, ha
}
