// Package airmass converts altitude to relative airmass.
package airmass

import "math"

// Floor is the altitude in degrees substituted for any altitude at or below
// the horizon, so that airmass saturates instead of diverging.
const Floor = 0.001

// Of returns the Pickering (2002) airmass for an altitude in degrees:
//
//	am = 1 / sin((h + 244/(165 + 47·h^1.1)) · π/180)
func Of(altitude float64) float64 {
	h := altitude
	if h <= 0 || math.IsNaN(h) {
		h = Floor
	}
	return 1 / math.Sin((h+244/(165+47*math.Pow(h, 1.1)))*math.Pi/180)
}

// Series returns the airmass of every altitude in alts.
func Series(alts []float64) []float64 {
	out := make([]float64, len(alts))
	for i, h := range alts {
		out[i] = Of(h)
	}
	return out
}

// Min returns the smallest airmass of a series, or +Inf for an empty one.
func Min(series []float64) float64 {
	min := math.Inf(1)
	for _, am := range series {
		if am < min {
			min = am
		}
	}
	return min
}
