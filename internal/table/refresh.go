package table

import (
	"fmt"
	"math"
	"time"

	"github.com/obscode/magdash/internal/airmass"
)

// Clock holds the display strings for one instant.
type Clock struct {
	UT string `json:"ut"`
	LT string `json:"lt"`
	ST string `json:"st"`
}

const clockLayout = "15:04:05"

// ClockAt returns universal, local and sidereal time strings for instant.
func ClockAt(eph Ephemeris, instant time.Time) Clock {
	return Clock{
		UT: instant.UTC().Format(clockLayout),
		LT: instant.In(eph.Location()).Format(clockLayout),
		ST: FormatHours(eph.LocalSiderealTime(instant)),
	}
}

// FormatHours renders decimal hours as hh:mm:ss.
func FormatHours(h float64) string {
	total := int(math.Round(math.Mod(h, 24) * 3600))
	if total < 0 {
		total += 24 * 3600
	}
	total %= 24 * 3600
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

// Refresh replaces the current-position columns for instant. Either every
// row is updated or, on an ephemeris failure, none is and the previous
// values remain.
func Refresh(t *Table, eph Ephemeris, instant time.Time) error {
	n := len(t.Targets)
	c := Current{
		Instant:     instant,
		Clock:       ClockAt(eph, instant),
		LST:         eph.LocalSiderealTime(instant),
		Altitude:    make([]float64, n),
		Azimuth:     make([]float64, n),
		ZenithAngle: make([]float64, n),
		Airmass:     make([]float64, n),
		HourAngle:   make([]float64, n),
	}

	for i, tg := range t.Targets {
		h, err := eph.Horizontal(instant, tg.RA, tg.Dec)
		if err != nil {
			return fmt.Errorf("refreshing %q: %w", tg.Name, err)
		}
		c.Altitude[i] = h.Altitude
		c.Azimuth[i] = h.Azimuth
		c.ZenithAngle[i] = 90 - h.Altitude
		c.Airmass[i] = airmass.Of(h.Altitude)
		c.HourAngle[i] = h.HourAngle
	}

	t.Current = c
	return nil
}
