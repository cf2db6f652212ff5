package table

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/obscode/magdash/internal/airmass"
	"github.com/obscode/magdash/internal/ephem"
)

// Ephemeris is the subset of the ephemeris adapter the table needs.
// Implementations must be safe for concurrent use.
type Ephemeris interface {
	Horizontal(t time.Time, raHours, decDeg float64) (ephem.Horizontal, error)
	LocalSiderealTime(t time.Time) float64
	Location() *time.Location
}

// ComputeSeries fills the altitude and airmass series over the window grid
// and the nightly minimum airmass. Targets are processed in parallel; the
// call returns after all of them finish. On error the existing series are
// left unchanged.
func (t *Table) ComputeSeries(ctx context.Context, eph Ephemeris) error {
	if t.Window == nil {
		return errors.New("computing series: table has no night window")
	}
	grid := t.Window.Grid
	n := len(t.Targets)

	alt := make([][]float64, n)
	am := make([][]float64, n)
	minAm := make([]float64, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range t.Targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tg := t.Targets[i]
			series := make([]float64, len(grid))
			for j, at := range grid {
				h, err := eph.Horizontal(at, tg.RA, tg.Dec)
				if err != nil {
					return fmt.Errorf("target %q: %w", tg.Name, err)
				}
				series[j] = h.Altitude
			}
			alt[i] = series
			am[i] = airmass.Series(series)
			minAm[i] = airmass.Min(am[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("computing series: %w", err)
	}

	t.Altitude, t.Airmass, t.MinAirmass = alt, am, minAm
	return nil
}

// ComputeAges derives age and cadence (days) for the instant now. Age is
// measured from the age reference JD when it is set (> 1), else 0. Cadence
// is the time since last observation, NaN for targets never observed.
func (t *Table) ComputeAges(now time.Time) {
	jd := ephem.JulianDate(now)

	if ref, ok := t.Number[FieldAgeRef]; ok {
		age := make([]float64, len(ref))
		for i, r := range ref {
			if r > 1 {
				age[i] = jd - r
			}
		}
		t.Number[FieldAge] = age
	}

	if last, ok := t.Number[FieldLastObserved]; ok {
		cad := make([]float64, len(last))
		for i, l := range last {
			if math.IsNaN(l) || l <= 0 {
				cad[i] = math.NaN()
				continue
			}
			cad[i] = jd - l
		}
		t.Number[FieldCadence] = cad
	}
}
