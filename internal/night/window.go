// Package night builds the dusk-to-dawn time window used for nightly
// observability series.
package night

import (
	"fmt"
	"time"

	"github.com/obscode/magdash/internal/ephem"
)

// DefaultStep is the spacing of the time grid.
const DefaultStep = 5 * time.Minute

// margin extends the grid before sunset and after sunrise.
const margin = time.Hour

// Window describes one night at one site. Grid is strictly increasing from
// Sunset−1h until the first value at or past Sunrise+1h.
type Window struct {
	Site            string        `json:"site"`
	Sunset          time.Time     `json:"sunset"`
	Sunrise         time.Time     `json:"sunrise"`
	TwilightEvening time.Time     `json:"twilight_evening"` // zero without astronomical night
	TwilightMorning time.Time     `json:"twilight_morning"` // zero without astronomical night
	ValidFrom       time.Time     `json:"valid_from"`       // sunrise preceding Sunset
	Step            time.Duration `json:"step"`
	Grid            []time.Time   `json:"grid"`
}

// HasAstronomicalNight reports whether the sun reaches −18° during the night.
func (w *Window) HasAstronomicalNight() bool {
	return !w.TwilightEvening.IsZero() && !w.TwilightMorning.IsZero()
}

// Covers reports whether w is the window Build returns for instant t.
func (w *Window) Covers(t time.Time) bool {
	return !t.Before(w.ValidFrom) && t.Before(w.Sunrise)
}

// Build computes the night window for ref at site. During daytime the
// upcoming night is returned; during the night, the current one. A site
// where the sun does not rise or set yields an *ephem.Error and no window.
func Build(ref time.Time, site ephem.Site, step time.Duration) (*Window, error) {
	if step <= 0 {
		step = DefaultStep
	}

	ev, err := site.SunEvents(ref)
	if err != nil {
		return nil, fmt.Errorf("building night window: %w", err)
	}
	if ev.Sunset.Before(ev.Sunrise) {
		// Sun is up: describe the night that starts at the next sunset.
		ref = ev.Sunset.Add(time.Minute)
	}

	sunset, err := site.PrevEvent(ref, ephem.Sunset)
	if err != nil {
		return nil, fmt.Errorf("building night window: %w", err)
	}
	sunrise, err := site.NextEvent(ref, ephem.Sunrise)
	if err != nil {
		return nil, fmt.Errorf("building night window: %w", err)
	}
	validFrom, err := site.PrevEvent(sunset, ephem.Sunrise)
	if err != nil {
		return nil, fmt.Errorf("building night window: %w", err)
	}

	w := &Window{
		Site:      site.Name,
		Sunset:    sunset,
		Sunrise:   sunrise,
		ValidFrom: validFrom,
		Step:      step,
		Grid:      grid(sunset.Add(-margin), sunrise.Add(margin), step),
	}

	dusk, err := site.NextEvent(sunset, ephem.AstronomicalDusk)
	if err == nil && dusk.Before(sunrise) {
		dawn, err := site.PrevEvent(sunrise, ephem.AstronomicalDawn)
		if err == nil && dawn.After(dusk) {
			w.TwilightEvening = dusk
			w.TwilightMorning = dawn
		}
	}

	return w, nil
}

func grid(start, end time.Time, step time.Duration) []time.Time {
	n := int(end.Sub(start)/step) + 2
	out := make([]time.Time, 0, n)
	for t := start; ; t = t.Add(step) {
		out = append(out, t)
		if !t.Before(end) {
			break
		}
	}
	return out
}
