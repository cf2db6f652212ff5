package ephem

import (
	"time"
)

// Event identifies a solar altitude crossing.
type Event int

const (
	Sunset Event = iota
	Sunrise
	AstronomicalDusk // end of evening twilight
	AstronomicalDawn // start of morning twilight
)

const (
	// HorizonGeometric is the solar altitude used for sunrise and sunset.
	HorizonGeometric = 0.0
	// HorizonAstronomical is the solar altitude delimiting astronomical twilight.
	HorizonAstronomical = -18.0

	eventScanStep   = 10 * time.Minute
	eventSearchSpan = 48 * time.Hour
	eventTolerance  = time.Second
)

func (e Event) String() string {
	switch e {
	case Sunset:
		return "sunset"
	case Sunrise:
		return "sunrise"
	case AstronomicalDusk:
		return "astronomical dusk"
	case AstronomicalDawn:
		return "astronomical dawn"
	}
	return "unknown"
}

func (e Event) horizon() float64 {
	if e == AstronomicalDusk || e == AstronomicalDawn {
		return HorizonAstronomical
	}
	return HorizonGeometric
}

func (e Event) rising() bool {
	return e == Sunrise || e == AstronomicalDawn
}

// SunEvents holds the next occurrence of each solar event after an instant.
// Twilight fields are zero when the sun does not reach −18° within the
// search span.
type SunEvents struct {
	Sunset          time.Time
	Sunrise         time.Time
	TwilightEvening time.Time
	TwilightMorning time.Time
}

// SunEvents returns the next sunset, sunrise and astronomical twilight
// instants after t. Missing sunrise or sunset is an *Error.
func (s Site) SunEvents(t time.Time) (SunEvents, error) {
	var ev SunEvents
	var err error
	if ev.Sunset, err = s.NextEvent(t, Sunset); err != nil {
		return SunEvents{}, err
	}
	if ev.Sunrise, err = s.NextEvent(t, Sunrise); err != nil {
		return SunEvents{}, err
	}
	ev.TwilightEvening, _ = s.NextEvent(t, AstronomicalDusk)
	ev.TwilightMorning, _ = s.NextEvent(t, AstronomicalDawn)
	return ev, nil
}

// NextEvent returns the first occurrence of ev strictly after t.
func (s Site) NextEvent(t time.Time, ev Event) (time.Time, error) {
	return s.findEvent(t, ev, true)
}

// PrevEvent returns the last occurrence of ev at or before t.
func (s Site) PrevEvent(t time.Time, ev Event) (time.Time, error) {
	return s.findEvent(t, ev, false)
}

// findEvent scans in coarse steps for a bracket where the solar altitude
// crosses the event horizon in the event's direction, then bisects the
// bracket down to eventTolerance.
func (s Site) findEvent(t time.Time, ev Event, forward bool) (time.Time, error) {
	h0 := ev.horizon()
	f := func(at time.Time) float64 { return s.SunAltitude(at) - h0 }

	crossed := func(fa, fb float64) bool {
		if ev.rising() {
			return fa < 0 && fb >= 0
		}
		return fa >= 0 && fb < 0
	}

	limit := t.Add(eventSearchSpan)
	if !forward {
		limit = t.Add(-eventSearchSpan)
	}

	var a, b time.Time
	var fa, fb float64
	if forward {
		a, fa = t, f(t)
	} else {
		b, fb = t, f(t)
	}

	for {
		if forward {
			if a.After(limit) {
				break
			}
			b = a.Add(eventScanStep)
			fb = f(b)
		} else {
			if b.Before(limit) {
				break
			}
			a = b.Add(-eventScanStep)
			fa = f(a)
		}

		if crossed(fa, fb) {
			return bisect(f, crossed, a, b, fa), nil
		}

		if forward {
			a, fa = b, fb
		} else {
			b, fb = a, fa
		}
	}

	return time.Time{}, &Error{Op: ev.String(), Site: s.Name, Time: t, Err: ErrNoEvent}
}

// bisect narrows [a, b] around the crossing and returns the first instant
// on the far side of it.
func bisect(f func(time.Time) float64, crossed func(fa, fb float64) bool, a, b time.Time, fa float64) time.Time {
	for b.Sub(a) > eventTolerance {
		m := a.Add(b.Sub(a) / 2)
		fm := f(m)
		if crossed(fa, fm) {
			b = m
		} else {
			a, fa = m, fm
		}
	}
	return b
}
