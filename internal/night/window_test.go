package night

import (
	"errors"
	"testing"
	"time"

	"github.com/obscode/magdash/internal/ephem"
)

var lco = ephem.Site{Name: "LCO", Latitude: -29.0146, Longitude: -70.6926, Elevation: 2380}

func checkGrid(t *testing.T, w *Window) {
	t.Helper()
	if len(w.Grid) < 2 {
		t.Fatalf("grid has %d points", len(w.Grid))
	}
	for i := 1; i < len(w.Grid); i++ {
		if !w.Grid[i].After(w.Grid[i-1]) {
			t.Fatalf("grid not strictly increasing at %d: %v then %v", i, w.Grid[i-1], w.Grid[i])
		}
		if d := w.Grid[i].Sub(w.Grid[i-1]); d != w.Step {
			t.Fatalf("grid step %v at %d, want %v", d, i, w.Step)
		}
	}
	if first := w.Grid[0]; first.After(w.Sunset.Add(-time.Hour + w.Step)) {
		t.Errorf("first grid point %v after sunset-1h+step", first)
	}
	end := w.Sunrise.Add(time.Hour)
	last := w.Grid[len(w.Grid)-1]
	if last.Before(end) {
		t.Errorf("last grid point %v before sunrise+1h %v", last, end)
	}
	if !w.Grid[len(w.Grid)-2].Before(end) {
		t.Errorf("grid extends more than one step past sunrise+1h")
	}
}

func TestBuildDuringDay(t *testing.T) {
	tests := []struct {
		name string
		ref  time.Time
	}{
		{"austral winter noon", time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC)},
		{"austral summer morning", time.Date(2024, 12, 21, 13, 0, 0, 0, time.UTC)},
		{"late morning", time.Date(2024, 3, 20, 14, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Build(tt.ref, lco, DefaultStep)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if !w.Sunset.After(tt.ref) {
				t.Errorf("sunset %v not after daytime reference %v", w.Sunset, tt.ref)
			}
			if !w.Sunrise.After(w.Sunset) {
				t.Errorf("sunrise %v not after sunset %v", w.Sunrise, w.Sunset)
			}
			if !w.Covers(tt.ref) {
				t.Errorf("window [%v, %v) does not cover reference %v", w.ValidFrom, w.Sunrise, tt.ref)
			}
			if !w.HasAstronomicalNight() {
				t.Error("LCO always has astronomical night")
			}
			if !(w.Sunset.Before(w.TwilightEvening) && w.TwilightEvening.Before(w.TwilightMorning) && w.TwilightMorning.Before(w.Sunrise)) {
				t.Errorf("twilight out of order: %+v", w)
			}
			checkGrid(t, w)
		})
	}
}

func TestBuildDuringNightReturnsCurrentNight(t *testing.T) {
	ref := time.Date(2024, 6, 22, 4, 0, 0, 0, time.UTC) // local midnight
	w, err := Build(ref, lco, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Sunset.Before(ref) || !w.Sunrise.After(ref) {
		t.Errorf("window %v..%v does not contain %v", w.Sunset, w.Sunrise, ref)
	}

	day, err := Build(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC), lco, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if d := w.Sunset.Sub(day.Sunset); d.Abs() > 2*time.Second {
		t.Errorf("noon and midnight disagree on the night: %v vs %v", day.Sunset, w.Sunset)
	}
	checkGrid(t, w)
}

func TestBuildDefaultsStep(t *testing.T) {
	w, err := Build(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC), lco, 0)
	if err != nil {
		t.Fatal(err)
	}
	if w.Step != DefaultStep {
		t.Errorf("step = %v, want %v", w.Step, DefaultStep)
	}
}

func TestBuildPolarDay(t *testing.T) {
	site := ephem.Site{Name: "Alert", Latitude: 82.5, Longitude: -62.3}
	w, err := Build(time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC), site, DefaultStep)
	if err == nil {
		t.Fatalf("expected error, got window %+v", w)
	}
	if w != nil {
		t.Error("partial window returned with error")
	}
	var ee *ephem.Error
	if !errors.As(err, &ee) {
		t.Errorf("error %T does not wrap *ephem.Error", err)
	}
}

func TestBuildWithoutAstronomicalNight(t *testing.T) {
	site := ephem.Site{Name: "Helsinki", Latitude: 60.17, Longitude: 24.94}
	w, err := Build(time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC), site, DefaultStep)
	if err != nil {
		t.Fatal(err)
	}
	if w.HasAstronomicalNight() {
		t.Errorf("unexpected astronomical twilight %v / %v", w.TwilightEvening, w.TwilightMorning)
	}
	checkGrid(t, w)
}
