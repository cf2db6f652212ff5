package table

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/night"
)

var lco = ephem.Site{Name: "LCO", Latitude: -29.0146, Longitude: -70.6926, Elevation: 2380}

func rowsAt(ras ...float64) []Row {
	rows := make([]Row, len(ras))
	for i, ra := range ras {
		rows[i] = Row{Target: Target{ID: string(rune('a' + i)), Name: "t" + string(rune('a'+i)), RA: ra, Dec: -30}}
	}
	return rows
}

func TestNewFillsExtensionDefaults(t *testing.T) {
	rows := rowsAt(1, 2, 3)
	rows[0].Text = map[Field]string{FieldCampaign: "2019A"}
	rows[1].Number = map[Field]float64{FieldLastObserved: 2460000}
	rows[2].Date = map[Field]time.Time{FieldLastNight: DefaultDate}

	tbl := New(nil, rows)
	if tbl.Len() != 3 {
		t.Fatalf("Len = %d", tbl.Len())
	}
	if got := tbl.Text[FieldCampaign]; !reflect.DeepEqual(got, []string{"2019A", "", ""}) {
		t.Errorf("campaign = %q", got)
	}
	last := tbl.Number[FieldLastObserved]
	if !math.IsNaN(last[0]) || last[1] != 2460000 || !math.IsNaN(last[2]) {
		t.Errorf("last observed = %v, want NaN defaults", last)
	}
	if d := tbl.Date[FieldLastNight]; !d[0].IsZero() || !d[2].Equal(DefaultDate) {
		t.Errorf("last night = %v", d)
	}
	if _, ok := tbl.Numbers(FieldAgeRef); ok {
		t.Error("absent extension reported present")
	}
	if err := tbl.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGenerationIncreases(t *testing.T) {
	a := New(nil, rowsAt(1))
	b := New(nil, rowsAt(1))
	if b.Generation <= a.Generation {
		t.Errorf("generation %d not after %d", b.Generation, a.Generation)
	}
}

func TestInsertSorted(t *testing.T) {
	rows := rowsAt(1, 5, 10, 15)
	for i := range rows {
		rows[i].Text = map[Field]string{FieldPriority: "High"}
		rows[i].Number = map[Field]float64{FieldAgeRef: 2460000}
		rows[i].Date = map[Field]time.Time{FieldLastNight: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)}
	}
	tbl := New(nil, rows)

	idx := tbl.InsertSorted(Target{ID: "201", Name: "HR 718", RA: 7.5, Dec: 3, Comment: "ignored"})
	if idx != 2 {
		t.Fatalf("index = %d, want 2", idx)
	}
	ra, _ := tbl.Numbers(FieldRA)
	if !reflect.DeepEqual(ra, []float64{1, 5, 7.5, 10, 15}) {
		t.Errorf("RA = %v", ra)
	}
	if tbl.Targets[2].Comment != StandardTag {
		t.Errorf("tag = %q, want %q", tbl.Targets[2].Comment, StandardTag)
	}
	if tbl.Text[FieldPriority][2] != "" || tbl.Number[FieldAgeRef][2] != 0 || !tbl.Date[FieldLastNight][2].Equal(DefaultDate) {
		t.Errorf("synthesized values wrong: %q %v %v", tbl.Text[FieldPriority][2], tbl.Number[FieldAgeRef][2], tbl.Date[FieldLastNight][2])
	}

	if idx := tbl.InsertSorted(Target{RA: 0.5}); idx != 0 {
		t.Errorf("index = %d, want 0", idx)
	}
	if idx := tbl.InsertSorted(Target{RA: 23}); idx != tbl.Len()-1 {
		t.Errorf("index = %d, want last", idx)
	}
	if err := tbl.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestInsertSortedKeepsDerivedAligned(t *testing.T) {
	w, err := night.Build(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC), lco, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	tbl := New(w, rowsAt(2, 4))
	if err := tbl.ComputeSeries(context.Background(), lco); err != nil {
		t.Fatal(err)
	}
	if err := Refresh(tbl, lco, w.Sunset); err != nil {
		t.Fatal(err)
	}
	tbl.InsertSorted(Target{RA: 3})
	if err := tbl.Validate(); err != nil {
		t.Fatalf("Validate after insert: %v", err)
	}
	if !math.IsNaN(tbl.Current.Altitude[1]) {
		t.Errorf("placeholder altitude = %v, want NaN", tbl.Current.Altitude[1])
	}
}

func TestValidateDetectsMismatch(t *testing.T) {
	tbl := New(nil, rowsAt(1, 2))
	tbl.Number[FieldAge] = []float64{1}
	if err := tbl.Validate(); err == nil {
		t.Error("expected row-count error")
	}
}

func TestComputeSeries(t *testing.T) {
	w, err := night.Build(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC), lco, 10*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	// Dec -29 transits near the zenith; Dec +60 never rises at LCO.
	rows := []Row{
		{Target: Target{Name: "zenith", RA: 15, Dec: -29}},
		{Target: Target{Name: "north", RA: 15, Dec: 65}},
	}
	tbl := New(w, rows)
	if err := tbl.ComputeSeries(context.Background(), lco); err != nil {
		t.Fatal(err)
	}
	for i := range rows {
		if len(tbl.Altitude[i]) != len(w.Grid) || len(tbl.Airmass[i]) != len(w.Grid) {
			t.Fatalf("row %d series length %d/%d, want %d", i, len(tbl.Altitude[i]), len(tbl.Airmass[i]), len(w.Grid))
		}
	}
	if tbl.MinAirmass[0] > 1.05 {
		t.Errorf("zenith target min airmass = %v, want ~1", tbl.MinAirmass[0])
	}
	if tbl.MinAirmass[1] < 30 {
		t.Errorf("never-rising target min airmass = %v, want saturated", tbl.MinAirmass[1])
	}
	if col, ok := tbl.Numbers(FieldMinAirmass); !ok || len(col) != 2 {
		t.Errorf("min airmass column = %v, %v", col, ok)
	}
}

// failingEphemeris fails for any target at RA 13h.
type failingEphemeris struct {
	ephem.Site
}

func (f failingEphemeris) Horizontal(at time.Time, ra, dec float64) (ephem.Horizontal, error) {
	if ra == 13 {
		return ephem.Horizontal{}, &ephem.Error{Op: "horizontal", Site: f.Name, Time: at, Err: errors.New("boom")}
	}
	return f.Site.Horizontal(at, ra, dec)
}

func TestComputeSeriesFailureKeepsPrevious(t *testing.T) {
	w, _ := night.Build(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC), lco, 30*time.Minute)
	tbl := New(w, rowsAt(1, 13))
	tbl.Altitude = [][]float64{{1}, {2}}

	err := tbl.ComputeSeries(context.Background(), failingEphemeris{Site: lco})
	var ee *ephem.Error
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want *ephem.Error", err)
	}
	if !reflect.DeepEqual(tbl.Altitude, [][]float64{{1}, {2}}) {
		t.Error("series modified on failure")
	}
}

func TestComputeSeriesWithoutWindow(t *testing.T) {
	if err := New(nil, rowsAt(1)).ComputeSeries(context.Background(), lco); err == nil {
		t.Error("expected error without window")
	}
}

func TestComputeAges(t *testing.T) {
	now := time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC)
	jd := ephem.JulianDate(now)

	rows := rowsAt(1, 2, 3)
	rows[0].Number = map[Field]float64{FieldAgeRef: jd - 10, FieldLastObserved: jd - 2}
	rows[1].Number = map[Field]float64{FieldAgeRef: 0, FieldLastObserved: math.NaN()}
	rows[2].Number = map[Field]float64{FieldAgeRef: 1, FieldLastObserved: 0}
	tbl := New(nil, rows)
	tbl.ComputeAges(now)

	age := tbl.Number[FieldAge]
	if math.Abs(age[0]-10) > 1e-6 || age[1] != 0 || age[2] != 0 {
		t.Errorf("age = %v, want [10 0 0]", age)
	}
	cad := tbl.Number[FieldCadence]
	if math.Abs(cad[0]-2) > 1e-6 || !math.IsNaN(cad[1]) || !math.IsNaN(cad[2]) {
		t.Errorf("cadence = %v, want [2 NaN NaN]", cad)
	}
}

func TestComputeAgesWithoutExtensions(t *testing.T) {
	tbl := New(nil, rowsAt(1))
	tbl.ComputeAges(time.Now())
	if tbl.Has(FieldAge) || tbl.Has(FieldCadence) {
		t.Error("derived columns created without their sources")
	}
}
