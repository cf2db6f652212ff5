package filter

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/obscode/magdash/internal/table"
)

func ptr[T any](v T) *T { return &v }

func tableAt(ras ...float64) *table.Table {
	rows := make([]table.Row, len(ras))
	for i, ra := range ras {
		rows[i] = table.Row{Target: table.Target{Name: string(rune('a' + i)), RA: ra, Dec: -30}}
	}
	return table.New(nil, rows)
}

func TestRangeOnRA(t *testing.T) {
	e := NewEngine()
	e.SetTable(tableAt(1, 5, 10, 15, 23))

	if err := e.Apply(Update{Name: NameRA, Lo: ptr(0.0), Hi: ptr(12.0)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := []bool{true, true, true, false, false}
	if got := e.Mask(); !reflect.DeepEqual(got, want) {
		t.Errorf("mask = %v, want %v", got, want)
	}
	if e.Visible() != 3 {
		t.Errorf("Visible = %d, want 3", e.Visible())
	}
}

func TestDefaultMaskPassesAll(t *testing.T) {
	e := NewEngine()
	e.SetTable(tableAt(0, 6, 12, 18))
	for i, v := range e.Mask() {
		if !v {
			t.Errorf("row %d hidden by default predicates", i)
		}
	}
}

func TestThresholdBelowAllMinimaHidesEverything(t *testing.T) {
	tbl := tableAt(1, 2, 3)
	tbl.Altitude = make([][]float64, 3)
	tbl.Airmass = make([][]float64, 3)
	tbl.MinAirmass = []float64{1.1, 1.4, 2.2}

	e := NewEngine()
	e.SetTable(tbl)
	if err := e.Apply(Update{Name: NameAirmass, Threshold: ptr(1.5)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{true, true, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("mask = %v, want %v", got, want)
	}

	if err := e.Apply(Update{Name: NameAirmass, Threshold: ptr(1.0)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{false, false, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("mask = %v, want %v", got, want)
	}

	if err := e.Apply(Update{Name: NameAirmass, Threshold: ptr(MaxAirmass)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if e.Visible() != 3 {
		t.Errorf("threshold at maximum should be inactive, visible = %d", e.Visible())
	}
}

func TestCadenceNaNPasses(t *testing.T) {
	rows := []table.Row{
		{Target: table.Target{RA: 1}, Number: map[table.Field]float64{table.FieldCadence: 2}},
		{Target: table.Target{RA: 2}, Number: map[table.Field]float64{table.FieldCadence: 9}},
		{Target: table.Target{RA: 3}, Number: map[table.Field]float64{table.FieldCadence: math.NaN()}},
	}
	e := NewEngine()
	e.SetTable(table.New(nil, rows))

	if err := e.Apply(Update{Name: NameCadence, Lo: ptr(0.0), Hi: ptr(5.0)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{true, false, true}; !reflect.DeepEqual(got, want) {
		t.Errorf("mask = %v, want %v", got, want)
	}
}

func TestPredicateOnMissingFieldIsInactive(t *testing.T) {
	e := NewEngine()
	e.SetTable(tableAt(1, 2))
	if err := e.Apply(Update{Name: NameCampaign, Selected: []string{"2019A"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if e.Visible() != 2 {
		t.Errorf("campaign predicate on a table without campaigns hid rows")
	}
}

func TestSetPredicate(t *testing.T) {
	rows := []table.Row{
		{Target: table.Target{RA: 1, Comment: "SN"}, Text: map[table.Field]string{table.FieldPriority: "Low"}},
		{Target: table.Target{RA: 2, Comment: "Standard"}, Text: map[table.Field]string{table.FieldPriority: "High"}},
		{Target: table.Target{RA: 3, Comment: "SN"}, Text: map[table.Field]string{table.FieldPriority: "Unknown"}},
		{Target: table.Target{RA: 4, Comment: "AGN"}, Text: map[table.Field]string{table.FieldPriority: "Raw-High"}},
	}
	e := NewEngine()
	e.SetTable(table.New(nil, rows))

	if err := e.Apply(Update{Name: NameTag, Selected: []string{"SN", "SN"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{true, false, true, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("tag mask = %v, want %v", got, want)
	}
	if err := e.Apply(Update{Name: NamePriority, Selected: []string{"Low", "Raw-High"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{true, false, false, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("tag+priority mask = %v, want %v", got, want)
	}
	if err := e.Apply(Update{Name: NameTag, Selected: []string{}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{true, false, false, true}; !reflect.DeepEqual(got, want) {
		t.Errorf("priority mask = %v, want %v", got, want)
	}

	opts, err := e.Options(NamePriority)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if want := []string{"Raw-High", "High", "Low", "Unknown"}; !reflect.DeepEqual(opts, want) {
		t.Errorf("priority options = %v, want %v", opts, want)
	}
	opts, _ = e.Options(NameTag)
	if want := []string{"AGN", "SN", "Standard"}; !reflect.DeepEqual(opts, want) {
		t.Errorf("tag options = %v, want %v", opts, want)
	}
}

func TestRefineAndReset(t *testing.T) {
	e := NewEngine()
	e.SetTable(tableAt(1, 2, 3, 4))

	if err := e.Refine([]int{1, 3}); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if got, want := e.Mask(), []bool{false, true, false, true}; !reflect.DeepEqual(got, want) {
		t.Errorf("refined mask = %v, want %v", got, want)
	}

	// Narrowing sticks across predicate updates.
	if err := e.Apply(Update{Name: NameRA, Lo: ptr(0.0), Hi: ptr(3.5)}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got, want := e.Mask(), []bool{false, true, false, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("mask after update = %v, want %v", got, want)
	}

	e.Reset()
	if e.Refined() {
		t.Error("Refined after Reset")
	}
	if got, want := e.Mask(), []bool{true, true, true, false}; !reflect.DeepEqual(got, want) {
		t.Errorf("reset mask = %v, want %v", got, want)
	}
}

func TestRefineRejectsOutOfRange(t *testing.T) {
	e := NewEngine()
	e.SetTable(tableAt(1, 2))
	err := e.Refine([]int{0, 2})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if e.Refined() {
		t.Error("failed refine left a narrowing in place")
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		u    Update
	}{
		{"unknown", Update{Name: "magnitude", Lo: ptr(1.0)}},
		{"inverted range", Update{Name: NameDec, Lo: ptr(10.0), Hi: ptr(-10.0)}},
		{"NaN bound", Update{Name: NameRA, Lo: ptr(math.NaN())}},
		{"set payload on range", Update{Name: NameRA, Selected: []string{"x"}}},
		{"range payload on set", Update{Name: NameTag, Lo: ptr(1.0)}},
		{"threshold above max", Update{Name: NameAirmass, Threshold: ptr(4.0)}},
		{"empty", Update{Name: NameAge}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			e.SetTable(tableAt(1, 2))
			before := e.Mask()
			err := e.Apply(tt.u)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if ce.Name != tt.u.Name {
				t.Errorf("error names %q, want %q", ce.Name, tt.u.Name)
			}
			if !reflect.DeepEqual(e.Mask(), before) {
				t.Error("rejected update changed the mask")
			}
		})
	}
}

func TestSetTableResetsState(t *testing.T) {
	rows := func(ages ...float64) []table.Row {
		out := make([]table.Row, len(ages))
		for i, a := range ages {
			out[i] = table.Row{Target: table.Target{RA: float64(i)}, Number: map[table.Field]float64{table.FieldAge: a}}
		}
		return out
	}
	e := NewEngine()
	e.SetTable(table.New(nil, rows(3, 40)))
	r := e.preds[NameAge].(*Range)
	if r.Lo != 2 || r.Hi != 41 {
		t.Errorf("age range = [%v, %v], want [2, 41]", r.Lo, r.Hi)
	}
	if err := e.Refine([]int{0}); err != nil {
		t.Fatal(err)
	}

	next := table.New(nil, rows(10, 20, 30))
	e.SetTable(next)
	if e.Refined() {
		t.Error("new table kept the refine narrowing")
	}
	if len(e.Mask()) != 3 || e.Visible() != 3 {
		t.Errorf("mask = %v, want three visible rows", e.Mask())
	}
	if r.Lo != 9 || r.Hi != 31 {
		t.Errorf("age range = [%v, %v], want [9, 31]", r.Lo, r.Hi)
	}

	// Same generation keeps the narrowing.
	if err := e.Refine([]int{2}); err != nil {
		t.Fatal(err)
	}
	e.SetTable(next)
	if !e.Refined() {
		t.Error("rebinding the same table dropped the narrowing")
	}
}

func TestNoTable(t *testing.T) {
	e := NewEngine()
	if len(e.Mask()) != 0 {
		t.Error("mask without table should be empty")
	}
	if err := e.Apply(Update{Name: NameRA, Lo: ptr(2.0)}); err != nil {
		t.Errorf("Apply without table: %v", err)
	}
	opts, err := e.Options(NameTag)
	if err != nil || opts != nil {
		t.Errorf("Options = %v, %v", opts, err)
	}
}

func TestRefreshKeepsNarrowing(t *testing.T) {
	tbl := tableAt(1, 2, 3)
	tbl.Altitude = make([][]float64, 3)
	tbl.Airmass = make([][]float64, 3)
	tbl.MinAirmass = []float64{1.1, 1.2, 1.3}

	e := NewEngine()
	e.SetTable(tbl)
	if err := e.Apply(Update{Name: NameAirmass, Threshold: ptr(1.25)}); err != nil {
		t.Fatal(err)
	}
	if err := e.Refine([]int{1, 2}); err != nil {
		t.Fatal(err)
	}

	// A new night changes the minima in place.
	tbl.MinAirmass = []float64{1.1, 1.2, 1.2}
	e.Refresh()
	if got, want := e.Mask(), []bool{false, true, true}; !reflect.DeepEqual(got, want) {
		t.Errorf("mask = %v, want %v", got, want)
	}
}

func TestStates(t *testing.T) {
	e := NewEngine()
	e.SetTable(tableAt(1, 2))
	states := e.States()
	if len(states) != len(e.Names()) {
		t.Fatalf("%d states for %d predicates", len(states), len(e.Names()))
	}
	byName := map[string]State{}
	for _, s := range states {
		byName[s.Name] = s
	}
	ra := byName[NameRA]
	if ra.Kind != KindRange || !ra.Active || !ra.Available || *ra.Lo != 0 || *ra.Hi != 24 {
		t.Errorf("ra state = %+v", ra)
	}
	am := byName[NameAirmass]
	if am.Active || am.Available || *am.Threshold != MaxAirmass {
		t.Errorf("airmass state = %+v", am)
	}
	if byName[NameCampaign].Available {
		t.Error("campaign reported available without a campaign column")
	}
}
