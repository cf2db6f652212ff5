// Package table is the column-oriented store of targets and their derived
// observability columns for one night.
package table

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/obscode/magdash/internal/night"
)

// Probe is a guide-probe position as written in the catalog.
type Probe struct {
	RA      string  `json:"ra"`
	Dec     string  `json:"dec"`
	Equinox float64 `json:"equinox"`
}

// Target is the core positional schema shared by every provider.
type Target struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	RA        float64 `json:"ra"`  // hours, [0, 24)
	Dec       float64 `json:"dec"` // degrees
	Equinox   float64 `json:"equinox"`
	PMRA      float64 `json:"pm_ra"`
	PMDec     float64 `json:"pm_dec"`
	RotOffset float64 `json:"rot_offset"`
	RotMode   string  `json:"rot_mode"`
	Probe1    Probe   `json:"probe1"`
	Probe2    Probe   `json:"probe2"`
	ObsEpoch  float64 `json:"obs_epoch"`
	Comment   string  `json:"comment"`
}

// Field names a filterable column, core or extension.
type Field string

const (
	FieldID   Field = "id"
	FieldName Field = "name"
	FieldRA   Field = "ra"
	FieldDec  Field = "dec"
	FieldTag  Field = "tag" // the catalog comment

	FieldCampaign     Field = "campaign"
	FieldPriority     Field = "priority"
	FieldType         Field = "type"
	FieldAgeRef       Field = "age_ref"       // JD
	FieldLastObserved Field = "last_observed" // JD, NaN when never observed
	FieldAge          Field = "age"           // days, derived
	FieldCadence      Field = "cadence"       // days, derived
	FieldLastNight    Field = "last_night"

	FieldMinAirmass Field = "min_airmass"
)

// StandardTag is the tag given to rows added by InsertSorted.
const StandardTag = "Standard"

// DefaultDate is synthesized for date columns of inserted rows.
var DefaultDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var generations atomic.Uint64

// Row is one target plus its extension values, as produced by ingestion.
type Row struct {
	Target Target
	Text   map[Field]string
	Number map[Field]float64
	Date   map[Field]time.Time
}

// Current holds the instantaneous position columns and clock strings.
type Current struct {
	Instant     time.Time `json:"instant"`
	Clock       Clock     `json:"clock"`
	LST         float64   `json:"lst"` // hours
	Altitude    []float64 `json:"altitude"`
	Azimuth     []float64 `json:"azimuth"`
	ZenithAngle []float64 `json:"zenith_angle"`
	Airmass     []float64 `json:"airmass"`
	HourAngle   []float64 `json:"hour_angle"` // hours, [-12, 12)
}

// Table is an ordered set of targets sharing one night window. Every
// column holds exactly one entry per target, in target order.
type Table struct {
	Generation uint64
	Window     *night.Window
	Targets    []Target

	Text   map[Field][]string
	Number map[Field][]float64
	Date   map[Field][]time.Time

	// Nightly series, one row per target, one column per Window.Grid point.
	Altitude   [][]float64
	Airmass    [][]float64
	MinAirmass []float64

	Current Current
}

// New builds a table from rows. Extension columns exist for every field
// any row carries; rows lacking it get the field's default.
func New(window *night.Window, rows []Row) *Table {
	t := &Table{
		Generation: generations.Add(1),
		Window:     window,
		Targets:    make([]Target, len(rows)),
		Text:       map[Field][]string{},
		Number:     map[Field][]float64{},
		Date:       map[Field][]time.Time{},
	}
	for i, r := range rows {
		t.Targets[i] = r.Target
		for f := range r.Text {
			if _, ok := t.Text[f]; !ok {
				t.Text[f] = make([]string, len(rows))
			}
		}
		for f := range r.Number {
			if _, ok := t.Number[f]; !ok {
				col := make([]float64, len(rows))
				for j := range col {
					col[j] = numberDefault(f)
				}
				t.Number[f] = col
			}
		}
		for f := range r.Date {
			if _, ok := t.Date[f]; !ok {
				t.Date[f] = make([]time.Time, len(rows))
			}
		}
	}
	for i, r := range rows {
		for f, v := range r.Text {
			t.Text[f][i] = v
		}
		for f, v := range r.Number {
			t.Number[f][i] = v
		}
		for f, v := range r.Date {
			t.Date[f][i] = v
		}
	}
	t.resetDerived()
	return t
}

func numberDefault(f Field) float64 {
	if f == FieldLastObserved || f == FieldCadence {
		return math.NaN()
	}
	return 0
}

// Len returns the number of targets.
func (t *Table) Len() int {
	return len(t.Targets)
}

// Strings returns a text column, core or extension.
func (t *Table) Strings(f Field) ([]string, bool) {
	switch f {
	case FieldID, FieldName, FieldTag:
		out := make([]string, len(t.Targets))
		for i, tg := range t.Targets {
			switch f {
			case FieldID:
				out[i] = tg.ID
			case FieldName:
				out[i] = tg.Name
			default:
				out[i] = tg.Comment
			}
		}
		return out, true
	}
	col, ok := t.Text[f]
	return col, ok
}

// Numbers returns a numeric column, core, derived or extension.
func (t *Table) Numbers(f Field) ([]float64, bool) {
	switch f {
	case FieldRA, FieldDec:
		out := make([]float64, len(t.Targets))
		for i, tg := range t.Targets {
			if f == FieldRA {
				out[i] = tg.RA
			} else {
				out[i] = tg.Dec
			}
		}
		return out, true
	case FieldMinAirmass:
		return t.MinAirmass, t.Altitude != nil
	}
	col, ok := t.Number[f]
	return col, ok
}

// Has reports whether the table carries field f.
func (t *Table) Has(f Field) bool {
	if _, ok := t.Strings(f); ok {
		return true
	}
	_, ok := t.Numbers(f)
	return ok
}

// InsertSorted inserts a reference row at the position given by binary
// search on RA, assuming the table is RA-sorted. Extension columns get
// synthesized values: empty text, numeric defaults, DefaultDate; the tag is
// StandardTag. Derived columns get placeholders until ComputeSeries and
// Refresh run again. It returns the new row index.
func (t *Table) InsertSorted(tg Target) int {
	ra, _ := t.Numbers(FieldRA)
	idx := sort.SearchFloat64s(ra, tg.RA)

	tg.Comment = StandardTag
	t.Targets = insertAt(t.Targets, idx, tg)
	for f, col := range t.Text {
		t.Text[f] = insertAt(col, idx, "")
	}
	for f, col := range t.Number {
		t.Number[f] = insertAt(col, idx, numberDefault(f))
	}
	for f, col := range t.Date {
		t.Date[f] = insertAt(col, idx, DefaultDate)
	}

	if t.Altitude != nil {
		t.Altitude = insertAt(t.Altitude, idx, nil)
		t.Airmass = insertAt(t.Airmass, idx, nil)
		t.MinAirmass = insertAt(t.MinAirmass, idx, math.Inf(1))
	}
	c := &t.Current
	if c.Altitude != nil {
		nan := math.NaN()
		c.Altitude = insertAt(c.Altitude, idx, nan)
		c.Azimuth = insertAt(c.Azimuth, idx, nan)
		c.ZenithAngle = insertAt(c.ZenithAngle, idx, nan)
		c.Airmass = insertAt(c.Airmass, idx, nan)
		c.HourAngle = insertAt(c.HourAngle, idx, nan)
	}
	return idx
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// resetDerived drops series and current columns.
func (t *Table) resetDerived() {
	t.Altitude = nil
	t.Airmass = nil
	t.MinAirmass = nil
	t.Current = Current{}
}

// Validate checks that every column has one entry per target.
func (t *Table) Validate() error {
	n := len(t.Targets)
	check := func(name string, l int) error {
		if l != n {
			return fmt.Errorf("column %s has %d entries for %d targets", name, l, n)
		}
		return nil
	}
	for f, col := range t.Text {
		if err := check(string(f), len(col)); err != nil {
			return err
		}
	}
	for f, col := range t.Number {
		if err := check(string(f), len(col)); err != nil {
			return err
		}
	}
	for f, col := range t.Date {
		if err := check(string(f), len(col)); err != nil {
			return err
		}
	}
	if t.Altitude != nil {
		for name, l := range map[string]int{
			"altitude series": len(t.Altitude),
			"airmass series":  len(t.Airmass),
			"min airmass":     len(t.MinAirmass),
		} {
			if err := check(name, l); err != nil {
				return err
			}
		}
	}
	if c := t.Current; c.Altitude != nil {
		for name, l := range map[string]int{
			"altitude":     len(c.Altitude),
			"azimuth":      len(c.Azimuth),
			"zenith angle": len(c.ZenithAngle),
			"airmass":      len(c.Airmass),
			"hour angle":   len(c.HourAngle),
		} {
			if err := check(name, l); err != nil {
				return err
			}
		}
	}
	return nil
}
