package filter

import (
	"math"

	"github.com/obscode/magdash/internal/table"
)

// Kind tags a predicate variant.
type Kind string

const (
	KindRange     Kind = "range"
	KindSet       Kind = "set"
	KindThreshold Kind = "threshold"
)

// Predicate is one independently updated row constraint. A predicate
// contributes to the mask only while Active and while the table carries
// its Field.
type Predicate interface {
	Kind() Kind
	Field() table.Field
	Active() bool
	eval(t *table.Table) []bool
}

// Range passes rows whose value lies in [Lo, Hi]. With NaNPasses, rows
// without a value pass as well.
type Range struct {
	On        table.Field
	Lo, Hi    float64
	NaNPasses bool
	Disabled  bool
}

func (r *Range) Kind() Kind         { return KindRange }
func (r *Range) Field() table.Field { return r.On }
func (r *Range) Active() bool       { return !r.Disabled }

func (r *Range) eval(t *table.Table) []bool {
	col, _ := t.Numbers(r.On)
	out := make([]bool, t.Len())
	for i := range out {
		v := col[i]
		if math.IsNaN(v) {
			out[i] = r.NaNPasses
			continue
		}
		out[i] = v >= r.Lo && v <= r.Hi
	}
	return out
}

// Set passes rows whose value is one of Selected. It is inactive while
// nothing is selected.
type Set struct {
	On       table.Field
	Selected []string
}

func (s *Set) Kind() Kind         { return KindSet }
func (s *Set) Field() table.Field { return s.On }
func (s *Set) Active() bool       { return len(s.Selected) > 0 }

func (s *Set) eval(t *table.Table) []bool {
	col, _ := t.Strings(s.On)
	want := make(map[string]bool, len(s.Selected))
	for _, v := range s.Selected {
		want[v] = true
	}
	out := make([]bool, t.Len())
	for i := range out {
		out[i] = want[col[i]]
	}
	return out
}

// Threshold passes rows whose value is strictly below Value. It is
// inactive while Value is at Max.
type Threshold struct {
	On    table.Field
	Value float64
	Max   float64
}

func (th *Threshold) Kind() Kind         { return KindThreshold }
func (th *Threshold) Field() table.Field { return th.On }
func (th *Threshold) Active() bool       { return th.Value < th.Max }

func (th *Threshold) eval(t *table.Table) []bool {
	col, _ := t.Numbers(th.On)
	out := make([]bool, t.Len())
	for i := range out {
		out[i] = col[i] < th.Value
	}
	return out
}
