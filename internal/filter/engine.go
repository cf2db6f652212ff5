// Package filter combines independently updated row predicates into one
// visibility mask over a target table.
package filter

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/obscode/magdash/internal/table"
)

// Predicate names accepted by Apply.
const (
	NameRA       = "ra"
	NameDec      = "dec"
	NameAirmass  = "airmass"
	NameTag      = "tag"
	NameAge      = "age"
	NameCadence  = "cadence"
	NameCampaign = "campaign"
	NamePriority = "priority"
)

// MaxAirmass is the minimum-airmass threshold at which the predicate is off.
const MaxAirmass = 3.0

// PriorityOrder is the canonical display order of priority labels.
var PriorityOrder = []string{"Raw-High", "High", "Medium", "Med-rare", "Low", "Monthly", "Calib", "Template"}

// Update is an inbound change to one predicate. Only the fields matching
// the predicate's kind may be set.
type Update struct {
	Name      string   `json:"-"`
	Lo        *float64 `json:"lo,omitempty"`
	Hi        *float64 `json:"hi,omitempty"`
	Active    *bool    `json:"active,omitempty"`
	Selected  []string `json:"selected,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Engine owns the visibility mask for one table. It is not safe for
// concurrent use.
type Engine struct {
	names   []string
	preds   map[string]Predicate
	tbl     *table.Table
	results map[string][]bool // per-predicate columns for tbl's generation
	picked  []bool            // refine-from-selection set; nil when not refined
	mask    []bool
}

// NewEngine returns an engine with the default predicate set and no table.
func NewEngine() *Engine {
	e := &Engine{
		preds:   map[string]Predicate{},
		results: map[string][]bool{},
	}
	e.add(NameRA, &Range{On: table.FieldRA, Lo: 0, Hi: 24})
	e.add(NameDec, &Range{On: table.FieldDec, Lo: -90, Hi: 90})
	e.add(NameAirmass, &Threshold{On: table.FieldMinAirmass, Value: MaxAirmass, Max: MaxAirmass})
	e.add(NameTag, &Set{On: table.FieldTag})
	e.add(NameAge, &Range{On: table.FieldAge, Lo: 0, Hi: 100})
	e.add(NameCadence, &Range{On: table.FieldCadence, Lo: 0, Hi: 100, NaNPasses: true})
	e.add(NameCampaign, &Set{On: table.FieldCampaign})
	e.add(NamePriority, &Set{On: table.FieldPriority})
	return e
}

func (e *Engine) add(name string, p Predicate) {
	e.names = append(e.names, name)
	e.preds[name] = p
}

// Names returns the predicate names in evaluation order.
func (e *Engine) Names() []string {
	return slices.Clone(e.names)
}

// SetTable binds the engine to t. A table of a new generation discards the
// mask, the refine set and every cached predicate column, and resets the
// age and cadence ranges to the span of the new data.
func (e *Engine) SetTable(t *table.Table) {
	if t != nil && e.tbl != nil && t.Generation == e.tbl.Generation {
		e.tbl = t
		return
	}
	e.tbl = t
	e.picked = nil
	e.mask = nil
	e.results = map[string][]bool{}
	if t == nil {
		return
	}

	e.resetRange(NameAge)
	e.resetRange(NameCadence)
	for _, name := range e.names {
		e.evaluate(name)
	}
	e.recompute()
}

// resetRange spans a range predicate over the finite values of its column,
// padded by one unit on each side.
func (e *Engine) resetRange(name string) {
	r := e.preds[name].(*Range)
	col, ok := e.tbl.Numbers(r.On)
	if !ok {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return
	}
	r.Lo, r.Hi = lo-1, hi+1
}

// evaluate refreshes the cached column of one predicate.
func (e *Engine) evaluate(name string) {
	p := e.preds[name]
	if e.tbl == nil || !p.Active() || !e.tbl.Has(p.Field()) {
		delete(e.results, name)
		return
	}
	e.results[name] = p.eval(e.tbl)
}

// recompute ANDs the cached columns of active predicates and the refine set.
func (e *Engine) recompute() {
	n := 0
	if e.tbl != nil {
		n = e.tbl.Len()
	}
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	for _, name := range e.names {
		col, ok := e.results[name]
		if !ok {
			continue
		}
		for i := range mask {
			mask[i] = mask[i] && col[i]
		}
	}
	if e.picked != nil {
		for i := range mask {
			mask[i] = mask[i] && e.picked[i]
		}
	}
	e.mask = mask
}

// Apply changes one predicate and recomputes the mask. Only the changed
// predicate's column is re-evaluated.
func (e *Engine) Apply(u Update) error {
	p, ok := e.preds[u.Name]
	if !ok {
		return &ConfigError{Name: u.Name, Reason: "unknown predicate"}
	}

	var err error
	switch p := p.(type) {
	case *Range:
		err = applyRange(p, u)
	case *Set:
		err = applySet(p, u)
	case *Threshold:
		err = applyThreshold(p, u)
	}
	if err != nil {
		return err
	}

	e.evaluate(u.Name)
	e.recompute()
	return nil
}

func mismatch(u Update, kind Kind) error {
	return &ConfigError{Name: u.Name, Reason: fmt.Sprintf("update does not match %s predicate", kind)}
}

func applyRange(r *Range, u Update) error {
	if u.Selected != nil || u.Threshold != nil {
		return mismatch(u, KindRange)
	}
	if u.Lo == nil && u.Hi == nil && u.Active == nil {
		return &ConfigError{Name: u.Name, Reason: "empty update"}
	}
	lo, hi := r.Lo, r.Hi
	if u.Lo != nil {
		lo = *u.Lo
	}
	if u.Hi != nil {
		hi = *u.Hi
	}
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return &ConfigError{Name: u.Name, Reason: "NaN bound"}
	}
	if lo > hi {
		return &ConfigError{Name: u.Name, Reason: fmt.Sprintf("lower bound %v above upper bound %v", lo, hi)}
	}
	r.Lo, r.Hi = lo, hi
	if u.Active != nil {
		r.Disabled = !*u.Active
	}
	return nil
}

func applySet(s *Set, u Update) error {
	if u.Lo != nil || u.Hi != nil || u.Threshold != nil || u.Active != nil {
		return mismatch(u, KindSet)
	}
	if u.Selected == nil {
		return &ConfigError{Name: u.Name, Reason: "empty update"}
	}
	sel := slices.Clone(u.Selected)
	sort.Strings(sel)
	s.Selected = slices.Compact(sel)
	return nil
}

func applyThreshold(th *Threshold, u Update) error {
	if u.Lo != nil || u.Hi != nil || u.Selected != nil || u.Active != nil {
		return mismatch(u, KindThreshold)
	}
	if u.Threshold == nil {
		return &ConfigError{Name: u.Name, Reason: "empty update"}
	}
	v := *u.Threshold
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ConfigError{Name: u.Name, Reason: "threshold must be finite"}
	}
	if v > th.Max {
		return &ConfigError{Name: u.Name, Reason: fmt.Sprintf("threshold %v above maximum %v", v, th.Max)}
	}
	th.Value = v
	return nil
}

// Refine narrows the mask to the given row indices. The narrowing persists
// across predicate updates until Reset or a new table.
func (e *Engine) Refine(rows []int) error {
	n := len(e.mask)
	in := make([]bool, n)
	for _, r := range rows {
		if r < 0 || r >= n {
			return &ConfigError{Name: "selection", Reason: fmt.Sprintf("row %d out of range [0, %d)", r, n)}
		}
		in[r] = true
	}
	if e.picked == nil {
		e.picked = in
	} else {
		for i := range e.picked {
			e.picked[i] = e.picked[i] && in[i]
		}
	}
	e.recompute()
	return nil
}

// Refined reports whether a refine narrowing is in effect.
func (e *Engine) Refined() bool {
	return e.picked != nil
}

// Reset drops the refine narrowing and re-derives the mask from the
// active predicates alone.
func (e *Engine) Reset() {
	e.picked = nil
	e.recompute()
}

// Mask returns a copy of the visibility mask; its length equals the
// table's row count.
func (e *Engine) Mask() []bool {
	return slices.Clone(e.mask)
}

// Visible returns the number of rows passing the mask.
func (e *Engine) Visible() int {
	n := 0
	for _, v := range e.mask {
		if v {
			n++
		}
	}
	return n
}

// Options lists the selectable values of a set predicate present in the
// table. Priorities come in PriorityOrder, followed by any other labels.
func (e *Engine) Options(name string) ([]string, error) {
	p, ok := e.preds[name]
	if !ok {
		return nil, &ConfigError{Name: name, Reason: "unknown predicate"}
	}
	if p.Kind() != KindSet {
		return nil, &ConfigError{Name: name, Reason: "not a set predicate"}
	}
	if e.tbl == nil {
		return nil, nil
	}
	col, ok := e.tbl.Strings(p.Field())
	if !ok {
		return nil, nil
	}

	present := map[string]bool{}
	for _, v := range col {
		if v != "" {
			present[v] = true
		}
	}

	var out []string
	if name == NamePriority {
		for _, v := range PriorityOrder {
			if present[v] {
				out = append(out, v)
				delete(present, v)
			}
		}
	}
	rest := make([]string, 0, len(present))
	for v := range present {
		rest = append(rest, v)
	}
	sort.Strings(rest)
	return append(out, rest...), nil
}

// Refresh re-evaluates every predicate against the current table, keeping
// the refine narrowing. It is used after derived columns change in place.
func (e *Engine) Refresh() {
	for _, name := range e.names {
		e.evaluate(name)
	}
	e.recompute()
}

// State describes one predicate for display.
type State struct {
	Name      string      `json:"name"`
	Kind      Kind        `json:"kind"`
	Field     table.Field `json:"field"`
	Active    bool        `json:"active"`
	Available bool        `json:"available"`
	Lo        *float64    `json:"lo,omitempty"`
	Hi        *float64    `json:"hi,omitempty"`
	Threshold *float64    `json:"threshold,omitempty"`
	Max       *float64    `json:"max,omitempty"`
	Selected  []string    `json:"selected,omitempty"`
	Options   []string    `json:"options,omitempty"`
}

// States returns the predicates in evaluation order.
func (e *Engine) States() []State {
	out := make([]State, 0, len(e.names))
	for _, name := range e.names {
		p := e.preds[name]
		st := State{
			Name:      name,
			Kind:      p.Kind(),
			Field:     p.Field(),
			Active:    p.Active(),
			Available: e.tbl != nil && e.tbl.Has(p.Field()),
		}
		switch p := p.(type) {
		case *Range:
			lo, hi := p.Lo, p.Hi
			st.Lo, st.Hi = &lo, &hi
		case *Threshold:
			v, limit := p.Value, p.Max
			st.Threshold, st.Max = &v, &limit
		case *Set:
			st.Selected = slices.Clone(p.Selected)
			st.Options, _ = e.Options(name)
		}
		out = append(out, st)
	}
	return out
}
