// Package record holds raw provider rows before they are normalized into
// targets: an ordered field → value mapping tagged with where it came from.
package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/orderedmap"
)

// Positional catalog fields, in file order.
const (
	ID       = "ID"
	Name     = "Name"
	RA       = "RA"
	Dec      = "DE"
	Equinox  = "equinox"
	PMRA     = "pmRA"
	PMDec    = "pmDEC"
	RotOff   = "rotoff"
	RotMode  = "rotmode"
	GP1RA    = "gp1RA"
	GP1Dec   = "gp1DEC"
	GP1Equ   = "gp1equ"
	GP2RA    = "gp2RA"
	GP2Dec   = "gp2DEC"
	GP2Equ   = "gp2equ"
	ObsEpoch = "obsEpoch"
	Comment  = "comm"
)

// Extension fields supplied by the queue database.
const (
	Campaign     = "camp"
	Priority     = "priority"
	Type         = "type"
	AgeRef       = "agerdate"
	LastObserved = "lastobs"
	LastNight    = "lastnight"
)

// CatalogFields lists the positional fields of a catalog line. Lines may
// stop short of the full list; fields they omit are simply absent and take
// their defaults when normalized.
var CatalogFields = []string{
	ID, Name, RA, Dec, Equinox, PMRA, PMDec, RotOff, RotMode,
	GP1RA, GP1Dec, GP1Equ, GP2RA, GP2Dec, GP2Equ, ObsEpoch, Comment,
}

const (
	// MinFields is the number of positional fields of a complete line,
	// before the optional observed epoch and comment. Shorter lines are
	// accepted and their missing fields defaulted.
	MinFields = 15
	// MaxFields is the number of whitespace-separated fields before the
	// comment; anything past it is folded into the comment.
	MaxFields = 16
)

// Record is one provider row.
type Record struct {
	Source string
	Line   int
	fields *orderedmap.OrderedMap
}

// New returns an empty record.
func New(source string, line int) *Record {
	return &Record{Source: source, Line: line, fields: orderedmap.New()}
}

// Set stores a field value, keeping first-insertion order.
func (r *Record) Set(field string, v any) {
	r.fields.Set(field, v)
}

// Get returns the raw value of a field.
func (r *Record) Get(field string) (any, bool) {
	return r.fields.Get(field)
}

// Has reports whether field is present with a non-nil value.
func (r *Record) Has(field string) bool {
	v, ok := r.fields.Get(field)
	return ok && v != nil
}

// Present reports whether field was set, even to nil. A queue column that
// is NULL on a row is present but not Has.
func (r *Record) Present(field string) bool {
	_, ok := r.fields.Get(field)
	return ok
}

// Fields returns the field names in insertion order.
func (r *Record) Fields() []string {
	return r.fields.Keys()
}

// Text returns a field as a string. Missing and nil fields are "".
func (r *Record) Text(field string) string {
	v, ok := r.fields.Get(field)
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.DateOnly)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Number returns a numeric field. Missing, nil and empty fields are 0;
// text that is not a number is an error.
func (r *Record) Number(field string) (float64, error) {
	v, ok := r.fields.Get(field)
	if !ok || v == nil {
		return 0, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	s := strings.TrimSpace(r.Text(field))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("field %s: %q is not a number", field, s)
	}
	return f, nil
}

// Optional returns a numeric field, or NaN when it is absent or empty.
func (r *Record) Optional(field string) (float64, error) {
	if !r.Has(field) || strings.TrimSpace(r.Text(field)) == "" {
		return math.NaN(), nil
	}
	return r.Number(field)
}

// Date returns a date field, or the zero time when absent.
func (r *Record) Date(field string) (time.Time, error) {
	v, ok := r.fields.Get(field)
	if !ok || v == nil {
		return time.Time{}, nil
	}
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(r.Text(field))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %q is not a date", field, s)
	}
	return t, nil
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.fields)
}
