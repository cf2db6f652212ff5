package dashboard

import (
	"math"
	"strconv"
	"time"

	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/night"
	"github.com/obscode/magdash/internal/polar"
	"github.com/obscode/magdash/internal/table"
)

// Floats is a numeric column that encodes NaN and infinities as null.
type Floats []float64

func (f Floats) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+8*len(f))
	buf = append(buf, '[')
	for i, v := range f {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// Snapshot is the read-only view published after every event. It is never
// modified once published.
type Snapshot struct {
	Site       string        `json:"site"`
	Status     string        `json:"status"`
	Source     string        `json:"source,omitempty"`
	PlanDate   string        `json:"plan_date,omitempty"` // set while the night is pinned to a date
	Clock      table.Clock   `json:"clock"`
	Updated    time.Time     `json:"updated"`
	Window     *night.Window `json:"window,omitempty"`
	Generation uint64        `json:"generation"`

	Targets    []table.Target                `json:"targets"`
	Text       map[table.Field][]string      `json:"text,omitempty"`
	Number     map[table.Field]Floats        `json:"number,omitempty"`
	Date       map[table.Field][]time.Time   `json:"date,omitempty"`
	Altitude   [][]float64                   `json:"altitude_series,omitempty"`
	Airmass    [][]float64                   `json:"airmass_series,omitempty"`
	MinAirmass []float64                     `json:"min_airmass,omitempty"`
	Current    table.Current                 `json:"current"`

	Mask      []bool         `json:"mask"`
	Visible   int            `json:"visible"`
	Refined   bool           `json:"refined"`
	Filters   []filter.State `json:"filters"`
	Pointed   string         `json:"pointed,omitempty"`
	Highlight int            `json:"highlight"`

	SkyMap []polar.Shape `json:"-"`
}

// Positions is the stream payload sent after each position refresh.
type Positions struct {
	Generation uint64        `json:"generation"`
	Current    table.Current `json:"current"`
	Mask       []bool        `json:"mask"`
}

// Summary is the short form of a snapshot greeting new stream clients.
type Summary struct {
	Site       string        `json:"site"`
	Status     string        `json:"status"`
	PlanDate   string        `json:"plan_date,omitempty"`
	Clock      table.Clock   `json:"clock"`
	Window     *night.Window `json:"window,omitempty"`
	Generation uint64        `json:"generation"`
	Rows       int           `json:"rows"`
	Visible    int           `json:"visible"`
}

// Summary returns the snapshot's headline values.
func (s *Snapshot) Summary() Summary {
	return Summary{
		Site:       s.Site,
		Status:     s.Status,
		PlanDate:   s.PlanDate,
		Clock:      s.Clock,
		Window:     s.Window,
		Generation: s.Generation,
		Rows:       len(s.Targets),
		Visible:    s.Visible,
	}
}
