// Package queue reads the active target list of an observing queue from the
// supernova program database.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/obscode/magdash/internal/record"
)

// Queue describes one observing queue.
type Queue struct {
	Name   string
	Column string // flag column in snlist selecting the queue's targets
	// idPrefix precedes the zero-padded row number; an empty prefix means
	// the bare row number.
	idPrefix string
	// Standards reports whether spectrophotometric standards are added.
	Standards bool
}

// ID returns the target identifier for the n-th row (1-based).
func (q Queue) ID(n int) string {
	if q.idPrefix == "" {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%s%02d", q.idPrefix, n)
}

var queues = map[string]Queue{
	"swope": {Name: "swope", Column: "qswo"},
	"imacs": {Name: "imacs", Column: "qwfccd", idPrefix: "1", Standards: true},
	"fire":  {Name: "fire", Column: "qfire", idPrefix: "0"},
}

// ErrUnknownQueue is wrapped by Lookup for names it does not know.
var ErrUnknownQueue = errors.New("unknown queue")

// Lookup returns the queue with the given name (case-insensitive).
func Lookup(name string) (Queue, error) {
	q, ok := queues[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Queue{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownQueue, name, strings.Join(Names(), ", "))
	}
	return q, nil
}

// Names lists the known queues.
func Names() []string {
	names := make([]string, 0, len(queues))
	for n := range queues {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// campaigns are the labels of the first database campaign numbers; later
// campaigns are semesters.
var campaigns = []string{
	"2004/2005", "2005/2006", "2006/2007", "2007/2008", "2008/2009",
	"2011/2012", "2012/2013", "2013/2014", "2014/2015", "2015/2016",
	"2016/2017", "2017/2018", "2018/2019", "2019/2020",
}

// CampaignLabel converts a 1-based campaign number to its label.
func CampaignLabel(camp int) string {
	idx := camp - 1
	if idx < 0 {
		return ""
	}
	if idx < len(campaigns) {
		return campaigns[idx]
	}
	semester := "A"
	if idx%2 == 1 {
		semester = "B"
	}
	return fmt.Sprintf("%d%s", 2014+idx/2, semester)
}

// DefaultPriority is assigned to targets without a priority comment.
const DefaultPriority = "Unknown"

// targetRow is one row of the queue query.
type targetRow struct {
	SN       string     `gorm:"column:sn"`
	Type     *string    `gorm:"column:type"`
	RA       string     `gorm:"column:ra"`
	DE       string     `gorm:"column:de"`
	Camp     *int       `gorm:"column:camp"`
	AgeRDate *float64   `gorm:"column:agerdate"`
	Mag      *float64   `gorm:"column:mag"`
	Night    *time.Time `gorm:"column:night"`
	JD       *float64   `gorm:"column:jd"`
}

// toRecords converts query rows into raw records in query order.
func toRecords(q Queue, rows []targetRow, priorities map[string]string) []*record.Record {
	source := "queue:" + q.Name
	recs := make([]*record.Record, 0, len(rows))
	for i, row := range rows {
		rec := record.New(source, i+1)
		rec.Set(record.ID, q.ID(i+1))
		rec.Set(record.Name, row.SN)
		rec.Set(record.RA, row.RA)
		rec.Set(record.Dec, row.DE)
		rec.Set(record.Equinox, 2000.0)

		tag := "unknown"
		if row.Type != nil && strings.TrimSpace(*row.Type) != "" {
			tag = strings.TrimSpace(*row.Type)
		}
		rec.Set(record.Comment, tag)
		rec.Set(record.Type, tag)

		camp := ""
		if row.Camp != nil {
			camp = CampaignLabel(*row.Camp)
		}
		rec.Set(record.Campaign, camp)

		prio, ok := priorities[row.SN]
		if !ok || prio == "" {
			prio = DefaultPriority
		}
		rec.Set(record.Priority, prio)

		rec.Set(record.AgeRef, deref(row.AgeRDate))
		rec.Set(record.LastObserved, deref(row.JD))
		if row.Night != nil {
			rec.Set(record.LastNight, *row.Night)
		} else {
			rec.Set(record.LastNight, nil)
		}
		recs = append(recs, rec)
	}
	return recs
}

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
