// Package ingest turns raw provider records into a target table with its
// nightly series and current positions.
package ingest

import (
	"errors"
	"strings"
	"time"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/record"
	"github.com/obscode/magdash/internal/table"
)

// extension fields carried through to the table.
var (
	textExtensions = map[string]table.Field{
		record.Campaign: table.FieldCampaign,
		record.Priority: table.FieldPriority,
		record.Type:     table.FieldType,
	}
	numberExtensions = map[string]table.Field{
		record.AgeRef:       table.FieldAgeRef,
		record.LastObserved: table.FieldLastObserved,
	}
	dateExtensions = map[string]table.Field{
		record.LastNight: table.FieldLastNight,
	}
)

// Normalize converts one raw record into a table row. Missing numeric
// fields default to 0 and missing text fields to "". An extension field that
// is present but nil still yields its column, holding NaN or the zero date. Coordinates go through
// ephem.ParseCoordinate. Failures are *MalformedRecordError.
func Normalize(rec *record.Record) (table.Row, error) {
	malformed := func(field string, err error) (table.Row, error) {
		return table.Row{}, &MalformedRecordError{Source: rec.Source, Line: rec.Line, Field: field, Err: err}
	}

	ra, dec, err := ephem.ParseCoordinate(rec.Text(record.RA), rec.Text(record.Dec))
	if err != nil {
		field := record.RA
		var ce *ephem.CoordinateError
		if errors.As(err, &ce) && ce.Axis == "Dec" {
			field = record.Dec
		}
		return malformed(field, err)
	}

	tg := table.Target{
		ID:      strings.TrimSpace(rec.Text(record.ID)),
		Name:    strings.TrimSpace(rec.Text(record.Name)),
		RA:      ra,
		Dec:     dec,
		RotMode: rec.Text(record.RotMode),
		Probe1:  table.Probe{RA: rec.Text(record.GP1RA), Dec: rec.Text(record.GP1Dec)},
		Probe2:  table.Probe{RA: rec.Text(record.GP2RA), Dec: rec.Text(record.GP2Dec)},
		Comment: strings.TrimSpace(rec.Text(record.Comment)),
	}

	numbers := []struct {
		field string
		dst   *float64
	}{
		{record.Equinox, &tg.Equinox},
		{record.PMRA, &tg.PMRA},
		{record.PMDec, &tg.PMDec},
		{record.RotOff, &tg.RotOffset},
		{record.GP1Equ, &tg.Probe1.Equinox},
		{record.GP2Equ, &tg.Probe2.Equinox},
		{record.ObsEpoch, &tg.ObsEpoch},
	}
	for _, n := range numbers {
		v, err := rec.Number(n.field)
		if err != nil {
			return malformed(n.field, err)
		}
		*n.dst = v
	}

	row := table.Row{Target: tg}
	for name, f := range textExtensions {
		if rec.Present(name) {
			if row.Text == nil {
				row.Text = map[table.Field]string{}
			}
			row.Text[f] = strings.TrimSpace(rec.Text(name))
		}
	}
	for name, f := range numberExtensions {
		if !rec.Present(name) {
			continue
		}
		v, err := rec.Optional(name)
		if err != nil {
			return malformed(name, err)
		}
		if row.Number == nil {
			row.Number = map[table.Field]float64{}
		}
		row.Number[f] = v
	}
	for name, f := range dateExtensions {
		if !rec.Present(name) {
			continue
		}
		v, err := rec.Date(name)
		if err != nil {
			return malformed(name, err)
		}
		if row.Date == nil {
			row.Date = map[table.Field]time.Time{}
		}
		row.Date[f] = v
	}
	return row, nil
}
