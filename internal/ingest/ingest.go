package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/obscode/magdash/internal/catalog"
	"github.com/obscode/magdash/internal/metrics"
	"github.com/obscode/magdash/internal/night"
	"github.com/obscode/magdash/internal/record"
	"github.com/obscode/magdash/internal/table"
)

// Options configures Build.
type Options struct {
	Kind      string // metrics label: "catalog", "remote" or "queue"
	Source    string // file name, URL or queue name, for messages
	Ephemeris table.Ephemeris
	Window    *night.Window
	Now       time.Time
	// Standards are inserted in RA order after the provider rows.
	Standards []*record.Record
	Logger    *slog.Logger
}

// Result is a freshly built table and the rows that were dropped.
type Result struct {
	Table    *table.Table
	Rejected []*MalformedRecordError
}

// Build normalizes records into a table and computes its nightly series,
// derived ages and current positions. Malformed rows are dropped and
// reported; the build fails only when no row survives or the ephemeris
// cannot serve the window.
func Build(ctx context.Context, recs []*record.Record, opts Options) (*Result, error) {
	res, err := build(ctx, recs, opts)
	if err != nil {
		metrics.ObserveIngestion(opts.Kind, "failed", 0)
		return nil, err
	}
	metrics.ObserveIngestion(opts.Kind, "ok", len(res.Rejected))
	return res, nil
}

func build(ctx context.Context, recs []*record.Record, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{}
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		row, err := Normalize(rec)
		if err != nil {
			var me *MalformedRecordError
			if errors.As(err, &me) {
				res.Rejected = append(res.Rejected, me)
			}
			logger.Warn("skipping malformed record",
				"source", rec.Source,
				"line", rec.Line,
				"error", err,
			)
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &Error{Source: opts.Source, Err: ErrNoRows}
	}

	tbl := table.New(opts.Window, rows)
	for _, rec := range opts.Standards {
		row, err := Normalize(rec)
		if err != nil {
			logger.Warn("skipping malformed standard", "name", rec.Text(record.Name), "error", err)
			continue
		}
		tbl.InsertSorted(row.Target)
	}

	tbl.ComputeAges(opts.Now)
	if err := tbl.ComputeSeries(ctx, opts.Ephemeris); err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", opts.Source, err)
	}
	if err := table.Refresh(tbl, opts.Ephemeris, opts.Now); err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", opts.Source, err)
	}
	if err := tbl.Validate(); err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", opts.Source, err)
	}

	res.Table = tbl
	logger.Info("table ingested",
		"source", opts.Source,
		"rows", tbl.Len(),
		"rejected", len(res.Rejected),
		"generation", tbl.Generation,
	)
	return res, nil
}

// Catalog parses catalog bytes and builds a table from them.
func Catalog(ctx context.Context, data []byte, opts Options) (*Result, error) {
	recs, err := catalog.ParseRecords(opts.Source, bytes.NewReader(data))
	if err != nil {
		metrics.ObserveIngestion(opts.Kind, "failed", 0)
		return nil, &Error{Source: opts.Source, Err: err}
	}
	return Build(ctx, recs, opts)
}
