package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/obscode/magdash/internal/catalog"
	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/ingest"
	"github.com/obscode/magdash/internal/metrics"
	"github.com/obscode/magdash/internal/polar"
	"github.com/obscode/magdash/internal/queue"
	"github.com/obscode/magdash/internal/record"
	"github.com/obscode/magdash/internal/telescope"
)

// ErrInvalidDate is returned by SetDate for text that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// Report summarizes a successful ingestion.
type Report struct {
	Source     string   `json:"source"`
	Rows       int      `json:"rows"`
	Rejected   []string `json:"rejected,omitempty"`
	Generation uint64   `json:"generation"`
}

type builder func(ctx context.Context, opts ingest.Options) (*ingest.Result, error)

// IngestCatalog replaces the table with the targets of an uploaded catalog.
func (s *Session) IngestCatalog(ctx context.Context, name string, data []byte) (*Report, error) {
	return s.load(ctx, "catalog", name, func(ctx context.Context, opts ingest.Options) (*ingest.Result, error) {
		return ingest.Catalog(ctx, data, opts)
	})
}

// IngestRemote downloads the configured catalog and replaces the table.
// The download runs outside the event loop.
func (s *Session) IngestRemote(ctx context.Context) (*Report, error) {
	if s.opts.Remote == nil {
		return nil, ErrNotConfigured
	}
	src := s.opts.Remote.SourceURL()
	data, err := s.opts.Remote.Fetch(ctx)
	if err != nil {
		metrics.ObserveIngestion("remote", "failed", 0)
		return nil, s.failed(ctx, &ingest.Error{Source: src, Err: err})
	}
	return s.load(ctx, "remote", src, func(ctx context.Context, opts ingest.Options) (*ingest.Result, error) {
		return ingest.Catalog(ctx, data, opts)
	})
}

// IngestQueue replaces the table with a queue's active targets. The
// database query runs outside the event loop.
func (s *Session) IngestQueue(ctx context.Context, name string) (*Report, error) {
	if s.opts.Queues == nil {
		return nil, ErrNotConfigured
	}
	recs, q, err := s.opts.Queues.Records(ctx, name)
	if err != nil {
		if errors.Is(err, queue.ErrUnknownQueue) {
			return nil, err
		}
		metrics.ObserveIngestion("queue", "failed", 0)
		return nil, s.failed(ctx, &ingest.Error{Source: name, Err: err})
	}
	var standards []*record.Record
	if q.Standards {
		standards = catalog.Standards()
	}
	return s.load(ctx, "queue", q.Name, func(ctx context.Context, opts ingest.Options) (*ingest.Result, error) {
		opts.Standards = standards
		return ingest.Build(ctx, recs, opts)
	})
}

// failed surfaces a provider error in the status line.
func (s *Session) failed(ctx context.Context, err error) error {
	_ = s.do(ctx, func(context.Context) error {
		s.setError("Load failed", err)
		return nil
	})
	return err
}

// load builds a table on the loop and swaps it in. On failure the previous
// table and mask stay in place.
func (s *Session) load(ctx context.Context, kind, source string, build builder) (*Report, error) {
	var rep *Report
	err := s.do(ctx, func(ctx context.Context) error {
		now := s.now()
		w, err := s.currentWindow(now)
		if err != nil {
			s.setError("Cannot compute tonight's window", err)
			return err
		}
		res, err := build(ctx, ingest.Options{
			Kind:      kind,
			Source:    source,
			Ephemeris: s.cfg.Site,
			Window:    w,
			Now:       now,
			Logger:    s.logger,
		})
		if err != nil {
			s.setError("Load failed", err)
			return err
		}

		s.tbl = res.Table
		s.engine.SetTable(res.Table)
		s.source = source
		s.highlight = s.match(s.pointed)
		s.updateSkyMap(now)

		rep = &Report{Source: source, Rows: res.Table.Len(), Generation: res.Table.Generation}
		for _, r := range res.Rejected {
			rep.Rejected = append(rep.Rejected, r.Error())
		}
		s.status = fmt.Sprintf("Loaded %d targets from %s", rep.Rows, source)
		if n := len(rep.Rejected); n > 0 {
			s.status += fmt.Sprintf(" (%d rejected)", n)
		}
		return nil
	})
	return rep, err
}

// ApplyFilter updates one predicate. A *filter.ConfigError leaves the mask
// unchanged.
func (s *Session) ApplyFilter(ctx context.Context, u filter.Update) error {
	return s.do(ctx, func(context.Context) error {
		if err := s.engine.Apply(u); err != nil {
			s.setError("Filter rejected", err)
			return err
		}
		s.updateSkyMap(s.now())
		return nil
	})
}

// Select narrows the view to the picked rows until Reset.
func (s *Session) Select(ctx context.Context, rows []int) error {
	return s.do(ctx, func(context.Context) error {
		if err := s.engine.Refine(rows); err != nil {
			s.setError("Selection rejected", err)
			return err
		}
		s.updateSkyMap(s.now())
		return nil
	})
}

// Reset drops the selection narrowing.
func (s *Session) Reset(ctx context.Context) error {
	return s.do(ctx, func(context.Context) error {
		s.engine.Reset()
		s.status = "View reset"
		s.updateSkyMap(s.now())
		return nil
	})
}

// SetDate pins the night to the one starting on date (YYYY-MM-DD, site
// local). An empty date returns to following the clock.
func (s *Session) SetDate(ctx context.Context, date string) error {
	var ref time.Time
	if date != "" {
		d, err := time.ParseInLocation(time.DateOnly, date, s.cfg.Site.Location())
		if err != nil {
			return fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, date)
		}
		ref = d.Add(12 * time.Hour)
	}

	return s.do(ctx, func(ctx context.Context) error {
		now := s.now()
		at := ref
		if at.IsZero() {
			at = now
		}
		w, err := s.cache.Get(at, s.cfg.Site, s.cfg.Step)
		if err != nil {
			s.setError("Cannot compute night", err)
			return err
		}
		if err := s.setWindow(ctx, w, now); err != nil {
			s.setError("Cannot compute night", err)
			return err
		}
		s.planRef = ref
		if ref.IsZero() {
			s.status = "Following the current night"
		} else {
			s.status = "Planning for " + date
		}
		return nil
	})
}

// TelescopeStatus is the pointing and environment of one telescope.
type TelescopeStatus struct {
	Telescope   string            `json:"telescope"`
	Target      string            `json:"target,omitempty"`
	Row         int               `json:"row"`
	Environment map[string]string `json:"environment,omitempty"`
}

// Telescope queries tel's status and marks the table row it points at.
func (s *Session) Telescope(ctx context.Context, tel string) (*TelescopeStatus, error) {
	if s.opts.Telescope == nil {
		return nil, ErrNotConfigured
	}
	st := &TelescopeStatus{Telescope: tel, Row: polar.NoRow}

	name, err := s.opts.Telescope.CurrentTarget(ctx, tel)
	if err != nil && !errors.Is(err, telescope.ErrNoTarget) && !errors.Is(err, telescope.ErrNotConfigured) {
		return nil, err
	}
	st.Target = name

	env, err := s.opts.Telescope.Environment(ctx, tel)
	switch {
	case err == nil:
		st.Environment = env
	case !errors.Is(err, telescope.ErrNotConfigured):
		s.logger.Warn("telescope environment unavailable", "telescope", tel, "error", err)
	}

	err = s.do(ctx, func(context.Context) error {
		s.pointed = name
		s.highlight = s.match(name)
		st.Row = s.highlight
		s.updateSkyMap(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
