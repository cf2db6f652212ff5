// Package dashboard runs the single observing session behind the service:
// one event loop owns the target table and visibility mask, and publishes
// an immutable snapshot for concurrent readers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/metrics"
	"github.com/obscode/magdash/internal/night"
	"github.com/obscode/magdash/internal/polar"
	"github.com/obscode/magdash/internal/queue"
	"github.com/obscode/magdash/internal/record"
	"github.com/obscode/magdash/internal/table"
)

var (
	// ErrStopped is returned once the event loop has exited.
	ErrStopped = errors.New("dashboard session stopped")
	// ErrNotConfigured is returned for a provider the service was started without.
	ErrNotConfigured = errors.New("provider not configured")
)

// Config holds the session settings.
type Config struct {
	Site            ephem.Site
	Step            time.Duration // night grid spacing
	ClockInterval   time.Duration // clock strings only
	RefreshInterval time.Duration // positions, night rollover, sky map
}

// RemoteSource downloads the configured catalog.
type RemoteSource interface {
	Fetch(ctx context.Context) ([]byte, error)
	SourceURL() string
}

// QueueSource reads queue target lists.
type QueueSource interface {
	Records(ctx context.Context, name string) ([]*record.Record, queue.Queue, error)
}

// TelescopeSource reports telescope pointing and environment.
type TelescopeSource interface {
	CurrentTarget(ctx context.Context, tel string) (string, error)
	Environment(ctx context.Context, tel string) (map[string]string, error)
}

// Publisher receives stream events. Publish must not block.
type Publisher interface {
	Publish(event string, payload any)
}

// Options wires optional collaborators into a session.
type Options struct {
	Remote    RemoteSource
	Queues    QueueSource
	Telescope TelescopeSource
	Publisher Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

type event struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Session is one dashboard. Exported methods may be called from any
// goroutine; they run as events on the loop started by Run.
type Session struct {
	cfg    Config
	opts   Options
	cache  *night.Cache
	logger *slog.Logger
	now    func() time.Time

	events  chan event
	stopped chan struct{}
	snap    atomic.Pointer[Snapshot]

	// Owned by the event loop.
	window    *night.Window
	planRef   time.Time // zero while following the clock
	tbl       *table.Table
	engine    *filter.Engine
	source    string
	status    string
	pointed   string
	highlight int
	shapes    []polar.Shape
}

// New creates a session. Run must be started before other methods are used.
func New(cfg Config, opts Options) (*Session, error) {
	if cfg.Step <= 0 {
		cfg.Step = night.DefaultStep
	}
	if cfg.ClockInterval <= 0 {
		cfg.ClockInterval = time.Second
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	cache, err := night.NewCache(night.DefaultCacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:       cfg,
		opts:      opts,
		cache:     cache,
		logger:    logger,
		now:       now,
		events:    make(chan event),
		stopped:   make(chan struct{}),
		engine:    filter.NewEngine(),
		highlight: polar.NoRow,
	}, nil
}

// Snapshot returns the latest published view, or nil before Run starts.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Ready reports whether a snapshot has been published.
func (s *Session) Ready() bool {
	return s.snap.Load() != nil
}

// Run executes the event loop until ctx is cancelled. Timer ticks and
// submitted events are handled one at a time, each to completion.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)

	s.start(s.now())
	s.publish()

	clock := time.NewTicker(s.cfg.ClockInterval)
	defer clock.Stop()
	refresh := time.NewTicker(s.cfg.RefreshInterval)
	defer refresh.Stop()

	s.logger.Info("dashboard session started",
		"site", s.cfg.Site.Name,
		"step_minutes", s.cfg.Step.Minutes(),
		"clock_interval_seconds", s.cfg.ClockInterval.Seconds(),
		"refresh_interval_seconds", s.cfg.RefreshInterval.Seconds(),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dashboard session stopped")
			return nil
		case <-clock.C:
			s.tick(s.now())
		case <-refresh.C:
			s.refresh(ctx, s.now())
			s.publish()
		case ev := <-s.events:
			err := ev.fn(ctx)
			s.publish()
			ev.done <- err
		}
	}
}

// do runs fn on the event loop and waits for its result. If ctx ends
// first, fn still runs to completion but its result is dropped.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	ev := event{fn: fn, done: make(chan error, 1)}
	select {
	case s.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
	select {
	case err := <-ev.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) start(now time.Time) {
	if _, err := s.currentWindow(now); err != nil {
		s.setError("Cannot compute tonight's window", err)
		return
	}
	s.status = "Ready"
	s.updateSkyMap(now)
}

// tick publishes new clock strings without touching any data column.
func (s *Session) tick(now time.Time) {
	clock := table.ClockAt(s.cfg.Site, now)
	if prev := s.snap.Load(); prev != nil {
		next := *prev
		next.Clock = clock
		s.snap.Store(&next)
	}
	if p := s.opts.Publisher; p != nil {
		p.Publish("clock", clock)
	}
}

// refresh updates current positions, rolls the night over when the clock
// has left the current window, and recomputes the sky map.
func (s *Session) refresh(ctx context.Context, now time.Time) {
	start := time.Now()
	if s.planRef.IsZero() && (s.window == nil || !s.window.Covers(now)) {
		w, err := s.cache.Get(now, s.cfg.Site, s.cfg.Step)
		if err != nil {
			s.setError("Night rollover failed", err)
		} else if err := s.setWindow(ctx, w, now); err != nil {
			s.setError("Night rollover failed", err)
		}
	}

	if s.tbl != nil {
		if err := table.Refresh(s.tbl, s.cfg.Site, now); err != nil {
			metrics.IncRefreshErrors()
			s.setError("Position update failed", err)
		} else {
			metrics.ObserveRefresh(time.Since(start))
		}
	}
	s.updateSkyMap(now)

	if p := s.opts.Publisher; p != nil && s.tbl != nil {
		p.Publish("positions", Positions{
			Generation: s.tbl.Generation,
			Current:    s.tbl.Current,
			Mask:       s.engine.Mask(),
		})
	}
}

// currentWindow returns the loop's night window, building it on first use.
func (s *Session) currentWindow(now time.Time) (*night.Window, error) {
	if s.window != nil {
		return s.window, nil
	}
	ref := now
	if !s.planRef.IsZero() {
		ref = s.planRef
	}
	w, err := s.cache.Get(ref, s.cfg.Site, s.cfg.Step)
	if err != nil {
		return nil, err
	}
	s.window = w
	return w, nil
}

// setWindow moves the session to night w, recomputing the table's series.
// On failure the table keeps its previous window and series.
func (s *Session) setWindow(ctx context.Context, w *night.Window, now time.Time) error {
	if t := s.tbl; t != nil {
		prev := t.Window
		t.Window = w
		if err := t.ComputeSeries(ctx, s.cfg.Site); err != nil {
			t.Window = prev
			return err
		}
		t.ComputeAges(now)
		s.engine.Refresh()
	}
	s.window = w
	s.logger.Info("night window changed",
		"site", w.Site,
		"sunset", w.Sunset.UTC().Format(time.RFC3339),
		"sunrise", w.Sunrise.UTC().Format(time.RFC3339),
		"astronomical_night", w.HasAstronomicalNight(),
	)
	return nil
}

func (s *Session) setError(msg string, err error) {
	s.status = fmt.Sprintf("%s: %v", msg, err)
	s.logger.Warn(strings.ToLower(msg), "error", err)
}

// match returns the row whose name equals name, ignoring case, or NoRow.
func (s *Session) match(name string) int {
	name = strings.TrimSpace(name)
	if s.tbl == nil || name == "" {
		return polar.NoRow
	}
	for i, tg := range s.tbl.Targets {
		if strings.EqualFold(tg.Name, name) {
			return i
		}
	}
	return polar.NoRow
}

func (s *Session) updateSkyMap(now time.Time) {
	opts := polar.Options{
		Instant:   now,
		Mask:      s.engine.Mask(),
		Highlight: s.highlight,
	}
	if s.tbl != nil && s.highlight != polar.NoRow && s.tbl.Current.Altitude != nil {
		c := s.tbl.Current
		opts.Pointing = &polar.Pointing{Altitude: c.Altitude[s.highlight], Azimuth: c.Azimuth[s.highlight]}
	}
	shapes, err := polar.SkyMap(polar.Sky, s.tbl, s.cfg.Site, opts)
	if err != nil {
		s.logger.Warn("sky map failed", "error", err)
		return
	}
	s.shapes = shapes
}

// publish stores a fresh snapshot of loop state.
func (s *Session) publish() {
	now := s.now()
	snap := &Snapshot{
		Site:      s.cfg.Site.Name,
		Status:    s.status,
		Source:    s.source,
		Clock:     table.ClockAt(s.cfg.Site, now),
		Updated:   now,
		Window:    s.window,
		Filters:   s.engine.States(),
		Pointed:   s.pointed,
		Highlight: s.highlight,
		SkyMap:    s.shapes,
		Mask:      []bool{},
	}
	if !s.planRef.IsZero() {
		snap.PlanDate = s.planRef.Format(time.DateOnly)
	}
	if t := s.tbl; t != nil {
		snap.Generation = t.Generation
		snap.Targets = t.Targets
		snap.Text = maps.Clone(t.Text)
		snap.Number = make(map[table.Field]Floats, len(t.Number))
		for f, col := range t.Number {
			snap.Number[f] = Floats(col)
		}
		snap.Date = maps.Clone(t.Date)
		snap.Altitude = t.Altitude
		snap.Airmass = t.Airmass
		snap.MinAirmass = t.MinAirmass
		snap.Current = t.Current
		snap.Mask = s.engine.Mask()
		snap.Visible = s.engine.Visible()
		snap.Refined = s.engine.Refined()
		metrics.SetTableSize(t.Len(), snap.Visible)
	}
	s.snap.Store(snap)
}
