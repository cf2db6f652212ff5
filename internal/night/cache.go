package night

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/metrics"
)

// DefaultCacheSize bounds the number of (date, site, step) keys retained.
const DefaultCacheSize = 64

// Key identifies a cache slot. Date is the site-local calendar date of the
// reference instant.
type Key struct {
	Date string
	Site string
	Step time.Duration
}

// Cache memoizes Build. A calendar date can straddle two nights (the early
// morning belongs to the previous one), so each slot holds every window
// built on that date and a hit requires a window covering the instant.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[Key, []*Window]
	logger *slog.Logger
}

// NewCache creates a night window cache holding at most size keys.
func NewCache(size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[Key, []*Window](size)
	if err != nil {
		return nil, fmt.Errorf("creating night cache: %w", err)
	}
	return &Cache{lru: l, logger: logger}, nil
}

// KeyFor returns the cache key for ref at site.
func KeyFor(ref time.Time, site ephem.Site, step time.Duration) Key {
	if step <= 0 {
		step = DefaultStep
	}
	return Key{
		Date: ref.In(site.Location()).Format(time.DateOnly),
		Site: site.Name,
		Step: step,
	}
}

// Get returns the window for ref, building it on a miss.
func (c *Cache) Get(ref time.Time, site ephem.Site, step time.Duration) (*Window, error) {
	key := KeyFor(ref, site, step)

	c.mu.Lock()
	defer c.mu.Unlock()

	windows, _ := c.lru.Get(key)
	for _, w := range windows {
		if w.Covers(ref) {
			metrics.IncNightCacheHits()
			return w, nil
		}
	}
	metrics.IncNightCacheMisses()

	w, err := Build(ref, site, key.Step)
	if err != nil {
		return nil, err
	}

	c.lru.Add(key, append(windows, w))
	c.logger.Debug("night window built",
		"site", site.Name,
		"date", key.Date,
		"sunset", w.Sunset,
		"sunrise", w.Sunrise,
		"grid_points", len(w.Grid),
	)
	return w, nil
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	return c.lru.Len()
}
