package queue

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/obscode/magdash/internal/record"
)

// targetsQuery selects the active targets flagged for a queue, joined with
// their newest r-band photometry. %s is the queue flag column.
const targetsQuery = `
SELECT t0.sn, t0.type, t0.ra::text AS ra, t0.de::text AS de, t0.camp, t0.agerdate,
       t2.mag, t2.night, t2.jd
  FROM snlist t0
  LEFT JOIN (
    SELECT DISTINCT ON (field) field, night, mag, jd
      FROM magsn
     WHERE filt = 'r' AND obj < 1
     ORDER BY field, jd DESC
  ) t2 ON t2.field IN (t0.sn, t0.name_csp, t0.name_iau, t0.name_psn)
 WHERE t0.active = '1' AND t0.%s = '1'
 ORDER BY t0.ra`

// priorityQuery returns the newest priority comment of every target.
const priorityQuery = `
SELECT DISTINCT ON (sn_id) sn_id, text
  FROM comments
 WHERE type = 'priority'
 ORDER BY sn_id, time DESC`

type priorityRow struct {
	SNID string `gorm:"column:sn_id"`
	Text string `gorm:"column:text"`
}

// source runs the two queue queries.
type source interface {
	targets(ctx context.Context, column string) ([]targetRow, error)
	priorities(ctx context.Context) ([]priorityRow, error)
}

type gormSource struct {
	db *gorm.DB
}

func (g gormSource) targets(ctx context.Context, column string) ([]targetRow, error) {
	var rows []targetRow
	err := g.db.WithContext(ctx).Raw(fmt.Sprintf(targetsQuery, column)).Scan(&rows).Error
	return rows, err
}

func (g gormSource) priorities(ctx context.Context) ([]priorityRow, error) {
	var rows []priorityRow
	err := g.db.WithContext(ctx).Raw(priorityQuery).Scan(&rows).Error
	return rows, err
}

// Store reads queue target lists.
type Store struct {
	src    source
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the program database.
func Open(dsn string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to queue database: %w", err)
	}
	return New(db, log), nil
}

// New wraps an open database handle.
func New(db *gorm.DB, log *slog.Logger) *Store {
	return &Store{src: gormSource{db: db}, db: db, logger: log}
}

// Close releases the database connections.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Records returns the queue's targets as raw records, ordered by RA.
func (s *Store) Records(ctx context.Context, name string) ([]*record.Record, Queue, error) {
	q, err := Lookup(name)
	if err != nil {
		return nil, Queue{}, err
	}

	rows, err := s.src.targets(ctx, q.Column)
	if err != nil {
		return nil, q, fmt.Errorf("querying %s queue: %w", q.Name, err)
	}
	prows, err := s.src.priorities(ctx)
	if err != nil {
		return nil, q, fmt.Errorf("querying priorities: %w", err)
	}
	priorities := make(map[string]string, len(prows))
	for _, p := range prows {
		priorities[p.SNID] = p.Text
	}

	s.logger.Info("queue fetched", "queue", q.Name, "rows", len(rows), "priorities", len(priorities))
	return toRecords(q, rows, priorities), q, nil
}
