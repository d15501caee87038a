package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"portal/internal/adapters/http/perf"
)

// SQLDB is the database interface used by stores.
// Both *sql.DB and *TimedDB satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ SQLDB = (*sql.DB)(nil)
var _ SQLDB = (*TimedDB)(nil)

// DefaultSlowQueryMs is the default slow query threshold.
const DefaultSlowQueryMs = 50

var (
	slowQueryMs   float64
	slowQueryOnce sync.Once
)

func slowQueryThreshold() float64 {
	slowQueryOnce.Do(func() {
		slowQueryMs = DefaultSlowQueryMs
		if v := os.Getenv("PORTAL_SLOW_QUERY_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				slowQueryMs = float64(n)
			}
		}
	})
	return slowQueryMs
}

// TimedDB wraps a *sql.DB, logging slow queries and recording to a collector.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	threshold float64
	prefix    string
}

// NewTimedDB wraps db. prefix names the owning store in logs ("localstore").
// PRE: db is a valid database connection; collector may be nil
// POST: Returns a TimedDB ready to hand to a store constructor
func NewTimedDB(db *sql.DB, collector *perf.Collector, prefix string) *TimedDB {
	return &TimedDB{
		db:        db,
		collector: collector,
		threshold: slowQueryThreshold(),
		prefix:    prefix,
	}
}

func (t *TimedDB) observe(op string, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if t.prefix != "" {
		op = t.prefix + "." + op
	}
	if durationMs >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}
	t.collector.Record(perf.Entry{
		Kind:       perf.KindQuery,
		Path:       op,
		DurationMs: durationMs,
		Timestamp:  start,
	})
}

// ExecContext times sql.DB.ExecContext.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	defer t.observe("ExecContext", start)
	return t.db.ExecContext(ctx, query, args...)
}

// QueryRowContext times sql.DB.QueryRowContext.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	defer t.observe("QueryRowContext", start)
	return t.db.QueryRowContext(ctx, query, args...)
}

// RawDB returns the wrapped *sql.DB.
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// Close closes the underlying database.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
