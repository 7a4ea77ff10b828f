package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tadejg/zxorm-sqlcipher/dialect"
)

// QueryStats holds statement execution statistics for one connection.
type QueryStats struct {
	// TotalQueries is the total number of row-returning statements executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of statement errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of statement statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsExecQuerier wraps an ExecQuerier with statistics collection and
// optional slow-statement detection.
type StatsExecQuerier struct {
	dialect.ExecQuerier
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures a StatsExecQuerier.
type StatsOption func(*StatsExecQuerier)

// WithSlowThreshold sets the threshold above which a statement counts as
// slow. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsExecQuerier) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets the hook invoked for slow statements.
func WithSlowQueryHook(h SlowQueryHook) StatsOption {
	return func(s *StatsExecQuerier) {
		s.slowHook = h
	}
}

// Stats wraps the given ExecQuerier with statistics collection.
func Stats(eq dialect.ExecQuerier, opts ...StatsOption) *StatsExecQuerier {
	s := &StatsExecQuerier{
		ExecQuerier:   eq,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the accumulated statistics.
func (s *StatsExecQuerier) Stats() *QueryStats { return s.stats }

func (s *StatsExecQuerier) record(ctx context.Context, query string, args []any, start time.Time, exec bool, err error) {
	d := time.Since(start)
	s.stats.TotalDuration.Add(int64(d))
	if exec {
		s.stats.TotalExecs.Add(1)
	} else {
		s.stats.TotalQueries.Add(1)
	}
	if err != nil {
		s.stats.Errors.Add(1)
	}
	if d >= s.slowThreshold {
		s.stats.SlowQueries.Add(1)
		s.mu.RLock()
		hook := s.slowHook
		s.mu.RUnlock()
		if hook != nil {
			hook(ctx, query, args, d)
		}
	}
}

// ExecContext executes the statement and records its statistics.
func (s *StatsExecQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := s.ExecQuerier.ExecContext(ctx, query, args...)
	s.record(ctx, query, args, start, true, err)
	return res, err
}

// QueryContext executes the statement and records its statistics.
func (s *StatsExecQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := s.ExecQuerier.QueryContext(ctx, query, args...)
	s.record(ctx, query, args, start, false, err)
	return rows, err
}
