package database

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

// QueryRecorder receives one observation per query. *metrics.Metrics
// satisfies it.
type QueryRecorder interface {
	RecordDBQuery(operation string, duration time.Duration, err error)
}

// QueryLoggerConfig configures query logging behavior.
type QueryLoggerConfig struct {
	// SlowQueryThreshold logs queries at WARN.
	SlowQueryThreshold time.Duration
	// VerySlowQueryThreshold logs queries at ERROR.
	VerySlowQueryThreshold time.Duration
	// LogAllQueries logs fast queries at DEBUG.
	LogAllQueries bool
}

// DefaultQueryLoggerConfig returns the default thresholds.
func DefaultQueryLoggerConfig() *QueryLoggerConfig {
	return &QueryLoggerConfig{
		SlowQueryThreshold:     100 * time.Millisecond,
		VerySlowQueryThreshold: 500 * time.Millisecond,
	}
}

// QueryStats counts queries since start or the last reset.
type QueryStats struct {
	Total    int64
	Slow     int64
	VerySlow int64
	Failed   int64
	Slowest  string
	Longest  time.Duration
}

// QueryLogger is a pgx.QueryTracer that logs slow and failed queries and
// feeds per-operation metrics.
type QueryLogger struct {
	config   QueryLoggerConfig
	recorder QueryRecorder
	clock    clock.Clock
	logger   *zap.Logger

	total    atomic.Int64
	slow     atomic.Int64
	verySlow atomic.Int64
	failed   atomic.Int64

	mu      sync.Mutex
	slowest string
	longest time.Duration
}

var _ pgx.QueryTracer = (*QueryLogger)(nil)

// NewQueryLogger creates a query logger. cfg and recorder may be nil.
func NewQueryLogger(cfg *QueryLoggerConfig, recorder QueryRecorder, logger *zap.Logger) *QueryLogger {
	if cfg == nil {
		cfg = DefaultQueryLoggerConfig()
	}
	return &QueryLogger{
		config:   *cfg,
		recorder: recorder,
		clock:    clock.New(),
		logger:   logger.Named("query"),
	}
}

// SetClock replaces the clock used for timing.
func (ql *QueryLogger) SetClock(c clock.Clock) {
	ql.clock = c
}

type queryTraceData struct {
	start time.Time
	sql   string
}

type ctxKey struct{}

// TraceQueryStart implements pgx.QueryTracer.
func (ql *QueryLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, ctxKey{}, &queryTraceData{start: ql.clock.Now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (ql *QueryLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	td, ok := ctx.Value(ctxKey{}).(*queryTraceData)
	if !ok {
		return
	}

	duration := ql.clock.Since(td.start)
	op := Operation(td.sql)
	ql.total.Add(1)
	if ql.recorder != nil {
		ql.recorder.RecordDBQuery(op, duration, data.Err)
	}

	ql.mu.Lock()
	if duration > ql.longest {
		ql.longest = duration
		ql.slowest = truncateSQL(td.sql, 200)
	}
	ql.mu.Unlock()

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("sql", truncateSQL(td.sql, 500)),
		zap.Duration("duration", duration),
	}

	switch {
	case data.Err != nil:
		ql.failed.Add(1)
		ql.logger.Error("query failed", append(fields, zap.Error(data.Err))...)
	case duration >= ql.config.VerySlowQueryThreshold:
		ql.verySlow.Add(1)
		ql.slow.Add(1)
		ql.logger.Error("very slow query detected", append(fields, zap.String("command_tag", data.CommandTag.String()))...)
	case duration >= ql.config.SlowQueryThreshold:
		ql.slow.Add(1)
		ql.logger.Warn("slow query detected", append(fields, zap.String("command_tag", data.CommandTag.String()))...)
	case ql.config.LogAllQueries:
		ql.logger.Debug("query executed", fields...)
	}
}

// Stats returns a copy of the counters.
func (ql *QueryLogger) Stats() QueryStats {
	ql.mu.Lock()
	defer ql.mu.Unlock()
	return QueryStats{
		Total:    ql.total.Load(),
		Slow:     ql.slow.Load(),
		VerySlow: ql.verySlow.Load(),
		Failed:   ql.failed.Load(),
		Slowest:  ql.slowest,
		Longest:  ql.longest,
	}
}

// LogStats logs the counters at INFO.
func (ql *QueryLogger) LogStats() {
	s := ql.Stats()
	ql.logger.Info("query statistics",
		zap.Int64("total_queries", s.Total),
		zap.Int64("slow_queries", s.Slow),
		zap.Int64("very_slow_queries", s.VerySlow),
		zap.Int64("failed_queries", s.Failed),
		zap.String("slowest_query", s.Slowest),
		zap.Duration("slowest_duration", s.Longest),
	)
}

// Operation returns the lowercased leading SQL keyword, used as the metric
// label of a query.
func Operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch op := strings.ToLower(fields[0]); op {
	case "select", "insert", "update", "delete", "with", "create", "begin", "commit", "rollback":
		return op
	default:
		return "other"
	}
}

func truncateSQL(sql string, maxLen int) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "..."
}
