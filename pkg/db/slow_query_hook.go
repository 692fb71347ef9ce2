package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"ganttservice/pkg/metrics"
)

type queryStartKey struct{}

type queryInfo struct {
	start time.Time
	sql   string
}

// SlowQueryTracer records every query duration and logs the slow ones.
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewSlowQueryTracer creates a tracer; threshold defaults to 100ms.
func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold <= 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryInfo{start: time.Now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	info, ok := ctx.Value(queryStartKey{}).(queryInfo)
	if !ok {
		return
	}

	duration := time.Since(info.start)
	operation, table := describeSQL(info.sql)
	metrics.RecordDBQueryDuration(operation, table, duration)

	if duration <= t.slowThreshold {
		return
	}

	sqlTruncated := strings.Join(strings.Fields(info.sql), " ")
	if len(sqlTruncated) > 200 {
		sqlTruncated = sqlTruncated[:200] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", sqlTruncated),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
		zap.Error(data.Err),
	)
	metrics.IncrementSlowQuery()
}

// describeSQL extracts a low-cardinality (operation, table) pair for metrics.
func describeSQL(sql string) (string, string) {
	fields := strings.Fields(strings.ToLower(sql))
	if len(fields) == 0 {
		return "unknown", "unknown"
	}

	operation := fields[0]
	var marker string
	switch operation {
	case "select", "delete":
		marker = "from"
	case "insert":
		marker = "into"
	case "update":
		if len(fields) > 1 {
			return operation, strings.Trim(fields[1], `"`)
		}
		return operation, "unknown"
	default:
		return operation, "unknown"
	}

	for i, f := range fields {
		if f == marker && i+1 < len(fields) {
			return operation, strings.Trim(strings.TrimRight(fields[i+1], "(,"), `"`)
		}
	}
	return operation, "unknown"
}
