package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency (seconds)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Database query latency (seconds)
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// Chart assembly latency (seconds), snapshot load excluded
	ChartBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gantt_chart_build_duration_seconds",
			Help:    "Time spent normalizing, ordering and propagating a chart",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
	)

	ChartRowsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gantt_chart_rows_served_total",
			Help: "Total number of chart rows returned",
		},
	)

	// Start dates moved by blocker propagation
	BlockerShiftCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gantt_blocker_shift_total",
			Help: "Total number of start dates moved forward by blockers",
		},
		[]string{"source"}, // source: display, hook
	)

	SeedOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gantt_seed_operation_total",
			Help: "Total number of link seed store operations",
		},
		[]string{"operation", "result"}, // operation: get, set, clear
	)

	OutboxEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_event_total",
			Help: "Outbox delivery attempts by result",
		},
		[]string{"result"}, // sent, failed, postponed
	)
)

// RecordHTTPRequestDuration records one HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one database query.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a query over the slow threshold.
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordChartBuild records a chart assembly and its row count.
func RecordChartBuild(rows int, duration time.Duration) {
	ChartBuildDuration.Observe(duration.Seconds())
	ChartRowsServed.Add(float64(rows))
}

// AddBlockerShifts counts start dates moved by blockers.
func AddBlockerShifts(source string, n int) {
	if n > 0 {
		BlockerShiftCount.WithLabelValues(source).Add(float64(n))
	}
}

// IncrementSeedOperation counts one seed store call.
func IncrementSeedOperation(operation, result string) {
	SeedOperationCount.WithLabelValues(operation, result).Inc()
}

// IncrementOutboxEvent counts one outbox delivery attempt.
func IncrementOutboxEvent(result string) {
	OutboxEventCount.WithLabelValues(result).Inc()
}
