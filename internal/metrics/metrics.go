package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Met service metrics
var (
	// ServiceRequestsTotal counts MetDataService calls by outcome
	ServiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metobs_service_requests_total",
			Help: "Total number of MetDataService requests by outcome",
		},
		[]string{"outcome"},
	)

	// ServiceRequestDuration tracks how long a MetDataService call takes end to end
	ServiceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metobs_service_request_duration_seconds",
			Help:    "Duration of MetDataService requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// ChunksPerQuery observes how many yearly chunks a query was split into
	ChunksPerQuery = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metobs_query_chunks",
			Help:    "Number of calendar year chunks per assembled query",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	// RowsAssembledTotal counts rows returned by the table assembler
	RowsAssembledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metobs_rows_assembled_total",
			Help: "Total number of table rows assembled",
		},
		[]string{"format"},
	)

	// StreamMessagesTotal counts observation batches moved through the Redis stream
	StreamMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metobs_stream_messages_total",
			Help: "Total number of observation batches published or consumed",
		},
		[]string{"direction", "status"},
	)
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle connections",
		},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "metobs_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppStartTime.SetToCurrentTime()
}

// RecordServiceRequest records one MetDataService call
func RecordServiceRequest(outcome string, duration time.Duration) {
	ServiceRequestsTotal.WithLabelValues(outcome).Inc()
	ServiceRequestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordAssembled records a finished table
func RecordAssembled(format string, chunks, rows int) {
	ChunksPerQuery.Observe(float64(chunks))
	RowsAssembledTotal.WithLabelValues(format).Add(float64(rows))
}

// RecordStreamMessage records a published or consumed stream message
func RecordStreamMessage(direction string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StreamMessagesTotal.WithLabelValues(direction, status).Inc()
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DBQueriesTotal.WithLabelValues(queryType, table, status).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}
