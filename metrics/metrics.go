package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts engine operations (assemble, iterate, divide, place) by outcome.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocks_operations_total",
			Help: "Total number of block operations",
		},
		[]string{"operation", "status"},
	)
	// OperationDuration is the latency of engine operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blocks_operation_duration_seconds",
			Help:    "Block operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	// FilesRead counts block files decoded, by format.
	FilesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocks_files_read_total",
			Help: "Total number of block files read",
		},
		[]string{"format"},
	)
	// FilesWritten counts block files encoded, by format.
	FilesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocks_files_written_total",
			Help: "Total number of block files written",
		},
		[]string{"format"},
	)
	// RowsRead counts rows decoded from block files.
	RowsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocks_rows_read_total",
			Help: "Total number of rows read from block files",
		},
	)
	// RowsWritten counts rows encoded into block files.
	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "blocks_rows_written_total",
			Help: "Total number of rows written to block files",
		},
	)
	// StorageRetries counts retried storage calls by operation and error category.
	StorageRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocks_storage_retries_total",
			Help: "Total number of retried storage calls",
		},
		[]string{"op", "category"},
	)
)

// Observe records one finished operation.
func Observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
