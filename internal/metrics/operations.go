package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Remote operation metrics
var (
	// OperationsTotal counts remote operations by tool, action and status
	OperationsTotal *prometheus.CounterVec

	// BytesUploadedTotal tracks total bytes written to the server
	BytesUploadedTotal prometheus.Counter

	// UploadSizeBytes tracks the size distribution of uploaded files
	UploadSizeBytes prometheus.Histogram

	// ErrorsTotal counts failed operations across all tools
	ErrorsTotal prometheus.Counter

	// RunDuration tracks how long a whole traversal took
	RunDuration *prometheus.HistogramVec

	// LastRunTimestamp records the Unix time a tool last finished
	LastRunTimestamp *prometheus.GaugeVec

	// LastRunSuccess is 1 when the last run had no failed operations
	LastRunSuccess *prometheus.GaugeVec
)

func initOperationMetrics() {
	OperationsTotal = NewCounterVec(
		"sftptools_operations_total",
		"Total remote operations attempted, by tool, action and status.",
		[]string{"tool", "action", "status"},
	)

	BytesUploadedTotal = NewCounter(
		"sftptools_bytes_uploaded_total",
		"Total bytes uploaded to the SFTP server.",
	)

	UploadSizeBytes = NewBytesHistogram(
		"sftptools_upload_size_bytes",
		"Size of uploaded files in bytes.",
	)

	ErrorsTotal = NewCounter(
		"sftptools_errors_total",
		"Total failed remote operations.",
	)

	RunDuration = NewDurationHistogramVec(
		"sftptools_run_duration_seconds",
		"Duration of a complete traversal in seconds.",
		[]string{"tool"},
	)

	LastRunTimestamp = NewGaugeVec(
		"sftptools_last_run_timestamp",
		"Timestamp of the last completed run (Unix epoch seconds).",
		[]string{"tool"},
	)

	LastRunSuccess = NewGaugeVec(
		"sftptools_last_run_success",
		"Whether the last run finished without failed operations (1) or not (0).",
		[]string{"tool"},
	)
}

func registerOperationMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationsTotal)
	reg.MustRegister(BytesUploadedTotal)
	reg.MustRegister(UploadSizeBytes)
	reg.MustRegister(ErrorsTotal)
	reg.MustRegister(RunDuration)
	reg.MustRegister(LastRunTimestamp)
	reg.MustRegister(LastRunSuccess)
}

// RecordOperation counts one remote operation outcome
func RecordOperation(tool, action, status string) {
	OperationsTotal.WithLabelValues(tool, action, status).Inc()
	if status == "ERROR" {
		ErrorsTotal.Inc()
	}
}

// RecordUpload adds a successfully uploaded file's size
func RecordUpload(bytes int64) {
	BytesUploadedTotal.Add(float64(bytes))
	UploadSizeBytes.Observe(float64(bytes))
}

// RecordRun stores duration, completion time and success of a run
func RecordRun(tool string, duration time.Duration, failed bool) {
	RunDuration.WithLabelValues(tool).Observe(duration.Seconds())
	LastRunTimestamp.WithLabelValues(tool).Set(float64(time.Now().Unix()))
	success := 1.0
	if failed {
		success = 0
	}
	LastRunSuccess.WithLabelValues(tool).Set(success)
}
