package journal

import (
	"time"

	"github.com/google/uuid"

	"sftp-tools/internal/database"
	"sftp-tools/internal/logging"
	"sftp-tools/internal/metrics"
)

// Recorder collects the outcomes of a single run
type Recorder struct {
	logger logging.Logger
	db     *database.OperationDB // optional
	report *Report
}

// NewRecorder starts a run for tool with a fresh run ID.
// db may be nil when history is disabled.
func NewRecorder(tool string, logger logging.Logger, db *database.OperationDB) *Recorder {
	metrics.Init()
	return &Recorder{
		logger: logger,
		db:     db,
		report: &Report{
			Tool:    tool,
			RunID:   uuid.NewString(),
			Started: time.Now(),
		},
	}
}

// RunID identifies the run in logs and history
func (r *Recorder) RunID() string {
	return r.report.RunID
}

// Record adds o to the report, logs it, counts it and stores it
func (r *Recorder) Record(o Outcome) {
	if o.Time.IsZero() {
		o.Time = time.Now()
	}
	r.report.add(o)
	r.log(o)

	metrics.RecordOperation(r.report.Tool, string(o.Action), string(o.Status))
	if o.Action == ActionUpload && o.Status == StatusOK {
		metrics.RecordUpload(o.Bytes)
	}

	if r.db == nil {
		return
	}
	rec := database.OperationRecord{
		RunID:     r.report.RunID,
		Timestamp: o.Time,
		Tool:      r.report.Tool,
		Action:    string(o.Action),
		Status:    string(o.Status),
		Path:      o.Path,
		LocalPath: o.LocalPath,
		Size:      o.Bytes,
		Reason:    o.Reason,
	}
	if o.Err != nil {
		rec.ErrorMessage = o.Err.Error()
	}
	if err := r.db.RecordOperation(rec); err != nil {
		// History is best effort; never fail the run over it
		r.logger.Errorw("Failed to record to database", "path", o.Path, "error", err)
	}
}

func (r *Recorder) log(o Outcome) {
	kv := []interface{}{"action", string(o.Action), "path", o.Path}
	if o.LocalPath != "" {
		kv = append(kv, "local_path", o.LocalPath)
	}
	if o.Bytes > 0 {
		kv = append(kv, "bytes", o.Bytes)
	}
	if o.Reason != "" {
		kv = append(kv, "reason", o.Reason)
	}

	switch {
	case o.Status == StatusError:
		kv = append(kv, "error", o.Err)
		r.logger.Errorw(o.Message(), kv...)
	case o.Status == StatusSkipped && o.Action == ActionMakeDir:
		r.logger.Debugw(o.Message(), kv...)
	default:
		r.logger.Infow(o.Message(), kv...)
	}
}

// Finish stamps the run end, records run metrics and logs the summary
func (r *Recorder) Finish() *Report {
	if r.report.Finished.IsZero() {
		r.report.Finished = time.Now()
		metrics.RecordRun(r.report.Tool, r.report.Duration(), r.report.HasFailures())
		r.logger.Infow("Run complete",
			"tool", r.report.Tool,
			"run_id", r.report.RunID,
			"succeeded", r.report.Succeeded,
			"failed", r.report.Failed,
			"skipped", r.report.Skipped,
			"bytes_uploaded", r.report.BytesUploaded,
			"duration", r.report.Duration(),
		)
	}
	return r.report
}
