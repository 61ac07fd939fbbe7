package journal

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sftp-tools/internal/database"
)

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func TestRecorderCounts(t *testing.T) {
	logger, logs := newObservedLogger()
	rec := NewRecorder("delete", logger, nil)

	rec.Record(Outcome{Action: ActionDeleteFile, Status: StatusOK, Path: "/r/a.txt"})
	rec.Record(Outcome{Action: ActionSkip, Status: StatusSkipped, Path: "/r/keep.txt", Reason: ReasonKeepFile})
	rec.Record(Outcome{Action: ActionRemoveDir, Status: StatusError, Path: "/r/locked", Err: errors.New("permission denied")})
	rec.Record(Outcome{Action: ActionRemoveDir, Status: StatusOK, Path: "/r/empty"})

	report := rec.Finish()

	if report.Succeeded != 2 || report.Failed != 1 || report.Skipped != 1 {
		t.Errorf("Unexpected counters: ok=%d failed=%d skipped=%d", report.Succeeded, report.Failed, report.Skipped)
	}
	if !report.HasFailures() {
		t.Error("Expected HasFailures to be true")
	}
	if len(report.Outcomes) != 4 {
		t.Fatalf("Expected 4 outcomes, got %d", len(report.Outcomes))
	}
	if report.Outcomes[0].Time.IsZero() {
		t.Error("Expected outcome time to be stamped")
	}

	errs := report.Errors()
	if len(errs) != 1 || errs[0].Path != "/r/locked" {
		t.Errorf("Expected one error for /r/locked, got %+v", errs)
	}

	if n := logs.FilterMessage("Deleted file: /r/a.txt").Len(); n != 1 {
		t.Errorf("Expected deletion to be logged once, got %d", n)
	}
	failed := logs.FilterMessage("Failed to remove directory: /r/locked").All()
	if len(failed) != 1 || failed[0].Level != zapcore.ErrorLevel {
		t.Errorf("Expected failed removal at error level, got %+v", failed)
	}
	if n := logs.FilterMessage("Run complete").Len(); n != 1 {
		t.Errorf("Expected summary line, got %d", n)
	}
}

func TestRecorderUploadBytes(t *testing.T) {
	logger, logs := newObservedLogger()
	rec := NewRecorder("upload", logger, nil)

	rec.Record(Outcome{Action: ActionUpload, Status: StatusOK, Path: "/r/a/x.txt", LocalPath: "a/x.txt", Bytes: 5})
	rec.Record(Outcome{Action: ActionUpload, Status: StatusOK, Path: "/r/a/b/y.txt", LocalPath: "a/b/y.txt", Bytes: 7})
	rec.Record(Outcome{Action: ActionMakeDir, Status: StatusSkipped, Path: "/r/a", Reason: "file exists"})

	report := rec.Finish()
	if report.BytesUploaded != 12 {
		t.Errorf("Expected 12 bytes uploaded, got %d", report.BytesUploaded)
	}
	if report.HasFailures() {
		t.Error("Expected no failures")
	}

	if n := logs.FilterMessage("Uploaded: a/x.txt -> /r/a/x.txt").Len(); n != 1 {
		t.Errorf("Expected upload line, got %d", n)
	}
	mkdir := logs.FilterMessage("Directory not created: /r/a").All()
	if len(mkdir) != 1 || mkdir[0].Level != zapcore.DebugLevel {
		t.Errorf("Expected skipped mkdir at debug level, got %+v", mkdir)
	}
}

func TestRecorderFinishIdempotent(t *testing.T) {
	logger, logs := newObservedLogger()
	rec := NewRecorder("delete", logger, nil)

	first := rec.Finish()
	finished := first.Finished
	second := rec.Finish()

	if first != second || !second.Finished.Equal(finished) {
		t.Error("Expected Finish to return the same report without restamping")
	}
	if n := logs.FilterMessage("Run complete").Len(); n != 1 {
		t.Errorf("Expected one summary line, got %d", n)
	}
}

func TestRecorderWritesHistory(t *testing.T) {
	db, err := database.NewOperationDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	logger, _ := newObservedLogger()
	rec := NewRecorder("delete", logger, db)
	rec.Record(Outcome{Action: ActionDeleteFile, Status: StatusOK, Path: "/r/a.txt"})
	rec.Record(Outcome{Action: ActionDeleteFile, Status: StatusError, Path: "/r/b.txt", Err: errors.New("denied")})
	rec.Finish()

	records, err := db.GetOperationsByRun(rec.RunID())
	if err != nil {
		t.Fatalf("GetOperationsByRun failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 history records, got %d", len(records))
	}
	if records[1].Status != "ERROR" || records[1].ErrorMessage != "denied" {
		t.Errorf("Unexpected error record: %+v", records[1])
	}
	if records[0].Tool != "delete" || records[0].FileName != "a.txt" {
		t.Errorf("Unexpected record: %+v", records[0])
	}
}

func TestRecorderHistoryFailureIsNotFatal(t *testing.T) {
	db, err := database.NewOperationDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.Close()

	logger, logs := newObservedLogger()
	rec := NewRecorder("delete", logger, db)
	rec.Record(Outcome{Action: ActionDeleteFile, Status: StatusOK, Path: "/r/a.txt"})

	if report := rec.Finish(); report.Succeeded != 1 {
		t.Errorf("Expected outcome to be counted despite history failure, got %d", report.Succeeded)
	}
	if n := logs.FilterMessage("Failed to record to database").Len(); n != 1 {
		t.Errorf("Expected history failure to be logged, got %d", n)
	}
}

func TestOutcomeMessage(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"deleted", Outcome{Action: ActionDeleteFile, Status: StatusOK, Path: "/r/f"}, "Deleted file: /r/f"},
		{"delete failed", Outcome{Action: ActionDeleteFile, Status: StatusError, Path: "/r/f"}, "Failed to delete file: /r/f"},
		{"removed", Outcome{Action: ActionRemoveDir, Status: StatusOK, Path: "/r/d"}, "Removed directory: /r/d"},
		{"not empty", Outcome{Action: ActionRemoveDir, Status: StatusSkipped, Path: "/r/d", Reason: ReasonNotEmpty}, "Directory not empty, left in place: /r/d"},
		{"excluded", Outcome{Action: ActionSkip, Status: StatusSkipped, Path: "/r/.git", Reason: ReasonExcludedDir}, "Skipping excluded directory: /r/.git"},
		{"kept", Outcome{Action: ActionSkip, Status: StatusSkipped, Path: "/r/k", Reason: ReasonKeepFile}, "Keeping file: /r/k"},
		{"uploaded", Outcome{Action: ActionUpload, Status: StatusOK, Path: "/r/x", LocalPath: "x"}, "Uploaded: x -> /r/x"},
		{"list failed", Outcome{Action: ActionList, Status: StatusError, Path: "/r/d"}, "Failed to list directory: /r/d"},
		{"stat failed", Outcome{Action: ActionSkip, Status: StatusError, Path: "/r/q", Reason: ReasonStatFailed}, "Failed to inspect: /r/q"},
		{"created", Outcome{Action: ActionMakeDir, Status: StatusOK, Path: "/r/a"}, "Created directory: /r/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReportFind(t *testing.T) {
	r := &Report{}
	r.add(Outcome{Action: ActionUpload, Status: StatusOK, Path: "/r/x", Bytes: 3})

	if o, ok := r.Find(ActionUpload, "/r/x"); !ok || o.Bytes != 3 {
		t.Errorf("Expected to find upload of /r/x, got %+v %v", o, ok)
	}
	if _, ok := r.Find(ActionDeleteFile, "/r/x"); ok {
		t.Error("Did not expect a delete outcome")
	}
	if r.Duration() != 0 {
		t.Error("Expected zero duration for unfinished report")
	}
}
