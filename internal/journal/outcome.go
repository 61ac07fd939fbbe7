// Package journal records the outcome of every remote operation a run
// attempts and fans it out to the report, the log, metrics and history.
package journal

import (
	"fmt"
	"time"
)

// Action names the kind of remote operation attempted
type Action string

const (
	ActionDeleteFile Action = "DELETE_FILE"
	ActionRemoveDir  Action = "REMOVE_DIR"
	ActionMakeDir    Action = "MAKE_DIR"
	ActionUpload     Action = "UPLOAD"
	ActionList       Action = "LIST"
	ActionSkip       Action = "SKIP"
)

// Status is the result of an attempted action
type Status string

const (
	StatusOK      Status = "OK"
	StatusError   Status = "ERROR"
	StatusSkipped Status = "SKIPPED"
)

// Skip reasons
const (
	ReasonExcludedDir = "excluded_dir"
	ReasonKeepFile    = "keep_file"
	ReasonNotEmpty    = "not_empty"
	ReasonStatFailed  = "stat_failed"
)

// Outcome is the result of one leaf operation
type Outcome struct {
	Action    Action
	Status    Status
	Path      string // remote path
	LocalPath string // source path for uploads
	Bytes     int64
	Reason    string
	Err       error
	Time      time.Time
}

// Message renders the human-readable progress line for the outcome
func (o Outcome) Message() string {
	if o.Status == StatusError {
		switch o.Action {
		case ActionDeleteFile:
			return fmt.Sprintf("Failed to delete file: %s", o.Path)
		case ActionRemoveDir:
			return fmt.Sprintf("Failed to remove directory: %s", o.Path)
		case ActionMakeDir:
			return fmt.Sprintf("Failed to create directory: %s", o.Path)
		case ActionUpload:
			return fmt.Sprintf("Failed to upload: %s -> %s", o.LocalPath, o.Path)
		case ActionList:
			return fmt.Sprintf("Failed to list directory: %s", o.Path)
		default:
			return fmt.Sprintf("Failed to inspect: %s", o.Path)
		}
	}

	switch o.Action {
	case ActionDeleteFile:
		return fmt.Sprintf("Deleted file: %s", o.Path)
	case ActionRemoveDir:
		if o.Status == StatusSkipped {
			return fmt.Sprintf("Directory not empty, left in place: %s", o.Path)
		}
		return fmt.Sprintf("Removed directory: %s", o.Path)
	case ActionMakeDir:
		if o.Status == StatusSkipped {
			return fmt.Sprintf("Directory not created: %s", o.Path)
		}
		return fmt.Sprintf("Created directory: %s", o.Path)
	case ActionUpload:
		return fmt.Sprintf("Uploaded: %s -> %s", o.LocalPath, o.Path)
	case ActionSkip:
		switch o.Reason {
		case ReasonExcludedDir:
			return fmt.Sprintf("Skipping excluded directory: %s", o.Path)
		case ReasonKeepFile:
			return fmt.Sprintf("Keeping file: %s", o.Path)
		}
	}
	return fmt.Sprintf("%s %s: %s", o.Action, o.Status, o.Path)
}

// Report is the ordered list of outcomes of one run
type Report struct {
	Tool          string
	RunID         string
	Outcomes      []Outcome
	Succeeded     int
	Failed        int
	Skipped       int
	BytesUploaded int64
	Started       time.Time
	Finished      time.Time
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusOK:
		r.Succeeded++
		if o.Action == ActionUpload {
			r.BytesUploaded += o.Bytes
		}
	case StatusError:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}

// Errors returns the failed outcomes in the order they happened
func (r *Report) Errors() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusError {
			failed = append(failed, o)
		}
	}
	return failed
}

// HasFailures reports whether any operation failed
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}

// Duration is the wall time of the run, zero until finished
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Find returns the first outcome for path with the given action
func (r *Report) Find(action Action, path string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Action == action && o.Path == path {
			return o, true
		}
	}
	return Outcome{}, false
}
