// Package upload mirrors a local directory tree onto an SFTP server.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sftp-tools/internal/database"
	"sftp-tools/internal/fsops"
	"sftp-tools/internal/journal"
	"sftp-tools/internal/limiter"
	"sftp-tools/internal/logging"
)

// Tool labels uploader runs in metrics and history
const Tool = "upload"

// ErrLocalList is returned when a local directory cannot be read
var ErrLocalList = errors.New("cannot list local directory")

// Uploader copies a local tree to a remote directory
type Uploader struct {
	session fsops.Session
	limiter *limiter.OpLimiter
	logger  logging.Logger
	db      *database.OperationDB
}

// NewUploader creates a new Uploader. db may be nil.
func NewUploader(session fsops.Session, logger logging.Logger, db *database.OperationDB) *Uploader {
	return &Uploader{
		session: session,
		logger:  logger,
		db:      db,
	}
}

// SetLimiter throttles remote operations
func (u *Uploader) SetLimiter(l *limiter.OpLimiter) {
	u.limiter = l
}

// localFrame is one local directory on the traversal stack
type localFrame struct {
	local   string
	remote  string
	entries []os.DirEntry
	next    int
}

// Run uploads every file under localRoot to the same relative path under
// remoteRoot, creating remote directories before descending into them.
// Existing remote files are overwritten. A directory that cannot be
// created is recorded as skipped and still descended into; a file that
// cannot be uploaded is recorded as failed. Failing to read a local
// directory stops the run with ErrLocalList.
func (u *Uploader) Run(ctx context.Context, localRoot, remoteRoot string) (*journal.Report, error) {
	rec := journal.NewRecorder(Tool, u.logger, u.db)
	u.logger.Infow("Starting upload", "local_root", localRoot, "remote_root", remoteRoot, "run_id", rec.RunID())

	entries, err := readLocalDir(localRoot)
	if err != nil {
		return rec.Finish(), err
	}

	stack := []*localFrame{{local: localRoot, remote: remoteRoot, entries: entries}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			u.logger.Warnw("Upload interrupted", "error", err)
			return rec.Finish(), err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}

		name := top.entries[top.next].Name()
		top.next++
		localPath := filepath.Join(top.local, name)
		remotePath := fsops.Join(top.remote, name)

		if err := u.limiter.Wait(ctx); err != nil {
			return rec.Finish(), err
		}

		// Stat follows symlinks, so linked directories are mirrored as directories
		info, statErr := os.Stat(localPath)
		if statErr == nil && info.IsDir() {
			u.makeDir(ctx, rec, localPath, remotePath)

			children, err := readLocalDir(localPath)
			if err != nil {
				return rec.Finish(), err
			}
			stack = append(stack, &localFrame{local: localPath, remote: remotePath, entries: children})
			continue
		}

		u.logger.Debugw("Uploading file", "local_path", localPath, "path", remotePath)
		written, err := u.session.UploadFile(ctx, localPath, remotePath)
		if err != nil {
			rec.Record(journal.Outcome{Action: journal.ActionUpload, Status: journal.StatusError, Path: remotePath, LocalPath: localPath, Err: err})
			continue
		}
		rec.Record(journal.Outcome{Action: journal.ActionUpload, Status: journal.StatusOK, Path: remotePath, LocalPath: localPath, Bytes: written})
	}

	return rec.Finish(), nil
}

// makeDir creates the remote directory. Failure usually means it already
// exists and is never fatal.
func (u *Uploader) makeDir(ctx context.Context, rec *journal.Recorder, localPath, remotePath string) {
	if err := u.session.CreateDirectory(ctx, remotePath); err != nil {
		rec.Record(journal.Outcome{Action: journal.ActionMakeDir, Status: journal.StatusSkipped, Path: remotePath, LocalPath: localPath, Reason: err.Error(), Err: err})
		return
	}
	rec.Record(journal.Outcome{Action: journal.ActionMakeDir, Status: journal.StatusOK, Path: remotePath, LocalPath: localPath})
}

func readLocalDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLocalList, dir, err)
	}
	return entries, nil
}
