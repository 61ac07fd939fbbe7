// Package cleanup implements the recursive remote deleter.
package cleanup

import (
	"context"
	"errors"
	"fmt"

	"sftp-tools/internal/database"
	"sftp-tools/internal/fsops"
	"sftp-tools/internal/journal"
	"sftp-tools/internal/limiter"
	"sftp-tools/internal/logging"
	"sftp-tools/internal/safety"
)

// Tool labels deleter runs in metrics and history
const Tool = "delete"

// ErrList is returned when the root directory cannot be listed
var ErrList = errors.New("cannot list remote directory")

// Cleaner deletes a remote tree over an SFTP session
type Cleaner struct {
	session   fsops.Session
	validator *safety.Validator
	limiter   *limiter.OpLimiter
	logger    logging.Logger
	db        *database.OperationDB // Database for recording operation history
}

// NewCleaner creates a new Cleaner instance. db may be nil.
func NewCleaner(session fsops.Session, logger logging.Logger, db *database.OperationDB) *Cleaner {
	return &Cleaner{
		session:   session,
		validator: safety.NewValidator(nil),
		logger:    logger,
		db:        db,
	}
}

// SetValidator replaces the root guard (for protected paths from config)
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// SetLimiter throttles remote operations
func (c *Cleaner) SetLimiter(l *limiter.OpLimiter) {
	c.limiter = l
}

// dirFrame is one directory on the traversal stack
type dirFrame struct {
	path    string
	entries []string
	next    int
}

// Run deletes every file under root whose name is not in keepFiles and
// every directory whose name is not in excludeDirs, children before
// parents. Excluded directories are never entered. The root itself is
// never removed. Per-entry failures are recorded in the report and do not
// stop the run; a failure to list root, a safety violation or context
// cancellation does.
func (c *Cleaner) Run(ctx context.Context, root string, excludeDirs, keepFiles []string) (*journal.Report, error) {
	if err := c.validator.ValidateRoot(root); err != nil {
		c.logger.Errorw("Refusing to clean remote root", "path", root, "error", err)
		return nil, fmt.Errorf("remote root %q: %w", root, err)
	}

	excluded := toSet(excludeDirs)
	keep := toSet(keepFiles)

	rec := journal.NewRecorder(Tool, c.logger, c.db)
	c.logger.Infow("Starting cleanup",
		"root", root,
		"run_id", rec.RunID(),
		"exclude_dirs", excludeDirs,
		"keep_files", keepFiles,
	)

	entries, err := c.list(ctx, root)
	if err != nil {
		rec.Record(journal.Outcome{Action: journal.ActionList, Status: journal.StatusError, Path: root, Err: err})
		return rec.Finish(), fmt.Errorf("%w %s: %w", ErrList, root, err)
	}

	stack := []*dirFrame{{path: root, entries: entries}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			c.logger.Warnw("Cleanup interrupted", "error", err)
			return rec.Finish(), err
		}

		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			// Every directory but the root is removed once its subtree is done
			if len(stack) > 0 {
				c.removeIfEmpty(ctx, rec, top.path)
			}
			continue
		}

		name := top.entries[top.next]
		top.next++
		fullPath := fsops.Join(top.path, name)

		if err := c.limiter.Wait(ctx); err != nil {
			return rec.Finish(), err
		}
		isDir, err := c.session.IsDir(ctx, fullPath)
		if err != nil {
			rec.Record(journal.Outcome{Action: journal.ActionSkip, Status: journal.StatusError, Path: fullPath, Reason: journal.ReasonStatFailed, Err: err})
			continue
		}

		if isDir {
			if excluded[name] {
				rec.Record(journal.Outcome{Action: journal.ActionSkip, Status: journal.StatusSkipped, Path: fullPath, Reason: journal.ReasonExcludedDir})
				continue
			}
			children, err := c.list(ctx, fullPath)
			if err != nil {
				rec.Record(journal.Outcome{Action: journal.ActionList, Status: journal.StatusError, Path: fullPath, Err: err})
				continue
			}
			c.logger.Debugw("Entering directory", "path", fullPath, "entries", len(children))
			stack = append(stack, &dirFrame{path: fullPath, entries: children})
			continue
		}

		if keep[name] {
			rec.Record(journal.Outcome{Action: journal.ActionSkip, Status: journal.StatusSkipped, Path: fullPath, Reason: journal.ReasonKeepFile})
			continue
		}

		c.logger.Debugw("Deleting file", "path", fullPath)
		if err := c.session.RemoveFile(ctx, fullPath); err != nil {
			rec.Record(journal.Outcome{Action: journal.ActionDeleteFile, Status: journal.StatusError, Path: fullPath, Err: err})
			continue
		}
		rec.Record(journal.Outcome{Action: journal.ActionDeleteFile, Status: journal.StatusOK, Path: fullPath})
	}

	return rec.Finish(), nil
}

// removeIfEmpty lists dir again after its subtree was processed and
// removes it when nothing is left
func (c *Cleaner) removeIfEmpty(ctx context.Context, rec *journal.Recorder, dir string) {
	remaining, err := c.list(ctx, dir)
	if err != nil {
		rec.Record(journal.Outcome{Action: journal.ActionList, Status: journal.StatusError, Path: dir, Err: err})
		return
	}
	if len(remaining) > 0 {
		rec.Record(journal.Outcome{Action: journal.ActionRemoveDir, Status: journal.StatusSkipped, Path: dir, Reason: journal.ReasonNotEmpty})
		return
	}

	if err := c.limiter.Wait(ctx); err != nil {
		rec.Record(journal.Outcome{Action: journal.ActionRemoveDir, Status: journal.StatusError, Path: dir, Err: err})
		return
	}
	c.logger.Debugw("Removing directory", "path", dir)
	if err := c.session.RemoveDirectory(ctx, dir); err != nil {
		rec.Record(journal.Outcome{Action: journal.ActionRemoveDir, Status: journal.StatusError, Path: dir, Err: err})
		return
	}
	rec.Record(journal.Outcome{Action: journal.ActionRemoveDir, Status: journal.StatusOK, Path: dir})
}

func (c *Cleaner) list(ctx context.Context, dir string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.session.ListEntries(ctx, dir)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = true
		}
	}
	return set
}
