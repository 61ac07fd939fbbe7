package fsops

import (
	"context"
	"errors"
	"strings"
)

// ErrConnection marks failures to reach or authenticate to the server.
var ErrConnection = errors.New("sftp connection failed")

// Session abstracts the remote operations the traversals need.
// Enables running both tools against an in-memory tree in tests.
type Session interface {
	ListEntries(ctx context.Context, path string) ([]string, error)
	IsDir(ctx context.Context, path string) (bool, error)
	RemoveFile(ctx context.Context, path string) error
	RemoveDirectory(ctx context.Context, path string) error
	CreateDirectory(ctx context.Context, path string) error
	UploadFile(ctx context.Context, localPath, remotePath string) (int64, error)
	Close() error
}

// Join appends name to a remote directory with a single "/" and performs
// no other normalization.
func Join(dir, name string) string {
	switch {
	case dir == "":
		return name
	case strings.HasPrefix(name, "/"):
		return name
	case strings.HasSuffix(dir, "/"):
		return dir + name
	default:
		return dir + "/" + name
	}
}
