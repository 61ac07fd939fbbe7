package fsops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

var errDirNotEmpty = errors.New("directory not empty")

// FakeSession implements Session for testing
// Keeps the remote tree in memory and records every call
type FakeSession struct {
	Calls  []string
	dirs   map[string]bool
	files  map[string][]byte
	fail   map[string]error
	closed bool
}

// NewFakeSession returns an empty tree rooted at "/" and "."
func NewFakeSession() *FakeSession {
	return &FakeSession{
		dirs:  map[string]bool{"/": true, ".": true},
		files: map[string][]byte{},
		fail:  map[string]error{},
	}
}

func normalize(p string) string {
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func parentOf(p string) string {
	return path.Dir(normalize(p))
}

// MkdirAll creates p and all missing parents
func (f *FakeSession) MkdirAll(p string) {
	p = normalize(p)
	for p != "." && p != "/" && p != "" {
		f.dirs[p] = true
		p = path.Dir(p)
	}
}

// WriteFile creates a file, creating parent directories as needed
func (f *FakeSession) WriteFile(p string, data []byte) {
	p = normalize(p)
	f.MkdirAll(path.Dir(p))
	f.files[p] = append([]byte(nil), data...)
}

// FailOn makes the named operation fail for path with err.
// op is one of ls, stat, rm, rmdir, mkdir, put.
func (f *FakeSession) FailOn(op, p string, err error) {
	f.fail[op+":"+normalize(p)] = err
}

// Exists reports whether a file or directory exists at p
func (f *FakeSession) Exists(p string) bool {
	p = normalize(p)
	_, isFile := f.files[p]
	return isFile || f.dirs[p]
}

// ReadFile returns the contents of a remote file
func (f *FakeSession) ReadFile(p string) ([]byte, bool) {
	data, ok := f.files[normalize(p)]
	return data, ok
}

// Paths lists every file and directory below root, sorted, directories
// with a trailing "/"
func (f *FakeSession) Paths(root string) []string {
	root = normalize(root)
	prefix := root + "/"
	if root == "/" {
		prefix = "/"
	}
	var out []string
	for d := range f.dirs {
		if d != root && strings.HasPrefix(d, prefix) {
			out = append(out, d+"/")
		}
	}
	for p := range f.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Closed reports whether Close was called
func (f *FakeSession) Closed() bool {
	return f.closed
}

func (f *FakeSession) record(op, p string) error {
	p = normalize(p)
	f.Calls = append(f.Calls, op+":"+p)
	return f.fail[op+":"+p]
}

func (f *FakeSession) ListEntries(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.record("ls", p); err != nil {
		return nil, err
	}
	p = normalize(p)
	if !f.dirs[p] {
		return nil, fmt.Errorf("list %s: %w", p, os.ErrNotExist)
	}
	return f.children(p), nil
}

func (f *FakeSession) children(dir string) []string {
	var names []string
	for d := range f.dirs {
		if d != dir && parentOf(d) == dir {
			names = append(names, path.Base(d))
		}
	}
	for p := range f.files {
		if parentOf(p) == dir {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)
	return names
}

func (f *FakeSession) IsDir(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := f.record("stat", p); err != nil {
		return false, err
	}
	p = normalize(p)
	if f.dirs[p] {
		return true, nil
	}
	if _, ok := f.files[p]; ok {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p, os.ErrNotExist)
}

func (f *FakeSession) RemoveFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record("rm", p); err != nil {
		return err
	}
	p = normalize(p)
	if _, ok := f.files[p]; !ok {
		return fmt.Errorf("remove %s: %w", p, os.ErrNotExist)
	}
	delete(f.files, p)
	return nil
}

func (f *FakeSession) RemoveDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record("rmdir", p); err != nil {
		return err
	}
	p = normalize(p)
	if !f.dirs[p] {
		return fmt.Errorf("rmdir %s: %w", p, os.ErrNotExist)
	}
	if len(f.children(p)) > 0 {
		return fmt.Errorf("rmdir %s: %w", p, errDirNotEmpty)
	}
	delete(f.dirs, p)
	return nil
}

func (f *FakeSession) CreateDirectory(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.record("mkdir", p); err != nil {
		return err
	}
	p = normalize(p)
	if f.Exists(p) {
		return fmt.Errorf("mkdir %s: %w", p, os.ErrExist)
	}
	if !f.dirs[parentOf(p)] {
		return fmt.Errorf("mkdir %s: %w", p, os.ErrNotExist)
	}
	f.dirs[p] = true
	return nil
}

func (f *FakeSession) UploadFile(ctx context.Context, localPath, remotePath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.record("put", remotePath); err != nil {
		return 0, err
	}
	remotePath = normalize(remotePath)
	if !f.dirs[parentOf(remotePath)] {
		return 0, fmt.Errorf("create %s: %w", remotePath, os.ErrNotExist)
	}
	if f.dirs[remotePath] {
		return 0, fmt.Errorf("create %s: is a directory", remotePath)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return 0, err
	}
	f.files[remotePath] = data
	return int64(len(data)), nil
}

func (f *FakeSession) Close() error {
	f.closed = true
	return nil
}
