package safety

import (
	"errors"
	"path"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrProtectedPath = errors.New("protected path")
	ErrTraversal     = errors.New("path traversal detected")
)

// Validator guards the remote root handed to the deleter
type Validator struct {
	ProtectedPaths []string
}

// NewValidator creates a validator; "/" is always protected
func NewValidator(protected []string) *Validator {
	return &Validator{ProtectedPaths: normalizeProtected(protected)}
}

// ValidateRoot is the single-source-of-truth for delete authorization
// of a remote root. Returns a typed error on violation.
func (v *Validator) ValidateRoot(root string) error {
	if strings.TrimSpace(root) == "" {
		return ErrInvalidPath
	}

	// Detect traversal in raw input before cleaning hides it
	if DetectTraversal(root) {
		return ErrTraversal
	}

	if IsProtectedPath(root, v.ProtectedPaths) {
		return ErrProtectedPath
	}
	return nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	for _, p := range strings.Split(raw, "/") {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsProtectedPath reports whether root equals a protected path. Only exact
// matches are blocked: protecting "/srv" still allows "/srv/cache".
func IsProtectedPath(root string, protected []string) bool {
	p := path.Clean(root)
	if p == "/" {
		return true
	}
	for _, prot := range protected {
		if p == path.Clean(prot) {
			return true
		}
	}
	return false
}

func normalizeProtected(protected []string) []string {
	out := []string{"/"}
	for _, p := range protected {
		if strings.TrimSpace(p) == "" {
			continue
		}
		cp := path.Clean(p)
		if cp == "/" {
			continue
		}
		out = append(out, cp)
	}
	return out
}
