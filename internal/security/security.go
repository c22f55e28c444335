package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinodismyname/floodreport/pkg/mcperr"
	"github.com/vinodismyname/floodreport/pkg/validation"
)

// Manager gates which dataset files the loaders may open. A path passes when
// it names a regular file in a loadable format that resolves, after symlinks,
// under one of the allowed roots.
type Manager struct {
	roots   []string
	formats map[string]struct{}
}

var (
	// ErrNotAllowed indicates the requested path is outside the allow-list roots.
	ErrNotAllowed = errors.New("security: path not allowed")
	// ErrUnsupportedExtension indicates the file is not a loadable dataset format.
	ErrUnsupportedExtension = errors.New("security: unsupported file extension")
	// ErrNotFound indicates the requested file does not exist or is not accessible.
	ErrNotFound = errors.New("security: file not found")
)

// NewManager constructs a manager rooted at allowDirs. formats optionally
// narrows the loadable dataset extensions (validation.DatasetExtensions); an
// entry outside that set is rejected because no loader can read it.
func NewManager(allowDirs []string, formats []string) (*Manager, error) {
	m := &Manager{formats: make(map[string]struct{}, len(validation.DatasetExtensions))}
	if len(formats) == 0 {
		formats = validation.DatasetExtensions
	}
	for _, f := range formats {
		ext := strings.ToLower(strings.TrimSpace(f))
		if !strings.HasPrefix(ext, ".") || !validation.HasDatasetExt("dataset"+ext) {
			return nil, fmt.Errorf("security: %q is not a dataset format", f)
		}
		m.formats[ext] = struct{}{}
	}

	for _, d := range allowDirs {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}
		root, err := canonicalRoot(d)
		if err != nil {
			return nil, err
		}
		m.roots = append(m.roots, root)
	}
	return m, nil
}

func canonicalRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("security: resolve %q: %w", dir, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("security: resolve %q: %w", abs, err)
	}
	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("security: stat root %q: %w", real, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("security: allowed root is not a directory: %q", real)
	}
	return filepath.Clean(real), nil
}

// NewManagerFromList splits a path list (os.PathListSeparator separated)
// and appends it to dirs, as used for FLOODREPORT_ALLOWED_DIRS.
func NewManagerFromList(dirs []string, list string) (*Manager, error) {
	all := append([]string{}, dirs...)
	if list != "" {
		all = append(all, filepath.SplitList(list)...)
	}
	return NewManager(all, nil)
}

// AllowedDirectories returns the canonical allow-list roots.
func (m *Manager) AllowedDirectories() []string {
	return append([]string(nil), m.roots...)
}

// ValidateConfig fails when no roots are configured; file access stays
// disabled until an operator names at least one directory.
func (m *Manager) ValidateConfig() error {
	if len(m.roots) == 0 {
		return errors.New("security: no allowed directories configured")
	}
	return nil
}

// ValidateOpenPath returns the canonical path of input when it is a loadable
// dataset file inside one of the roots.
func (m *Manager) ValidateOpenPath(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrNotAllowed
	}
	if !m.loadable(input) {
		return "", ErrUnsupportedExtension
	}
	real, err := resolveFile(input)
	if err != nil {
		return "", err
	}
	for _, root := range m.roots {
		if within(root, real) {
			return real, nil
		}
	}
	return "", ErrNotAllowed
}

// loadable reports whether path has a dataset extension this manager admits.
func (m *Manager) loadable(path string) bool {
	if !validation.HasDatasetExt(path) {
		return false
	}
	_, ok := m.formats[strings.ToLower(filepath.Ext(strings.TrimSpace(path)))]
	return ok
}

// resolveFile canonicalizes path and requires it to be an existing regular file.
func resolveFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("security: abs path: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("security: eval symlinks: %w", err)
	}
	info, err := os.Stat(real)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("security: stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotAllowed
	}
	return real, nil
}

// within reports whether path lies strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == "" {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Classify maps security errors onto tool error codes.
func Classify(err error) (mcperr.Code, bool) {
	switch {
	case errors.Is(err, ErrNotAllowed):
		return mcperr.PermissionDenied, true
	case errors.Is(err, ErrUnsupportedExtension):
		return mcperr.UnsupportedFormat, true
	case errors.Is(err, ErrNotFound):
		return mcperr.NotFound, true
	}
	return "", false
}
