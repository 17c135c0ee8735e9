package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oocloud/oocloud/internal/domain"
)

// Layout maps logical (user, category, location) triples onto the physical
// directory tree under a single storage root. The root is injected per
// deployment; nothing in here is global.
type Layout struct {
	root string
}

// NewLayout creates a Layout rooted at rootDir, creating the directory if
// it does not exist yet.
func NewLayout(rootDir string) (*Layout, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Layout{root: abs}, nil
}

// Root returns the storage root directory.
func (l *Layout) Root() string {
	return l.root
}

// UserRoot returns the root directory of one user's tree.
func (l *Layout) UserRoot(folder string) string {
	return filepath.Join(l.root, folder)
}

// CategoryDir returns the main directory for (user, category).
func (l *Layout) CategoryDir(folder string, cat domain.Category) string {
	return filepath.Join(l.root, folder, cat.Dir())
}

// LocationDir returns the physical directory for (user, category, location).
func (l *Layout) LocationDir(folder string, cat domain.Category, loc domain.Location) string {
	dir := l.CategoryDir(folder, cat)
	if sub := loc.Subdir(); sub != "" {
		return filepath.Join(dir, sub)
	}
	return dir
}

// SharedDir returns the directory shared between all users.
func (l *Layout) SharedDir() string {
	return filepath.Join(l.root, domain.SharedDirName)
}

// AbsFromLogical converts a record's slash-separated logical path to an
// absolute path under the root.
func (l *Layout) AbsFromLogical(logicalPath string) string {
	return filepath.Join(l.root, filepath.FromSlash(logicalPath))
}

// Resolve joins a caller-supplied relative path onto base and guarantees the
// result stays inside base. Traversal attempts and absolute inputs fail with
// domain.ErrInvalidPath before any filesystem access.
func (l *Layout) Resolve(base, rel string) (string, error) {
	if filepath.IsAbs(rel) || strings.ContainsRune(rel, 0) {
		return "", domain.ErrInvalidPath
	}

	target := filepath.Clean(filepath.Join(base, filepath.FromSlash(rel)))
	if !within(base, target) {
		return "", domain.ErrInvalidPath
	}

	// A symlink inside the tree must not point outside of it. Only paths
	// that already exist can be checked this way; the lexical check above
	// covers the rest.
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		resolvedBase := base
		if rb, err := filepath.EvalSymlinks(base); err == nil {
			resolvedBase = rb
		}
		if !within(resolvedBase, resolved) {
			return "", domain.ErrInvalidPath
		}
	}

	return target, nil
}

// ResolveUser validates rel against one user's root.
func (l *Layout) ResolveUser(folder, rel string) (string, error) {
	return l.Resolve(l.UserRoot(folder), rel)
}

// ResolveShared validates rel against the shared root.
func (l *Layout) ResolveShared(rel string) (string, error) {
	return l.Resolve(l.SharedDir(), rel)
}

// EnsureDir creates dir if it is missing. Safe to call repeatedly.
func (l *Layout) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// EnsureUserDirs provisions the category subtrees of one user's tree,
// including the favorites and trash subfolders of each category.
func (l *Layout) EnsureUserDirs(folder string) error {
	for _, cat := range domain.Categories() {
		for _, loc := range domain.Locations() {
			if err := l.EnsureDir(l.LocationDir(folder, cat, loc)); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnsureSharedDir provisions the shared folder with its category subtrees.
func (l *Layout) EnsureSharedDir() error {
	if err := l.EnsureDir(l.SharedDir()); err != nil {
		return err
	}
	for _, cat := range domain.Categories() {
		if err := l.EnsureDir(filepath.Join(l.SharedDir(), cat.Dir())); err != nil {
			return err
		}
	}
	return nil
}

func within(base, target string) bool {
	return target == base || strings.HasPrefix(target, base+string(filepath.Separator))
}
