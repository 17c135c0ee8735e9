package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oocloud/oocloud/internal/domain"
)

// Entry is one item of a browsed directory.
type Entry struct {
	Name     string           `json:"name"`
	IsDir    bool             `json:"is_dir"`
	Path     string           `json:"path"`
	Size     int64            `json:"size,omitempty"`
	Modified int64            `json:"modified,omitempty"`
	Kind     domain.EntryKind `json:"type,omitempty"`
}

// Listing is the result of browsing one directory.
type Listing struct {
	CurrentPath string  `json:"current_path"`
	ParentPath  *string `json:"parent_path"`
	Items       []Entry `json:"items"`
}

// ListDir returns the non-recursive contents of target, which must live
// under base. The directory is created when missing so browsing a fresh
// tree works. Entries are sorted directories-first, then case-insensitive
// by name, and files carry a type classification.
func ListDir(base, target string) (*Listing, error) {
	if err := os.MkdirAll(target, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrInvalidPath
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	items := make([]Entry, 0, len(entries))
	for _, e := range entries {
		rel, err := filepath.Rel(base, filepath.Join(target, e.Name()))
		if err != nil {
			continue
		}

		item := Entry{
			Name:  e.Name(),
			IsDir: e.IsDir(),
			Path:  filepath.ToSlash(rel),
		}

		if !e.IsDir() {
			item.Kind = domain.ClassifyName(e.Name())
			if fi, err := e.Info(); err == nil {
				item.Size = fi.Size()
				item.Modified = fi.ModTime().Unix()
			}
		}

		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})

	listing := &Listing{Items: items}

	if target != base {
		rel, err := filepath.Rel(base, target)
		if err == nil {
			listing.CurrentPath = filepath.ToSlash(rel)
		}
		parent := filepath.ToSlash(filepath.Dir(listing.CurrentPath))
		if parent == "." {
			parent = ""
		}
		listing.ParentPath = &parent
	}

	return listing, nil
}

// DisambiguateName returns name unchanged when it is free inside dir, or
// with a timestamp suffix (report.pdf -> report_1700000000.pdf) when a file
// with that name already exists.
func DisambiguateName(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
		return name
	}
	return TimestampName(name)
}

// TimestampName inserts a unix timestamp before the extension.
func TimestampName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%d%s", stem, time.Now().Unix(), ext)
}
