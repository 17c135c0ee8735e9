package domain

import (
	"path"
	"time"
)

// Category classifies a file into its storage subtree.
type Category string

const (
	CategoryFile  Category = "FILE"
	CategoryPhoto Category = "PHOTO"
)

// categoryDirs maps each category to the name of its physical subtree.
var categoryDirs = map[Category]string{
	CategoryFile:  "Dosyalar",
	CategoryPhoto: "Fotograflar",
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryDirs[c]
	return ok
}

// Dir returns the physical subtree name for the category.
func (c Category) Dir() string {
	return categoryDirs[c]
}

// Categories returns all known categories in a stable order.
func Categories() []Category {
	return []Category{CategoryFile, CategoryPhoto}
}

// Subfolder names within a category subtree.
const (
	FavoritesDirName = "Favoriler"
	TrashDirName     = "CopKutusu"
	SharedDirName    = "Paylasilan"
)

// Location identifies which of the three physical subfolders holds a file.
type Location int

const (
	LocationMain Location = iota
	LocationFavorites
	LocationTrash
)

// Locations returns all locations in a stable order.
func Locations() []Location {
	return []Location{LocationMain, LocationFavorites, LocationTrash}
}

// Subdir returns the subfolder name relative to the category directory.
// LocationMain maps to the category directory itself.
func (l Location) Subdir() string {
	switch l {
	case LocationFavorites:
		return FavoritesDirName
	case LocationTrash:
		return TrashDirName
	default:
		return ""
	}
}

func (l Location) String() string {
	switch l {
	case LocationFavorites:
		return "favorites"
	case LocationTrash:
		return "trash"
	default:
		return "main"
	}
}

// FileRecord is the durable metadata row for one file owned by one user.
// Its flags must mirror the physical subfolder actually holding the file;
// the reconciler repairs any drift.
type FileRecord struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Category     Category   `json:"category"`
	PhysicalName string     `json:"physical_name"`
	LogicalPath  string     `json:"logical_path"`
	Size         int64      `json:"size"`
	IsFavorite   bool       `json:"is_favorite"`
	TrashedAt    *time.Time `json:"trashed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Trashed reports whether the record is currently in the trash.
func (f *FileRecord) Trashed() bool {
	return f.TrashedAt != nil
}

// Location derives the physical location from the record flags.
func (f *FileRecord) Location() Location {
	switch {
	case f.TrashedAt != nil:
		return LocationTrash
	case f.IsFavorite:
		return LocationFavorites
	default:
		return LocationMain
	}
}

// LogicalPathFor builds the slash-separated path of a file relative to the
// storage root: <userFolder>/<categoryDir>[/<subdir>]/<name>.
func LogicalPathFor(userFolder string, cat Category, loc Location, name string) string {
	if sub := loc.Subdir(); sub != "" {
		return path.Join(userFolder, cat.Dir(), sub, name)
	}
	return path.Join(userFolder, cat.Dir(), name)
}

// ApplyLocation updates the record flags and logical path to match loc.
// It reports whether anything changed, so callers can skip spurious writes.
// A record newly observed in the trash gets trashedAt=now; an existing
// trash timestamp is preserved.
func (f *FileRecord) ApplyLocation(loc Location, logicalPath string, size int64, now time.Time) bool {
	changed := false

	if f.LogicalPath != logicalPath {
		f.LogicalPath = logicalPath
		changed = true
	}

	fav := loc == LocationFavorites
	if f.IsFavorite != fav {
		f.IsFavorite = fav
		changed = true
	}

	if loc == LocationTrash {
		if f.TrashedAt == nil {
			f.TrashedAt = &now
			changed = true
		}
	} else if f.TrashedAt != nil {
		f.TrashedAt = nil
		changed = true
	}

	if f.Size != size {
		f.Size = size
		changed = true
	}

	return changed
}
