package domain

import (
	"testing"
	"time"
)

func TestLogicalPathFor(t *testing.T) {
	tests := []struct {
		cat  Category
		loc  Location
		want string
	}{
		{CategoryFile, LocationMain, "ercan/Dosyalar/a.txt"},
		{CategoryFile, LocationFavorites, "ercan/Dosyalar/Favoriler/a.txt"},
		{CategoryFile, LocationTrash, "ercan/Dosyalar/CopKutusu/a.txt"},
		{CategoryPhoto, LocationMain, "ercan/Fotograflar/a.txt"},
	}

	for _, tt := range tests {
		if got := LogicalPathFor("ercan", tt.cat, tt.loc, "a.txt"); got != tt.want {
			t.Errorf("LogicalPathFor(%v, %v) = %q, want %q", tt.cat, tt.loc, got, tt.want)
		}
	}
}

func TestFileRecord_Location(t *testing.T) {
	now := time.Now()

	rec := &FileRecord{}
	if rec.Location() != LocationMain {
		t.Errorf("Location() = %v, want main", rec.Location())
	}

	rec.IsFavorite = true
	if rec.Location() != LocationFavorites {
		t.Errorf("Location() = %v, want favorites", rec.Location())
	}

	// Trash wins over the favorite flag.
	rec.TrashedAt = &now
	if rec.Location() != LocationTrash {
		t.Errorf("Location() = %v, want trash", rec.Location())
	}
}

func TestFileRecord_ApplyLocation(t *testing.T) {
	now := time.Now()

	rec := &FileRecord{
		Category:     CategoryFile,
		PhysicalName: "a.txt",
		LogicalPath:  "ercan/Dosyalar/a.txt",
		Size:         10,
	}

	// Same state, no change.
	if rec.ApplyLocation(LocationMain, "ercan/Dosyalar/a.txt", 10, now) {
		t.Error("ApplyLocation reported change for identical state")
	}

	// Move to trash.
	if !rec.ApplyLocation(LocationTrash, "ercan/Dosyalar/CopKutusu/a.txt", 10, now) {
		t.Error("ApplyLocation did not report change for trash move")
	}
	if rec.TrashedAt == nil || !rec.TrashedAt.Equal(now) {
		t.Errorf("TrashedAt = %v, want %v", rec.TrashedAt, now)
	}

	// Existing trash timestamp is preserved on a second pass.
	later := now.Add(time.Hour)
	if rec.ApplyLocation(LocationTrash, "ercan/Dosyalar/CopKutusu/a.txt", 10, later) {
		t.Error("ApplyLocation reported change for already-trashed record")
	}
	if !rec.TrashedAt.Equal(now) {
		t.Errorf("TrashedAt overwritten: %v, want %v", rec.TrashedAt, now)
	}

	// Back to favorites clears trash flag.
	if !rec.ApplyLocation(LocationFavorites, "ercan/Dosyalar/Favoriler/a.txt", 12, later) {
		t.Error("ApplyLocation did not report change for favorites move")
	}
	if rec.TrashedAt != nil {
		t.Error("TrashedAt not cleared")
	}
	if !rec.IsFavorite {
		t.Error("IsFavorite not set")
	}
	if rec.Size != 12 {
		t.Errorf("Size = %d, want 12", rec.Size)
	}
}
