package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/adapter/sqlite"
	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/storage"
	"github.com/oocloud/oocloud/internal/util/keylock"
)

type fixture struct {
	layout *storage.Layout
	store  *sqlite.Store
	svc    *Service
	user   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	layout, err := storage.NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("NewLayout() error = %v", err)
	}
	if err := layout.EnsureSharedDir(); err != nil {
		t.Fatalf("EnsureSharedDir() error = %v", err)
	}

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	user := &domain.User{
		ID:          uuid.NewString(),
		PhoneNumber: "5551112233",
		Username:    "ercan",
		Folder:      "ercan",
		IsActive:    true,
	}
	if err := store.CreateUser(user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	svc := New(layout, store, keylock.New(), zap.NewNop())
	return &fixture{layout: layout, store: store, svc: svc, user: user}
}

func (f *fixture) writeShared(t *testing.T, rel, content string) string {
	t.Helper()
	abs := filepath.Join(f.layout.SharedDir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return abs
}

func TestUpload(t *testing.T) {
	f := newFixture(t)

	name, err := f.svc.Upload("notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if name != "notes.txt" {
		t.Errorf("Upload() name = %q, want %q", name, "notes.txt")
	}

	data, err := os.ReadFile(filepath.Join(f.layout.SharedDir(), name))
	if err != nil {
		t.Fatalf("reading uploaded file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("uploaded content = %q, want %q", data, "hello")
	}
}

func TestUpload_CollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "notes.txt", "first")

	name, err := f.svc.Upload("notes.txt", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if name == "notes.txt" {
		t.Fatal("Upload() should not reuse a taken name")
	}
	if !strings.HasPrefix(name, "notes_") || !strings.HasSuffix(name, ".txt") {
		t.Errorf("Upload() name = %q, want notes_<ts>.txt", name)
	}

	data, err := os.ReadFile(filepath.Join(f.layout.SharedDir(), "notes.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first" {
		t.Errorf("existing file overwritten, content = %q", data)
	}
}

func TestUpload_RejectsPathName(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"../escape.txt", "sub/dir.txt", "", "."} {
		if _, err := f.svc.Upload(name, strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidPath) {
			t.Errorf("Upload(%q) error = %v, want ErrInvalidPath", name, err)
		}
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	abs := f.writeShared(t, "old.txt", "x")

	if err := f.svc.Delete("old.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Error("file should be gone after Delete()")
	}
}

func TestDelete_DirectoryRecursive(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "album/a.jpg", "x")
	f.writeShared(t, "album/nested/b.jpg", "y")

	if err := f.svc.Delete("album"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.layout.SharedDir(), "album")); !os.IsNotExist(err) {
		t.Error("directory should be gone after Delete()")
	}
}

func TestDelete_Invalid(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Delete("missing.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete("../outside.txt"); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("Delete(traversal) error = %v, want ErrInvalidPath", err)
	}
	if err := f.svc.Delete("."); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("Delete(root) error = %v, want ErrInvalidPath", err)
	}
}

func TestOpen(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "docs/report.pdf", "pdfdata")

	file, name, err := f.svc.Open("docs/report.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer file.Close()

	if name != "report.pdf" {
		t.Errorf("Open() name = %q, want %q", name, "report.pdf")
	}

	if _, _, err := f.svc.Open("docs"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Open(directory) error = %v, want ErrNotFound", err)
	}
}

func TestCopyToPrivate(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "vacation.jpg", "jpegbytes")

	rec, err := f.svc.CopyToPrivate(f.user, "vacation.jpg")
	if err != nil {
		t.Fatalf("CopyToPrivate() error = %v", err)
	}

	if rec.Category != domain.CategoryPhoto {
		t.Errorf("category = %v, want %v", rec.Category, domain.CategoryPhoto)
	}
	if rec.Size != int64(len("jpegbytes")) {
		t.Errorf("size = %d, want %d", rec.Size, len("jpegbytes"))
	}

	abs := f.layout.AbsFromLogical(rec.LogicalPath)
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatalf("reading copied file: %v", err)
	}
	if string(data) != "jpegbytes" {
		t.Errorf("copied content = %q", data)
	}

	stored, err := f.store.GetByID(rec.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID() = %v, %v", stored, err)
	}
}

func TestCopyToPrivate_GenericCategory(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "budget.xlsx", "x")

	rec, err := f.svc.CopyToPrivate(f.user, "budget.xlsx")
	if err != nil {
		t.Fatalf("CopyToPrivate() error = %v", err)
	}
	if rec.Category != domain.CategoryFile {
		t.Errorf("category = %v, want %v", rec.Category, domain.CategoryFile)
	}
}

func TestCopyToPrivate_CollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "pic.png", "new")

	dir := f.layout.LocationDir(f.user.Folder, domain.CategoryPhoto, domain.LocationMain)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pic.png"), []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	rec, err := f.svc.CopyToPrivate(f.user, "pic.png")
	if err != nil {
		t.Fatalf("CopyToPrivate() error = %v", err)
	}
	if rec.PhysicalName == "pic.png" {
		t.Fatal("CopyToPrivate() should not reuse a taken name")
	}

	data, err := os.ReadFile(filepath.Join(dir, "pic.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "mine" {
		t.Errorf("existing private file overwritten, content = %q", data)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.writeShared(t, "zeta.txt", "x")
	f.writeShared(t, "album/a.jpg", "y")

	listing, err := f.svc.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(listing.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(listing.Items))
	}
	if !listing.Items[0].IsDir || listing.Items[0].Name != "album" {
		t.Errorf("Items[0] = %+v, want the album directory first", listing.Items[0])
	}
	if listing.Items[1].Name != "zeta.txt" {
		t.Errorf("Items[1].Name = %q, want zeta.txt", listing.Items[1].Name)
	}
	if listing.ParentPath != nil {
		t.Error("root listing should have no parent")
	}

	sub, err := f.svc.List("album")
	if err != nil {
		t.Fatalf("List(album) error = %v", err)
	}
	if sub.ParentPath == nil {
		t.Fatal("subdirectory listing should have a parent")
	}
}
