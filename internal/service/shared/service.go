package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oocloud/oocloud/internal/domain"
	"github.com/oocloud/oocloud/internal/port"
	"github.com/oocloud/oocloud/internal/service/reconciler"
	"github.com/oocloud/oocloud/internal/storage"
	"github.com/oocloud/oocloud/internal/util/keylock"
)

// Service implements the record-less operations on the one folder every
// authenticated user shares. Only CopyToPrivate touches the record store,
// because it materializes a file in the caller's own tree.
type Service struct {
	layout *storage.Layout
	files  port.FileRepository
	locks  *keylock.KeyLock
	logger *zap.Logger
}

// New creates a new shared-space Service
func New(layout *storage.Layout, files port.FileRepository, locks *keylock.KeyLock, logger *zap.Logger) *Service {
	return &Service{
		layout: layout,
		files:  files,
		locks:  locks,
		logger: logger,
	}
}

// List browses a directory inside the shared folder.
func (s *Service) List(rel string) (*storage.Listing, error) {
	target, err := s.layout.ResolveShared(rel)
	if err != nil {
		return nil, err
	}
	return storage.ListDir(s.layout.SharedDir(), target)
}

// Upload writes incoming bytes into the shared folder and returns the name
// actually used. A collision gets a timestamp suffix instead of an
// overwrite.
func (s *Service) Upload(name string, r io.Reader) (string, error) {
	if filepath.Base(name) != name || name == "." || name == "" {
		return "", domain.ErrInvalidPath
	}

	dir := s.layout.SharedDir()
	if err := s.layout.EnsureDir(dir); err != nil {
		return "", err
	}

	finalName := storage.DisambiguateName(dir, name)
	dest := filepath.Join(dir, finalName)

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.logger.Info("uploaded shared file", zap.String("name", finalName))
	return finalName, nil
}

// Delete removes a file, or a directory with everything below it, at a
// validated relative path.
func (s *Service) Delete(rel string) error {
	target, err := s.layout.ResolveShared(rel)
	if err != nil {
		return err
	}
	if target == s.layout.SharedDir() {
		return domain.ErrInvalidPath
	}

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return err
	}

	if info.IsDir() {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	s.logger.Info("deleted shared path", zap.String("path", rel))
	return nil
}

// Open returns a handle on a shared file for serving, together with its
// base name for the download header.
func (s *Service) Open(rel string) (*os.File, string, error) {
	target, err := s.layout.ResolveShared(rel)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return nil, "", domain.ErrNotFound
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(target), nil
}

// CopyToPrivate copies a shared file into the caller's own tree as a new
// record, classified as photo or generic by extension.
func (s *Service) CopyToPrivate(user *domain.User, rel string) (*domain.FileRecord, error) {
	src, err := s.layout.ResolveShared(rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return nil, domain.ErrNotFound
	}

	name := filepath.Base(src)
	cat := domain.CategoryForName(name)

	key := reconciler.Key(user.ID, cat)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	folder := user.FolderName()
	dir := s.layout.LocationDir(folder, cat, domain.LocationMain)
	if err := s.layout.EnsureDir(dir); err != nil {
		return nil, err
	}

	finalName := storage.DisambiguateName(dir, name)
	if existing, err := s.files.GetByName(user.ID, cat, finalName); err != nil {
		return nil, err
	} else if existing != nil {
		finalName = storage.TimestampName(finalName)
	}
	dest := filepath.Join(dir, finalName)

	size, err := copyFile(src, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	rec := &domain.FileRecord{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Category:     cat,
		PhysicalName: finalName,
		LogicalPath:  domain.LogicalPathFor(folder, cat, domain.LocationMain, finalName),
		Size:         size,
	}
	if err := s.files.Create(rec); err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.logger.Info("copied shared file to private space",
		zap.String("user", user.ID),
		zap.String("name", finalName),
		zap.String("category", string(cat)))

	return rec, nil
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(dest)
		return 0, err
	}

	if err := out.Close(); err != nil {
		return 0, err
	}
	return written, nil
}
